// Package currency is the boundary to the currency catalog. The companion
// only needs token-to-record lookups; price fetching lives elsewhere.
package currency

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"exile-companion/internal/models"
)

// Resolver maps a currency token parsed from whisper text to a canonical
// record. A nil result with nil error means the token is unknown; callers
// fall back to Fallback rather than treating that as a failure.
type Resolver interface {
	Search(ctx context.Context, nameType string, locale language.Tag) (*models.Currency, error)
}

// Fallback synthesizes the placeholder record for an unresolved token.
func Fallback(token string) models.Currency {
	return models.Currency{ID: token, Name: token}
}

// StaticResolver resolves the common trade-site tokens from a built-in
// table. Lookups are case-insensitive.
type StaticResolver struct {
	byToken map[string]models.Currency
}

// NewStaticResolver builds the resolver with the stock token table.
func NewStaticResolver() *StaticResolver {
	resolver := &StaticResolver{byToken: make(map[string]models.Currency)}

	add := func(currency models.Currency, tokens ...string) {
		for _, token := range tokens {
			resolver.byToken[strings.ToLower(token)] = currency
		}
	}

	add(models.Currency{ID: "chaos", Name: "Chaos Orb"}, "chaos", "c", "chaos orb")
	add(models.Currency{ID: "divine", Name: "Divine Orb"}, "divine", "div", "divine orb")
	add(models.Currency{ID: "exalted", Name: "Exalted Orb"}, "exalted", "ex", "exa", "exalted orb")
	add(models.Currency{ID: "alch", Name: "Orb of Alchemy"}, "alch", "orb of alchemy")
	add(models.Currency{ID: "alt", Name: "Orb of Alteration"}, "alt", "orb of alteration")
	add(models.Currency{ID: "fusing", Name: "Orb of Fusing"}, "fuse", "fusing", "orb of fusing")
	add(models.Currency{ID: "jewellers", Name: "Jeweller's Orb"}, "jew", "jewellers", "jeweller's orb")
	add(models.Currency{ID: "chromatic", Name: "Chromatic Orb"}, "chrome", "chromatic", "chromatic orb")
	add(models.Currency{ID: "regal", Name: "Regal Orb"}, "regal", "regal orb")
	add(models.Currency{ID: "vaal", Name: "Vaal Orb"}, "vaal", "vaal orb")
	add(models.Currency{ID: "mirror", Name: "Mirror of Kalandra"}, "mirror", "mir", "mirror of kalandra")

	return resolver
}

// Search implements Resolver. Unknown tokens return (nil, nil).
func (r *StaticResolver) Search(_ context.Context, nameType string, _ language.Tag) (*models.Currency, error) {
	if currency, ok := r.byToken[strings.ToLower(nameType)]; ok {
		out := currency
		return &out, nil
	}
	return nil, nil
}
