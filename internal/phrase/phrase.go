// Package phrase resolves the locale-specific matching fragments the
// classifier compiles its patterns from. Tables are loaded once from the
// embedded locale files and are immutable afterwards.
package phrase

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Phrase is one resolved entry of a table.
type Phrase struct {
	ID          string
	Translation string
}

// Table holds the phrases of a single locale.
type Table struct {
	locale  language.Tag
	phrases map[string]string
	ids     []string
}

type localeFile struct {
	Locale  string            `yaml:"locale"`
	Phrases map[string]string `yaml:"phrases"`
}

// Load reads the embedded phrase table for the given locale.
func Load(locale language.Tag) (*Table, error) {
	name := path.Join("locales", locale.String()+".yaml")
	data, err := localeFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("no phrase table for locale %q: %w", locale, err)
	}

	var file localeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse phrase table %s: %w", name, err)
	}

	ids := make([]string, 0, len(file.Phrases))
	for id := range file.Phrases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Table{
		locale:  locale,
		phrases: file.Phrases,
		ids:     ids,
	}, nil
}

// Locales lists every locale shipped with the binary.
func Locales() []language.Tag {
	entries, err := fs.Glob(localeFS, "locales/*.yaml")
	if err != nil {
		return nil
	}
	sort.Strings(entries)

	tags := make([]language.Tag, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".yaml")
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// Locale returns the fixed locale of the table.
func (t *Table) Locale() language.Tag {
	return t.locale
}

// Translate resolves a single phrase. An unknown key resolves to the key
// itself; callers treat identity results as "no match" rather than an error.
func (t *Table) Translate(key string) string {
	if translation, ok := t.phrases[key]; ok {
		return translation
	}
	return key
}

// TranslateAll resolves every phrase whose ID starts with the given prefix,
// in stable (sorted) order. An unknown prefix yields an empty slice.
func (t *Table) TranslateAll(keyPrefix string) []Phrase {
	var phrases []Phrase
	for _, id := range t.ids {
		if strings.HasPrefix(id, keyPrefix) {
			phrases = append(phrases, Phrase{ID: id, Translation: t.phrases[id]})
		}
	}
	return phrases
}
