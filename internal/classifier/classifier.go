// Package classifier turns raw Client.txt lines into typed trade and
// presence events. All patterns are compiled once at construction from the
// per-locale phrase tables; classification itself never errors, a line that
// matches nothing is simply not a trade line.
package classifier

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"exile-companion/internal/models"
	"exile-companion/internal/phrase"
)

const logTimeLayout = "2006/01/02 15:04:05"

// envelopeRegexp recognizes the locale-agnostic whisper envelope the client
// writes around every chat whisper:
//
//	2021/04/16 17:04:56 12345678 bb3 [INFO Client 12345] @From <GLD> Player: message
var envelopeRegexp = regexp.MustCompile(
	`(?i)^(?P<timestamp>\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2})\s+\d+\s+\S+\s+\[INFO Client \d+\]\s+` +
		`@(?:(?P<from>From)|(?P<to>To)) (?:<(?P<guild>\S+)> )?(?P<player>[^:]+): (?P<message>.*)$`)

// Event is a successfully classified log line: either *WhisperEvent or
// *PresenceEvent.
type Event interface {
	classifiedEvent()
}

// WhisperEvent is a recognized trade whisper.
type WhisperEvent struct {
	Type      models.NotificationType
	Player    string
	Timestamp time.Time
	Message   string
	Locale    language.Tag
	Trade     TradeBody
}

func (*WhisperEvent) classifiedEvent() {}

// TradeBody is the classified whisper body: ItemTrade or BulkTrade.
type TradeBody interface {
	tradeBody()
}

// ItemTrade is an item-for-currency offer.
type ItemTrade struct {
	ItemName      string
	PriceAmount   float64
	CurrencyToken string
	League        string
	StashTab      string
	Left          int
	Top           int
	HasLocation   bool
	Offer         string
}

func (ItemTrade) tradeBody() {}

// BulkTrade is a currency-for-currency offer.
type BulkTrade struct {
	ItemToken   string
	ItemAmount  float64
	PriceAmount float64
	PriceToken  string
	League      string
	Offer       string
}

func (BulkTrade) tradeBody() {}

// PresenceEvent is a player entering or leaving the local area.
type PresenceEvent struct {
	Player string
	Left   bool
}

func (*PresenceEvent) classifiedEvent() {}

type localeMatchers struct {
	locale language.Tag
	item   *regexp.Regexp
	bulk   *regexp.Regexp
	joined []*regexp.Regexp
	left   []*regexp.Regexp
}

// Classifier matches one line at a time against the compiled pattern tables.
type Classifier struct {
	envelope *regexp.Regexp
	locales  []localeMatchers
}

// New builds a classifier from the given phrase tables. Table order is the
// tie-break order for ambiguous whisper bodies: the first locale whose
// pattern matches wins. Locales with missing or uncompilable phrases are
// skipped for the affected pattern only.
func New(tables []*phrase.Table) *Classifier {
	c := &Classifier{envelope: envelopeRegexp}
	for _, table := range tables {
		lm := localeMatchers{
			locale: table.Locale(),
			item:   compileBody(table, "trade.item.offer"),
			bulk:   compileBody(table, "trade.bulk.offer"),
		}
		for _, p := range table.TranslateAll("area.joined") {
			if re := compilePresence(p.Translation); re != nil {
				lm.joined = append(lm.joined, re)
			}
		}
		for _, p := range table.TranslateAll("area.left") {
			if re := compilePresence(p.Translation); re != nil {
				lm.left = append(lm.left, re)
			}
		}
		if lm.item == nil && lm.bulk == nil && len(lm.joined) == 0 && len(lm.left) == 0 {
			continue
		}
		c.locales = append(c.locales, lm)
	}
	return c
}

func compileBody(table *phrase.Table, key string) *regexp.Regexp {
	pattern := table.Translate(key)
	if pattern == "" || pattern == key {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}
	return re
}

func compilePresence(fragment string) *regexp.Regexp {
	if fragment == "" {
		return nil
	}
	// The player capture cannot cross a colon, so the same pattern accepts
	// both the bare line and the full log line with its envelope prefix.
	re, err := regexp.Compile(`(?i)(?P<player>[^:\s][^:]*?) ` + fragment + `(?:\.|。)?$`)
	if err != nil {
		return nil
	}
	return re
}

// Classify inspects one newline-stripped log line. It returns nil when the
// line is not a recognized trade whisper or presence line.
func (c *Classifier) Classify(line string) Event {
	if match := c.envelope.FindStringSubmatch(line); match != nil {
		return c.classifyWhisper(groups(c.envelope, match))
	}

	for _, lm := range c.locales {
		for _, re := range lm.joined {
			if match := re.FindStringSubmatch(line); match != nil {
				return &PresenceEvent{Player: groups(re, match)["player"]}
			}
		}
	}
	for _, lm := range c.locales {
		for _, re := range lm.left {
			if match := re.FindStringSubmatch(line); match != nil {
				return &PresenceEvent{Player: groups(re, match)["player"], Left: true}
			}
		}
	}
	return nil
}

func (c *Classifier) classifyWhisper(env map[string]string) Event {
	timestamp, err := time.ParseInLocation(logTimeLayout, env["timestamp"], time.Local)
	if err != nil {
		return nil
	}

	notificationType := models.Outgoing
	if env["from"] != "" {
		notificationType = models.Incoming
	}
	message := env["message"]

	for _, lm := range c.locales {
		if lm.item == nil {
			continue
		}
		if match := lm.item.FindStringSubmatch(message); match != nil {
			body := groups(lm.item, match)
			trade := ItemTrade{
				ItemName:      body["name"],
				PriceAmount:   parseAmount(body["price"]),
				CurrencyToken: body["currency"],
				League:        body["league"],
				Offer:         body["message"],
			}
			if body["left"] != "" && body["top"] != "" {
				trade.HasLocation = true
				trade.StashTab = body["stash"]
				trade.Left = clamp(parseInt(body["left"]), 1, models.MaxStashSize)
				trade.Top = clamp(parseInt(body["top"]), 1, models.MaxStashSize)
			}
			return &WhisperEvent{
				Type:      notificationType,
				Player:    env["player"],
				Timestamp: timestamp,
				Message:   message,
				Locale:    lm.locale,
				Trade:     trade,
			}
		}
	}

	for _, lm := range c.locales {
		if lm.bulk == nil {
			continue
		}
		if match := lm.bulk.FindStringSubmatch(message); match != nil {
			body := groups(lm.bulk, match)
			return &WhisperEvent{
				Type:      notificationType,
				Player:    env["player"],
				Timestamp: timestamp,
				Message:   message,
				Locale:    lm.locale,
				Trade: BulkTrade{
					ItemToken:   body["name"],
					ItemAmount:  parseAmount(body["count"]),
					PriceAmount: parseAmount(body["price"]),
					PriceToken:  body["currency"],
					League:      body["league"],
					Offer:       body["message"],
				},
			}
		}
	}
	return nil
}

func groups(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" || i >= len(match) {
			continue
		}
		out[name] = match[i]
	}
	return out
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
