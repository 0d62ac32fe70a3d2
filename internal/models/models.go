package models

import (
	"time"
)

// MaxStashSize is the largest stash grid dimension the game ships; parsed
// stash coordinates are clamped into [1, MaxStashSize].
const MaxStashSize = 24

// NotificationType is the direction of a trade whisper relative to the
// local player.
type NotificationType int

const (
	Incoming NotificationType = iota
	Outgoing
)

func (t NotificationType) String() string {
	if t == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// Currency is a canonical currency record. Unresolved tokens get a
// synthesized record whose ID and Name both equal the raw token.
type Currency struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// CurrencyAmount pairs an amount with a resolved currency.
type CurrencyAmount struct {
	Amount   float64  `json:"amount"`
	Currency Currency `json:"currency"`
}

// TradeItem is what the counterpart wants to buy: either a named item or a
// bulk currency amount. Exactly these two variants implement it.
type TradeItem interface {
	tradeItem()
}

// ItemName is the named-item variant of TradeItem.
type ItemName string

func (ItemName) tradeItem() {}

func (CurrencyAmount) tradeItem() {}

// Rectangle is a cell-space rectangle within a stash grid.
type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TradeItemLocation points at the stash tab and cells holding the listed item.
type TradeItemLocation struct {
	TabName string    `json:"tabName"`
	Bounds  Rectangle `json:"bounds"`
}

// TradeNotification is one live, recognized trade interaction. The pair
// (Type, Text) is the de-duplication key; Time is re-stamped on repeats.
type TradeNotification struct {
	Text         string             `json:"text"`
	Type         NotificationType   `json:"type"`
	Time         time.Time          `json:"time"`
	PlayerName   string             `json:"playerName"`
	Item         TradeItem          `json:"-"`
	ItemLocation *TradeItemLocation `json:"itemLocation,omitempty"`
	Price        CurrencyAmount     `json:"price"`
	Offer        string             `json:"offer,omitempty"`

	// Presence flags only move forward: unset -> InHideout -> LeftHideout.
	PlayerInHideout   bool `json:"playerInHideout"`
	PlayerLeftHideout bool `json:"playerLeftHideout"`
}

// StashGridType selects the cell count of a stash tab grid.
type StashGridType int

const (
	StashGridNormal StashGridType = iota
	StashGridQuad
)

// CellCount returns the grid dimension for the type.
func (t StashGridType) CellCount() int {
	if t == StashGridQuad {
		return 24
	}
	return 12
}

// StashGridOptions parameterizes one highlight or edit session on the
// overlay surface.
type StashGridOptions struct {
	GridType          StashGridType      `json:"gridType"`
	EditMode          bool               `json:"editMode"`
	GridBounds        *Rectangle         `json:"gridBounds,omitempty"`
	HighlightLocation *TradeItemLocation `json:"highlightLocation,omitempty"`
}

// TradeOption is a configurable quick-action button shown on a notification
// card by the overlay surface.
type TradeOption struct {
	ButtonLabel         string `json:"button_label"`
	WhisperMessage      string `json:"whisper_message"`
	KickAfterWhisper    bool   `json:"kick_after_whisper"`
	DismissNotification bool   `json:"dismiss_notification"`
}
