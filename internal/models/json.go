package models

import (
	"encoding/json"
	"fmt"
)

// The in-memory Item field is a two-variant sum type; on the wire it is the
// loose "string | object" shape the overlay surfaces expect.

type tradeNotificationJSON TradeNotification

// MarshalJSON encodes Item as a plain string for item trades and as a
// CurrencyAmount object for bulk trades.
func (n TradeNotification) MarshalJSON() ([]byte, error) {
	aux := struct {
		tradeNotificationJSON
		Item json.RawMessage `json:"item,omitempty"`
	}{tradeNotificationJSON: tradeNotificationJSON(n)}

	switch item := n.Item.(type) {
	case nil:
	case ItemName:
		raw, err := json.Marshal(string(item))
		if err != nil {
			return nil, err
		}
		aux.Item = raw
	case CurrencyAmount:
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		aux.Item = raw
	default:
		return nil, fmt.Errorf("unknown trade item variant %T", item)
	}
	return json.Marshal(aux)
}

// UnmarshalJSON picks the Item variant from the wire shape.
func (n *TradeNotification) UnmarshalJSON(data []byte) error {
	aux := struct {
		*tradeNotificationJSON
		Item json.RawMessage `json:"item,omitempty"`
	}{tradeNotificationJSON: (*tradeNotificationJSON)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Item) == 0 || string(aux.Item) == "null" {
		n.Item = nil
		return nil
	}
	if aux.Item[0] == '"' {
		var name string
		if err := json.Unmarshal(aux.Item, &name); err != nil {
			return err
		}
		n.Item = ItemName(name)
		return nil
	}
	var amount CurrencyAmount
	if err := json.Unmarshal(aux.Item, &amount); err != nil {
		return err
	}
	n.Item = amount
	return nil
}
