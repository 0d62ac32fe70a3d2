package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeNotification_item_variant_marshals_as_string(t *testing.T) {
	n := TradeNotification{
		Text:       "@Buyer I would like to buy your Widget listed for 5 chaos in Standard",
		Type:       Incoming,
		Time:       time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
		PlayerName: "Buyer",
		Item:       ItemName("Widget"),
		Price:      CurrencyAmount{Amount: 5, Currency: Currency{ID: "chaos", Name: "Chaos Orb"}},
	}

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.JSONEq(t, `"Widget"`, string(wire["item"]))

	var back TradeNotification
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ItemName("Widget"), back.Item)
	assert.Equal(t, n.Text, back.Text)
	assert.Equal(t, n.Price, back.Price)
}

func TestTradeNotification_bulk_variant_marshals_as_object(t *testing.T) {
	n := TradeNotification{
		Text:       "@Seller bulk",
		Type:       Outgoing,
		PlayerName: "Seller",
		Item:       CurrencyAmount{Amount: 31, Currency: Currency{ID: "alch", Name: "Orb of Alchemy"}},
		Price:      CurrencyAmount{Amount: 4, Currency: Currency{ID: "chaos", Name: "Chaos Orb"}},
	}

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var back TradeNotification
	require.NoError(t, json.Unmarshal(data, &back))

	item, ok := back.Item.(CurrencyAmount)
	require.True(t, ok)
	assert.Equal(t, 31.0, item.Amount)
	assert.Equal(t, "alch", item.Currency.ID)
}

func TestTradeNotification_missing_item_stays_nil(t *testing.T) {
	var n TradeNotification
	require.NoError(t, json.Unmarshal([]byte(`{"text":"x","type":0}`), &n))
	assert.Nil(t, n.Item)
}

func TestStashGridType_CellCount(t *testing.T) {
	assert.Equal(t, 12, StashGridNormal.CellCount())
	assert.Equal(t, 24, StashGridQuad.CellCount())
}

func TestNotificationType_String(t *testing.T) {
	assert.Equal(t, "incoming", Incoming.String())
	assert.Equal(t, "outgoing", Outgoing.String())
}
