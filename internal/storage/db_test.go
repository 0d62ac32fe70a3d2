package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exile-companion/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "notifications.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleNotification(text string) models.TradeNotification {
	return models.TradeNotification{
		Text:       text,
		Type:       models.Incoming,
		Time:       time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
		PlayerName: "Buyer",
		Item:       models.ItemName("Widget"),
		Price:      models.CurrencyAmount{Amount: 5, Currency: models.Currency{ID: "chaos", Name: "Chaos Orb"}},
		ItemLocation: &models.TradeItemLocation{
			TabName: "sale",
			Bounds:  models.Rectangle{X: 3, Y: 9, Width: 1, Height: 1},
		},
	}
}

func TestDB_RecordNotification_and_Recent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordNotification(sampleNotification("@Buyer first")))
	require.NoError(t, db.RecordNotification(sampleNotification("@Buyer second")))

	entries, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "@Buyer second", entries[0].Text)
	assert.Equal(t, "incoming", entries[0].Type)
	assert.Equal(t, "Buyer", entries[0].PlayerName)
	assert.Equal(t, "Widget", entries[0].Item)
	assert.Equal(t, 5.0, entries[0].PriceAmount)
	assert.Equal(t, "chaos", entries[0].PriceCurrency)
	assert.Nil(t, entries[0].DismissedAt)
}

func TestDB_MarkDismissed_stamps_latest_open_row(t *testing.T) {
	db := newTestDB(t)

	n := sampleNotification("@Buyer first")
	require.NoError(t, db.RecordNotification(n))
	require.NoError(t, db.MarkDismissed(n.Type, n.Text))

	entries, err := db.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].DismissedAt)

	// A second dismissal has nothing left to stamp and does not error.
	require.NoError(t, db.MarkDismissed(n.Type, n.Text))
}

func TestDB_Recent_respects_limit(t *testing.T) {
	db := newTestDB(t)
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, db.RecordNotification(sampleNotification(text)))
	}

	entries, err := db.Recent(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDB_Cleanup_removes_only_old_rows(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordNotification(sampleNotification("@Buyer fresh")))

	require.NoError(t, db.Cleanup(time.Hour))

	entries, err := db.Recent(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
