// Package storage keeps a history of trade notifications in SQLite so past
// trades survive restarts.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"exile-companion/internal/models"
)

type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    text TEXT NOT NULL,
    player_name TEXT NOT NULL,
    item TEXT NOT NULL,
    price_amount REAL NOT NULL,
    price_currency TEXT NOT NULL,
    stash_tab TEXT NOT NULL DEFAULT '',
    position_left INTEGER NOT NULL DEFAULT 0,
    position_top INTEGER NOT NULL DEFAULT 0,
    offer TEXT NOT NULL DEFAULT '',
    whispered_at DATETIME NOT NULL,
    dismissed_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_key ON notifications (type, text);
`

// New opens (or creates) the database at path.
func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// RecordNotification inserts one history row for a newly added notification.
func (d *DB) RecordNotification(n models.TradeNotification) error {
	var stashTab string
	var left, top int
	if n.ItemLocation != nil {
		stashTab = n.ItemLocation.TabName
		left = n.ItemLocation.Bounds.X
		top = n.ItemLocation.Bounds.Y
	}

	query := `
		INSERT INTO notifications (
			type, text, player_name, item,
			price_amount, price_currency,
			stash_tab, position_left, position_top,
			offer, whispered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.Exec(query,
		n.Type.String(), n.Text, n.PlayerName, itemLabel(n.Item),
		n.Price.Amount, n.Price.Currency.ID,
		stashTab, left, top,
		n.Offer, n.Time)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// MarkDismissed stamps the dismissal time on the latest open row matching
// the notification's identity.
func (d *DB) MarkDismissed(typ models.NotificationType, text string) error {
	query := `
		UPDATE notifications SET dismissed_at = ?
		WHERE id = (
			SELECT id FROM notifications
			WHERE type = ? AND text = ? AND dismissed_at IS NULL
			ORDER BY id DESC LIMIT 1
		)
	`
	_, err := d.db.Exec(query, time.Now(), typ.String(), text)
	if err != nil {
		return fmt.Errorf("failed to mark notification dismissed: %w", err)
	}
	return nil
}

// Recent returns up to limit history rows, newest first, as (type, text,
// whispered_at) tuples for display.
func (d *DB) Recent(limit int) ([]HistoryEntry, error) {
	query := `
		SELECT type, text, player_name, item, price_amount, price_currency,
		       whispered_at, dismissed_at
		FROM notifications
		ORDER BY id DESC LIMIT ?
	`
	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var dismissed sql.NullTime
		if err := rows.Scan(
			&e.Type, &e.Text, &e.PlayerName, &e.Item,
			&e.PriceAmount, &e.PriceCurrency,
			&e.WhisperedAt, &dismissed); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if dismissed.Valid {
			t := dismissed.Time
			e.DismissedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup deletes history rows older than the given age.
func (d *DB) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := d.db.Exec("DELETE FROM notifications WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old notifications: %w", err)
	}
	return nil
}

// HistoryEntry is one flattened history row.
type HistoryEntry struct {
	Type          string
	Text          string
	PlayerName    string
	Item          string
	PriceAmount   float64
	PriceCurrency string
	WhisperedAt   time.Time
	DismissedAt   *time.Time
}

func itemLabel(item models.TradeItem) string {
	switch v := item.(type) {
	case models.ItemName:
		return string(v)
	case models.CurrencyAmount:
		return fmt.Sprintf("%g %s", v.Amount, v.Currency.Name)
	default:
		return ""
	}
}
