// Package notification owns the live trade-notification list: keyed
// de-duplication, presence transitions and dismissal. The store is
// constructed once and passed by reference; consumers read snapshots and
// subscribe to change events.
package notification

import (
	"context"
	"fmt"
	"sync"

	"exile-companion/internal/classifier"
	"exile-companion/internal/currency"
	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

// EventKind describes what happened to a notification.
type EventKind int

const (
	Added EventKind = iota
	Changed
	Dismissed
)

// Event carries a read-only snapshot of the affected notification.
type Event struct {
	Kind         EventKind
	Notification models.TradeNotification
}

// Subscriber is invoked synchronously for every store event.
type Subscriber func(Event)

type key struct {
	typ  models.NotificationType
	text string
}

// Store is the exclusive owner of the live notification list. Insertion
// order is preserved; notifications never expire on their own.
type Store struct {
	resolver currency.Resolver
	log      *logger.Logger

	mu      sync.Mutex
	items   []*models.TradeNotification
	pending map[key]chan struct{}
	subs    []Subscriber
}

// NewStore creates an empty store backed by the given currency resolver.
func NewStore(resolver currency.Resolver, log *logger.Logger) *Store {
	return &Store{
		resolver: resolver,
		log:      log,
		pending:  make(map[key]chan struct{}),
	}
}

// Subscribe registers a callback invoked on every add/change/dismiss.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns copies of the live notifications, oldest first.
func (s *Store) Snapshot() []models.TradeNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TradeNotification, len(s.items))
	for i, n := range s.items {
		out[i] = *n
	}
	return out
}

// Ingest applies one classified whisper. A whisper whose (type, text) key is
// already live only refreshes that notification's time; otherwise the
// currency token(s) are resolved and a new notification is appended.
//
// Resolution is serialized per key: an ingest that hits a key with a pending
// resolution waits for it to land and then re-runs the duplicate check, so
// two near-simultaneous identical whispers can never produce two entries.
// A resolver failure rejects only this ingestion and leaves the store
// untouched.
func (s *Store) Ingest(ctx context.Context, ev *classifier.WhisperEvent) error {
	text := fmt.Sprintf("@%s %s", ev.Player, ev.Message)
	k := key{typ: ev.Type, text: text}

	for {
		s.mu.Lock()
		if n := s.lookupLocked(k); n != nil {
			// Repeated whisper -> reset timer
			n.Time = ev.Timestamp
			snapshot := *n
			s.mu.Unlock()
			s.publish(Event{Kind: Changed, Notification: snapshot})
			return nil
		}
		wait, inflight := s.pending[k]
		if !inflight {
			s.pending[k] = make(chan struct{})
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n, err := s.build(ctx, ev, text)

	s.mu.Lock()
	done := s.pending[k]
	delete(s.pending, k)
	if err != nil {
		s.mu.Unlock()
		close(done)
		return err
	}
	s.items = append(s.items, n)
	snapshot := *n
	s.mu.Unlock()
	close(done)

	s.publish(Event{Kind: Added, Notification: snapshot})
	return nil
}

func (s *Store) build(ctx context.Context, ev *classifier.WhisperEvent, text string) (*models.TradeNotification, error) {
	n := &models.TradeNotification{
		Text:       text,
		Type:       ev.Type,
		Time:       ev.Timestamp,
		PlayerName: ev.Player,
	}

	switch trade := ev.Trade.(type) {
	case classifier.ItemTrade:
		priceCurrency, err := s.resolve(ctx, trade.CurrencyToken, ev)
		if err != nil {
			return nil, err
		}
		n.Item = models.ItemName(trade.ItemName)
		n.Price = models.CurrencyAmount{Amount: trade.PriceAmount, Currency: priceCurrency}
		n.Offer = trade.Offer
		if trade.HasLocation {
			n.ItemLocation = &models.TradeItemLocation{
				TabName: trade.StashTab,
				Bounds:  models.Rectangle{X: trade.Left, Y: trade.Top, Width: 1, Height: 1},
			}
		}
	case classifier.BulkTrade:
		itemCurrency, err := s.resolve(ctx, trade.ItemToken, ev)
		if err != nil {
			return nil, err
		}
		priceCurrency, err := s.resolve(ctx, trade.PriceToken, ev)
		if err != nil {
			return nil, err
		}
		n.Item = models.CurrencyAmount{Amount: trade.ItemAmount, Currency: itemCurrency}
		n.Price = models.CurrencyAmount{Amount: trade.PriceAmount, Currency: priceCurrency}
		n.Offer = trade.Offer
	default:
		return nil, fmt.Errorf("whisper event carries no trade body")
	}

	return n, nil
}

func (s *Store) resolve(ctx context.Context, token string, ev *classifier.WhisperEvent) (models.Currency, error) {
	resolved, err := s.resolver.Search(ctx, token, ev.Locale)
	if err != nil {
		return models.Currency{}, fmt.Errorf("currency lookup for %q failed: %w", token, err)
	}
	if resolved == nil {
		s.log.Debug("Unresolved currency token, using fallback", "token", token)
		return currency.Fallback(token), nil
	}
	return *resolved, nil
}

// MarkJoined flags every notification of the player that has not seen a
// presence event yet. Presence only moves forward.
func (s *Store) MarkJoined(playerName string) {
	s.transition(playerName, func(n *models.TradeNotification) bool {
		if n.PlayerInHideout || n.PlayerLeftHideout {
			return false
		}
		n.PlayerInHideout = true
		return true
	})
}

// MarkLeft flags every notification of the player that is currently marked
// in the hideout. Without a prior join this is a no-op.
func (s *Store) MarkLeft(playerName string) {
	s.transition(playerName, func(n *models.TradeNotification) bool {
		if !n.PlayerInHideout || n.PlayerLeftHideout {
			return false
		}
		n.PlayerInHideout = false
		n.PlayerLeftHideout = true
		return true
	})
}

func (s *Store) transition(playerName string, apply func(*models.TradeNotification) bool) {
	var changed []models.TradeNotification
	s.mu.Lock()
	for _, n := range s.items {
		if n.PlayerName != playerName {
			continue
		}
		if apply(n) {
			changed = append(changed, *n)
		}
	}
	s.mu.Unlock()

	for _, snapshot := range changed {
		s.publish(Event{Kind: Changed, Notification: snapshot})
	}
}

// Dismiss removes the notification with the given key from the live set.
// Dismissal is terminal: later presence events no longer affect it.
func (s *Store) Dismiss(typ models.NotificationType, text string) bool {
	s.mu.Lock()
	for i, n := range s.items {
		if n.Type != typ || n.Text != text {
			continue
		}
		snapshot := *n
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.mu.Unlock()
		s.publish(Event{Kind: Dismissed, Notification: snapshot})
		return true
	}
	s.mu.Unlock()
	return false
}

func (s *Store) lookupLocked(k key) *models.TradeNotification {
	for _, n := range s.items {
		if n.Type == k.typ && n.Text == k.text {
			return n
		}
	}
	return nil
}

func (s *Store) publish(ev Event) {
	s.mu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
