// Package app wires the companion together: log tailing, whisper
// classification, the notification store, persistence and the surface
// endpoint.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"exile-companion/internal/classifier"
	"exile-companion/internal/currency"
	"exile-companion/internal/gamelog"
	"exile-companion/internal/ipc"
	"exile-companion/internal/models"
	"exile-companion/internal/notification"
	"exile-companion/internal/phrase"
	"exile-companion/internal/stashgrid"
	"exile-companion/internal/storage"
	"exile-companion/internal/wm"
	"exile-companion/pkg/config"
	"exile-companion/pkg/global"
	"exile-companion/pkg/logger"
	"exile-companion/pkg/notify"
)

const historyRetention = 14 * 24 * time.Hour

// Example whisper bodies injected on request so a surface can be styled
// without waiting for a real trade.
const (
	exampleItemBody = `Hi, I would like to buy your level 14 0% Steelskin listed for 1 alch in Standard (stash tab "~price 1 alch #2"; position: left 3, top 9) -- Offer 1c?`
	exampleBulkBody = `Hi, I'd like to buy your 31 Orb of Alchemy for my 4 Chaos Orb in Standard.`
)

// App is the host process: it owns the store, the grid host and the surface
// endpoint.
type App struct {
	config   *config.Config
	log      *logger.Logger
	notifier *notify.NotifyService

	classifier *classifier.Classifier
	store      *notification.Store
	db         *storage.DB
	grid       *stashgrid.Host
	server     *ipc.Server
	watcher    *gamelog.Watcher
}

// eventPayload is the wire shape of a store event broadcast to surfaces.
type eventPayload struct {
	Event        string                   `json:"event"`
	Notification models.TradeNotification `json:"notification"`
}

// configPayload is the slice of configuration a surface renders from.
type configPayload struct {
	League                  string                          `json:"league"`
	MaxVisibleNotifications int                             `json:"maxVisibleNotifications"`
	StashGrids              map[string]models.StashGridType `json:"stashGrids"`
	StashGridBounds         []models.Rectangle              `json:"stashGridBounds"`
	IncomingTradeOptions    []models.TradeOption            `json:"incomingTradeOptions"`
	OutgoingTradeOptions    []models.TradeOption            `json:"outgoingTradeOptions"`
}

// dismissPayload identifies one notification by its de-duplication key.
type dismissPayload struct {
	Type models.NotificationType `json:"type"`
	Text string                  `json:"text"`
}

// NewApp builds the host from the initialized globals.
func NewApp() (*App, error) {
	cfg, log, notifier := global.GetAll()
	log.Info("Initializing companion host")

	tables, err := loadPhraseTables(cfg, log)
	if err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open notification history: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		notifier:   notifier,
		classifier: classifier.New(tables),
		store:      notification.NewStore(currency.NewStaticResolver(), log),
		db:         db,
	}

	app.grid = stashgrid.NewHost(app.broadcastGridState, wm.NewFocuser(log).Focus, log)
	app.server = ipc.NewServer(cfg.GetListenAddr(), app.handleConn, log)
	app.watcher = gamelog.NewWatcher(cfg.GetPoeLogPath(), app.handleLine, log)

	app.store.Subscribe(app.onStoreEvent)
	return app, nil
}

func loadPhraseTables(cfg *config.Config, log *logger.Logger) ([]*phrase.Table, error) {
	var tables []*phrase.Table
	for _, name := range cfg.GetLocales() {
		tag, err := language.Parse(name)
		if err != nil {
			log.Warn("Skipping unparsable locale", "locale", name, "error", err)
			continue
		}
		table, err := phrase.Load(tag)
		if err != nil {
			log.Warn("Skipping locale without phrase table", "locale", name, "error", err)
			continue
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no usable locale in configuration: %v", cfg.GetLocales())
	}
	return tables, nil
}

// Run starts the endpoint and the log tail, then blocks until ctx is done or
// a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(); err != nil {
		return err
	}

	if err := a.db.Cleanup(historyRetention); err != nil {
		a.log.Warn("History cleanup failed", "error", err)
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- a.watcher.Watch()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	a.log.Info("Companion host running",
		"log_path", a.config.GetPoeLogPath(),
		"listen_addr", a.config.GetListenAddr())

	select {
	case sig := <-sigChan:
		a.log.Info("Received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			a.log.Error("Log watcher stopped", err)
			a.shutdown()
			return err
		}
	}

	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	a.watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("Endpoint shutdown failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("Closing history database failed", "error", err)
	}
	a.log.Info("Companion host stopped")
}

// handleLine classifies one appended log line and applies it to the store.
func (a *App) handleLine(line string) {
	switch ev := a.classifier.Classify(line).(type) {
	case *classifier.WhisperEvent:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.store.Ingest(ctx, ev); err != nil {
			a.log.Error("Failed to ingest whisper", err, "player", ev.Player)
		}
	case *classifier.PresenceEvent:
		if ev.Left {
			a.store.MarkLeft(ev.Player)
		} else {
			a.store.MarkJoined(ev.Player)
		}
	}
}

// handleConn serves one connected surface until it disconnects.
func (a *App) handleConn(ch ipc.Channel) {
	a.sendConfig(ch)
	a.sendSnapshot(ch)

	for {
		select {
		case env := <-ch.Receive():
			a.handleEnvelope(ch, env)
		case <-ch.Closed():
			return
		}
	}
}

// sendConfig hands a freshly connected surface the settings it renders from:
// trade-option buttons, grid layout and visibility limits.
func (a *App) sendConfig(ch ipc.Channel) {
	env, err := ipc.NewEnvelope(ipc.KindCompanionConfig, "", configPayload{
		League:                  a.config.GetLeague(),
		MaxVisibleNotifications: a.config.GetMaxVisibleNotifications(),
		StashGrids:              a.config.GetStashGrids(),
		StashGridBounds:         a.config.GetStashGridBounds(),
		IncomingTradeOptions:    a.config.GetIncomingTradeOptions(),
		OutgoingTradeOptions:    a.config.GetOutgoingTradeOptions(),
	})
	if err != nil {
		a.log.Error("Failed to build config envelope", err)
		return
	}
	if err := ch.Send(env); err != nil {
		a.log.Debug("Config not delivered to surface", "error", err)
	}
}

// sendSnapshot replays the live notifications to a freshly connected surface.
func (a *App) sendSnapshot(ch ipc.Channel) {
	for _, n := range a.store.Snapshot() {
		env, err := ipc.NewEnvelope(ipc.KindTradeNotification, "", eventPayload{Event: "added", Notification: n})
		if err != nil {
			a.log.Error("Failed to build snapshot envelope", err)
			return
		}
		if err := ch.Send(env); err != nil {
			return
		}
	}
}

func (a *App) handleEnvelope(ch ipc.Channel, env ipc.Envelope) {
	switch env.Kind {
	case ipc.KindStashGridOptions:
		a.grid.HandleRequest(ch, env)
	case ipc.KindStashGridComplete:
		var bounds *models.Rectangle
		if len(env.Payload) > 0 && string(env.Payload) != "null" {
			bounds = &models.Rectangle{}
			if err := json.Unmarshal(env.Payload, bounds); err != nil {
				a.log.Error("Ignoring malformed grid completion", err)
				return
			}
		}
		a.grid.Complete(bounds)
	case ipc.KindDismiss:
		var p dismissPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Error("Ignoring malformed dismiss request", err)
			return
		}
		if !a.store.Dismiss(p.Type, p.Text) {
			a.log.Debug("Dismiss for unknown notification", "type", p.Type, "text", p.Text)
		}
	case ipc.KindExample:
		a.InjectExamples()
	default:
		a.log.Debug("Ignoring envelope of unknown kind", "kind", env.Kind)
	}
}

// InjectExamples feeds one incoming item whisper and one outgoing bulk
// whisper through the regular pipeline.
func (a *App) InjectExamples() {
	now := time.Now().Format("2006/01/02 15:04:05")
	a.handleLine(fmt.Sprintf("%s 12345678 bb3 [INFO Client 12345] @From FakePlayerName: %s", now, exampleItemBody))
	a.handleLine(fmt.Sprintf("%s 12345678 bb3 [INFO Client 12345] @To FakePlayerName: %s", now, exampleBulkBody))
}

// onStoreEvent fans a store change out to the surfaces, the history database
// and the desktop.
func (a *App) onStoreEvent(ev notification.Event) {
	env, err := ipc.NewEnvelope(ipc.KindTradeNotification, "", eventPayload{
		Event:        eventName(ev.Kind),
		Notification: ev.Notification,
	})
	if err != nil {
		a.log.Error("Failed to build notification envelope", err)
	} else {
		a.server.Broadcast(env)
	}

	switch ev.Kind {
	case notification.Added:
		if err := a.db.RecordNotification(ev.Notification); err != nil {
			a.log.Warn("Failed to persist notification", "error", err)
		}
		if ev.Notification.Type == models.Incoming {
			message := fmt.Sprintf("%s wants to buy %s", ev.Notification.PlayerName, itemSummary(ev.Notification))
			if err := a.notifier.Show(message, notify.Info); err != nil {
				a.log.Debug("Desktop notification failed", "error", err)
			}
		}
	case notification.Dismissed:
		if err := a.db.MarkDismissed(ev.Notification.Type, ev.Notification.Text); err != nil {
			a.log.Warn("Failed to persist dismissal", "error", err)
		}
	}
}

// broadcastGridState mirrors the host's current grid options to every
// surface so the overlay can render or hide the grid.
func (a *App) broadcastGridState(options *models.StashGridOptions) {
	env, err := ipc.NewEnvelope(ipc.KindStashGridState, "", options)
	if err != nil {
		a.log.Error("Failed to build grid state envelope", err)
		return
	}
	a.server.Broadcast(env)
}

func eventName(kind notification.EventKind) string {
	switch kind {
	case notification.Changed:
		return "changed"
	case notification.Dismissed:
		return "dismissed"
	default:
		return "added"
	}
}

func itemSummary(n models.TradeNotification) string {
	switch item := n.Item.(type) {
	case models.ItemName:
		return string(item)
	case models.CurrencyAmount:
		return fmt.Sprintf("%g %s", item.Amount, item.Currency.Name)
	default:
		return "an item"
	}
}
