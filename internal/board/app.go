package board

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hay-kot/postsync/internal/board/sweep"
	"github.com/hay-kot/postsync/internal/core/config"
	"github.com/hay-kot/postsync/internal/core/kv"
	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/core/relay"
	"github.com/hay-kot/postsync/internal/data/db"
	"github.com/hay-kot/postsync/internal/data/stores"
	"github.com/hay-kot/postsync/internal/store/jsonfile"
)

// App holds the process-wide dependencies a command needs to open a tab.
// Commands receive a pointer to an App that is populated in the CLI's
// Before hook.
type App struct {
	Config *config.Config
	Store  post.Store
	// Notifications is the notification history. It is nil for the json
	// backend.
	Notifications notify.Store

	tabID  string
	dialer *jsonfile.ChannelDialer
	db     *db.DB
	log    zerolog.Logger
}

// NewApp opens the configured backend, seeds it when asked to and prepares
// the relay dialer.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		tabID:  uuid.NewString()[:8],
		log:    log,
	}

	var blob kv.KV
	switch cfg.Store.Backend {
	case config.BackendJSON:
		blob = jsonfile.NewKVFile(cfg.PostsFile())
	default:
		database, err := db.Open(cfg.DatabaseDir(), db.OpenOptions{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			BusyTimeout:  cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.db = database
		app.Notifications = stores.NewNotifyStore(database, cfg.Store.NotificationHistory)
		blob = stores.NewKVStore(database)
	}

	var store post.Store = stores.NewPostStore(blob)
	if cfg.Store.SimulateLatency {
		store = stores.WithLatency(store, stores.DefaultLatency())
	}
	app.Store = store

	if cfg.Store.Seed {
		// A failed seed is reported again when the tab loads.
		if seeded, err := stores.Seed(ctx, store, time.Now().UTC()); err != nil {
			ev := log.Warn().Err(err)
			if stores.IsCorruptionError(err) {
				ev = ev.Str("hint", "the store looks corrupt; move "+storeFile(cfg)+" aside to start over")
			}
			ev.Msg("seed posts")
		} else if seeded {
			log.Info().Msg("seeded empty store with sample posts")
		}
	}

	if cfg.Relay.Enabled {
		app.dialer = &jsonfile.ChannelDialer{
			Dir:    cfg.ChannelsDir(),
			Sender: app.tabID,
			Logger: log,
		}
	}

	return app, nil
}

// OpenTab creates this process's tab, connects it to the relay and loads
// the posts. The tab is returned even when the load fails so callers can
// inspect its state.
func (a *App) OpenTab(ctx context.Context, sink notify.Sink) (*Tab, error) {
	var dialer relay.Dialer
	if a.dialer != nil {
		dialer = a.dialer
	}

	tab := NewTab(TabOptions{
		ID:            a.tabID,
		Store:         a.Store,
		Dialer:        dialer,
		Channel:       a.Config.Relay.Channel,
		DefaultStatus: a.Config.Defaults.Status,
		Sink:          sink,
		Logger:        a.log,
	})

	return tab, tab.Open(ctx)
}

// StartSweep prunes old relay messages until ctx is cancelled. It returns
// immediately when the relay is disabled.
func (a *App) StartSweep(ctx context.Context) {
	if a.dialer == nil {
		return
	}
	sweep.Start(ctx, a.dialer, a.Config.Relay.SweepInterval, a.Config.Relay.Retention)
}

// Close releases the database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// storeFile names the file holding posts for the configured backend.
func storeFile(cfg *config.Config) string {
	if cfg.Store.Backend == config.BackendJSON {
		return cfg.PostsFile()
	}
	return filepath.Join(cfg.DataDir, db.FileName)
}
