package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/sprintsync/internal/cache"
	"github.com/nhle/sprintsync/internal/credential"
	"github.com/nhle/sprintsync/internal/engine"
	"github.com/nhle/sprintsync/internal/gateway"
	"github.com/nhle/sprintsync/internal/model"
	"github.com/nhle/sprintsync/internal/session"
	"github.com/nhle/sprintsync/internal/store"
)

const storeTimeout = 5 * time.Second

// Runtime wires the session, gateway, cache, engine and offline store
// together. The TUI and the CLI commands share it.
type Runtime struct {
	Config   *model.AppConfig
	Store    store.Store
	Sessions *session.Store
	Gateway  *gateway.Client
	Cache    *cache.Cache
	Engine   *engine.Engine

	// ConfigPath is where the settings view saves changes. Empty means
	// the default location.
	ConfigPath string

	notices chan model.Notification
	closers []func() error
}

// Open builds a Runtime from cfg: it opens the SQLite cache, restores a
// persisted session when enabled and seeds the task cache from the last
// snapshot.
func Open(cfg *model.AppConfig) (*Runtime, error) {
	dbPath := cfg.Cache.DBPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	var persister session.Persister
	if cfg.Session.Persist {
		creds, err := credential.Open(model.ConfigDir())
		if err != nil {
			log.Printf("app: keyring unavailable, session will not persist: %v", err)
		} else {
			persister = session.NewKeyringPersister(creds)
		}
	}

	rt, err := newRuntime(cfg, st, persister)
	if err != nil {
		st.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, st.Close)
	return rt, nil
}

// SaveConfig writes cfg to the config file and updates the settings that
// take effect without a restart.
func (rt *Runtime) SaveConfig(cfg model.AppConfig) error {
	path := rt.ConfigPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	if err := model.SaveConfig(path, &cfg); err != nil {
		return err
	}
	rt.Config.Display = cfg.Display
	return nil
}

// ProbeAPI checks that an API answers at baseURL.
func (rt *Runtime) ProbeAPI(ctx context.Context, baseURL string) error {
	return gateway.NewClient(baseURL, rt.Sessions, gateway.WithTimeout(rt.Config.API.Timeout())).Ping(ctx)
}

func newRuntime(cfg *model.AppConfig, st store.Store, persister session.Persister, opts ...engine.Option) (*Runtime, error) {
	sessions := session.NewStore(persister)
	if err := sessions.Restore(); err != nil {
		log.Printf("app: restoring session: %v", err)
	}

	rt := &Runtime{
		Config:   cfg,
		Store:    st,
		Sessions: sessions,
		Gateway:  gateway.NewClient(cfg.API.BaseURL, sessions, gateway.WithTimeout(cfg.API.Timeout())),
		Cache:    cache.New(),
		notices:  make(chan model.Notification, 32),
	}

	opts = append([]engine.Option{
		engine.WithNotifier(engine.NotifierFunc(rt.notify)),
		engine.WithPersister(st),
	}, opts...)
	rt.Engine = engine.New(rt.Cache, rt.Gateway, sessions, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	tasks, err := st.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading offline snapshot: %w", err)
	}
	rt.Engine.Seed(tasks)

	return rt, nil
}

// notify records a mutation outcome in the notification log and hands it
// to the UI. A full channel drops the toast; the log keeps the record.
func (r *Runtime) notify(n model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.Store.CreateNotification(ctx, n); err != nil {
		log.Printf("app: saving notification: %v", err)
	}

	select {
	case r.notices <- n:
	default:
	}
}

// Notifications delivers every mutation outcome.
func (r *Runtime) Notifications() <-chan model.Notification {
	return r.notices
}

// Login signs in and stores the session.
func (r *Runtime) Login(ctx context.Context, username, password string) (model.Session, error) {
	return session.Login(ctx, r.Gateway, r.Sessions, username, password)
}

// Register creates an account and signs in with it.
func (r *Runtime) Register(ctx context.Context, reg session.Registration) (model.Session, error) {
	return session.Register(ctx, r.Gateway, r.Sessions, reg)
}

// Logout clears the session and the offline snapshot, which belongs to
// the signed-out user.
func (r *Runtime) Logout(ctx context.Context) error {
	r.Sessions.Clear()
	if err := r.Store.ClearTasks(ctx); err != nil {
		return fmt.Errorf("clearing offline snapshot: %w", err)
	}
	return nil
}

// Close waits briefly for in-flight mutations and closes the store.
func (r *Runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.Engine.Drain(ctx); err != nil {
		log.Printf("app: %d mutation(s) still pending at exit", r.Engine.Pending())
	}

	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
