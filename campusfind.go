// Package campusfind assembles the lost-and-found client SDK from its
// configuration: credential storage, the REST services, the response
// cache, the session manager, and the realtime notification channel.
package campusfind

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ndthang/campusfind/internal/api"
	"github.com/ndthang/campusfind/internal/cache"
	"github.com/ndthang/campusfind/internal/credential"
	"github.com/ndthang/campusfind/internal/model"
	"github.com/ndthang/campusfind/internal/realtime"
	"github.com/ndthang/campusfind/internal/session"
)

// App is the wired client. Components share one token source, one
// response cache, and one logger; the session manager is the only
// writer of the credential store.
type App struct {
	Config     *model.AppConfig
	API        *api.Client
	Users      *api.Users
	LostItems  *api.LostItems
	FoundItems *api.FoundItems
	Claims     *api.Claims
	Catalog    *api.Catalog
	Session    *session.Manager
	Realtime   *realtime.Channel

	storage session.Storage
	cache   *cache.Cache
	log     *slog.Logger
}

// Option configures the assembly.
type Option func(*App)

// WithStorage replaces the keyring-backed credential store.
func WithStorage(s session.Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// New wires the client from the given configuration. Timeouts, the hub
// retry policy, the cache location, and the local alert preference all
// come from cfg; see model.LoadConfig.
func New(cfg *model.AppConfig, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.storage == nil {
		a.storage = credential.NewKeyring()
	}

	cachePath := cfg.Cache.Path
	if cachePath == "" {
		cachePath = model.DefaultCachePath()
	}
	if dir := filepath.Dir(cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	db, err := cache.Open(cachePath)
	if err != nil {
		return nil, err
	}
	a.cache = db

	timeout := time.Duration(cfg.API.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	a.API = api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: timeout}),
		api.WithTokenSource(func() (string, error) {
			return a.storage.Get(credential.KeyToken)
		}),
		api.WithCache(db, func() int {
			if a.Session == nil {
				return 0
			}
			return a.Session.UserID()
		}),
		api.WithLogger(a.log),
	)

	a.Users = api.NewUsers(a.API)
	a.LostItems = api.NewLostItems(a.API)
	a.FoundItems = api.NewFoundItems(a.API)
	a.Claims = api.NewClaims(a.API)
	a.Catalog = api.NewCatalog(a.API)

	a.Session = session.NewManager(a.Users, a.storage,
		session.WithCache(db),
		session.WithLogger(a.log),
	)

	dialer := realtime.NewHubDialer(cfg.API.BaseURL, cfg.Hub.Path,
		realtime.WithPingInterval(time.Duration(cfg.Hub.PingIntervalSec)*time.Second),
		realtime.WithHubLogger(a.log),
	)

	var notifier realtime.Notifier = realtime.DesktopNotifier{}
	if !cfg.Notify.Enabled {
		notifier = realtime.NopNotifier{}
	}
	a.Realtime = realtime.NewChannel(dialer,
		realtime.WithRetryPolicy(
			cfg.Hub.MaxRetries,
			time.Duration(cfg.Hub.BackoffBaseMS)*time.Millisecond,
			30*time.Second,
		),
		realtime.WithNotifier(notifier),
		realtime.WithLogger(a.log),
	)

	return a, nil
}

// StartRealtime opens the notification channel with the current
// session token. A no-op when no session is active.
func (a *App) StartRealtime() {
	a.Realtime.Start(a.Session.Token())
}

// Close stops the realtime channel and releases the response cache.
func (a *App) Close() error {
	a.Realtime.Stop()
	return a.cache.Close()
}
