package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ndthang/campusfind/internal/api"
	"github.com/ndthang/campusfind/internal/credential"
	"github.com/ndthang/campusfind/internal/model"
)

// Storage is durable key-value storage for the token and identity
// blob. The keyring-backed implementation lives in internal/credential;
// tests substitute an in-memory one. No transactional guarantee exists
// across keys, so partial state must read as "logged out".
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(keys ...string) error
}

// UserCache is the slice of the response cache that logout needs:
// purging everything stored for the departing identity.
type UserCache interface {
	ClearUser(ctx context.Context, userID int) error
}

// EventKind identifies what changed about the session.
type EventKind int

const (
	// EventRestored fires after Restore resolves, authenticated or not.
	EventRestored EventKind = iota

	// EventLoggedIn fires after a successful login.
	EventLoggedIn

	// EventLoggedOut fires after logout clears the session.
	EventLoggedOut

	// EventUpdated fires when the identity is enriched or re-read
	// without the auth state itself changing.
	EventUpdated
)

// Event is a session state change delivered to observers.
type Event struct {
	Kind EventKind

	// Authenticated is the auth state after the change.
	Authenticated bool

	// Identity is a copy of the identity after the change; nil when
	// unauthenticated.
	Identity *model.User
}

// Manager is the single source of truth for "is the user authenticated,
// and as whom". It owns the bearer token: every other component only
// reads the current value.
type Manager struct {
	users   *api.Users
	storage Storage
	cache   UserCache
	log     *slog.Logger

	mu       sync.RWMutex
	token    string
	identity *model.User

	events chan Event
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCache attaches the response cache so logout can purge the
// departing user's entries.
func WithCache(c UserCache) ManagerOption {
	return func(m *Manager) { m.cache = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a session manager over the users API service and
// durable storage.
func NewManager(users *api.Users, storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		users:   users,
		storage: storage,
		log:     slog.Default(),
		events:  make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the channel carrying session state changes. Events are
// dropped rather than blocking when no one is draining the channel.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Token returns the current bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Identity returns a copy of the current identity, or nil when
// unauthenticated.
func (m *Manager) Identity() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// UserID returns the current numeric user id, or zero when
// unauthenticated.
func (m *Manager) UserID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return 0
	}
	return m.identity.UserID
}

// Restore loads the persisted session from durable storage on cold
// start. Missing, partial, or malformed state resolves to the
// unauthenticated state without surfacing an error; the caller should
// hold off rendering anything auth-dependent until this returns.
func (m *Manager) Restore() bool {
	ok := m.loadStored()
	m.emit(EventRestored)
	if ok {
		m.log.Info("session.restore.ok", slog.Int("user_id", m.UserID()))
	} else {
		m.log.Info("session.restore.none")
	}
	return ok
}

// Refresh re-reads durable storage into memory without a network call.
// Used after an out-of-band token change, such as an external
// browser-based login flow writing the token through another path.
func (m *Manager) Refresh() bool {
	ok := m.loadStored()
	m.emit(EventUpdated)
	return ok
}

// loadStored reads both keys and installs them in memory when both are
// present and well-formed. Any failure resets to unauthenticated.
func (m *Manager) loadStored() bool {
	token, tokenErr := m.storage.Get(credential.KeyToken)
	blob, blobErr := m.storage.Get(credential.KeyIdentity)

	if tokenErr != nil || blobErr != nil || token == "" || blob == "" {
		m.clearMemory()
		return false
	}

	var identity model.User
	if err := json.Unmarshal([]byte(blob), &identity); err != nil {
		m.clearMemory()
		return false
	}

	m.mu.Lock()
	m.token = token
	m.identity = &identity
	m.mu.Unlock()
	return true
}

// Login exchanges credentials for a bearer token, persists the session,
// and only then flips the in-memory state that observers react to.
// On failure the existing session is left untouched; the error is
// distinguishable as credential vs. network (api.IsCredentialError,
// api.IsNetworkError). There is no automatic retry.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.users.Login(ctx, model.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		m.log.Warn("session.login.fail", slog.String("err", err.Error()))
		return err
	}

	identity := decodeClaims(resp.Token)

	// Persist before the in-memory flip: the flip is what triggers
	// navigation, so durable state must never lag what the UI assumes.
	// A failed write is accepted as a known risk window; the fallback
	// is re-login on next cold start.
	if err := m.storage.Set(credential.KeyToken, resp.Token); err != nil {
		m.log.Warn("session.persist.token.fail", slog.String("err", err.Error()))
	}
	if blob, err := json.Marshal(identity); err == nil {
		if err := m.storage.Set(credential.KeyIdentity, string(blob)); err != nil {
			m.log.Warn("session.persist.identity.fail", slog.String("err", err.Error()))
		}
	}

	m.mu.Lock()
	m.token = resp.Token
	m.identity = &identity
	m.mu.Unlock()

	m.emit(EventLoggedIn)
	m.log.Info("session.login.ok", slog.Int("user_id", identity.UserID))
	return nil
}

// Register submits the registration form, including the optional
// student id card image. It does not establish a session: the server
// returns no token, so the caller logs in separately afterwards.
func (m *Manager) Register(
	ctx context.Context,
	req model.RegisterRequest,
	idCard *api.FileAttachment,
) (*model.User, error) {
	user, err := m.users.Register(ctx, req, idCard)
	if err != nil {
		m.log.Warn("session.register.fail", slog.String("err", err.Error()))
		return nil, err
	}
	m.log.Info("session.register.ok", slog.Int("user_id", user.UserID))
	return user, nil
}

// FetchProfile enriches the token-derived identity with the extended
// fields the profile endpoint owns (full name, role name, campus name,
// phone, verification image URL) and re-persists the identity blob.
func (m *Manager) FetchProfile(ctx context.Context) error {
	if !m.Authenticated() {
		return nil
	}

	profile, err := m.users.Profile(ctx)
	if err != nil {
		return err
	}

	if blob, err := json.Marshal(profile); err == nil {
		if err := m.storage.Set(credential.KeyIdentity, string(blob)); err != nil {
			m.log.Warn("session.persist.identity.fail", slog.String("err", err.Error()))
		}
	}

	m.mu.Lock()
	m.identity = profile
	m.mu.Unlock()

	m.emit(EventUpdated)
	return nil
}

// Logout clears durable storage for both keys, purges the departing
// user's cached responses, and resets the in-memory state. The
// in-memory reset happens even if storage cleanup fails: losing the
// token must always clear the identity with it.
func (m *Manager) Logout(ctx context.Context) error {
	uid := m.UserID()

	removeErr := m.storage.Remove(credential.KeyToken, credential.KeyIdentity)
	if removeErr != nil {
		m.log.Warn("session.logout.storage.fail", slog.String("err", removeErr.Error()))
	}

	if m.cache != nil && uid != 0 {
		if err := m.cache.ClearUser(ctx, uid); err != nil {
			m.log.Warn("session.logout.cache.fail", slog.String("err", err.Error()))
		}
	}

	m.clearMemory()
	m.emit(EventLoggedOut)
	m.log.Info("session.logout.ok")
	return removeErr
}

// clearMemory resets token and identity together.
func (m *Manager) clearMemory() {
	m.mu.Lock()
	m.token = ""
	m.identity = nil
	m.mu.Unlock()
}

// emit sends a session event without blocking. Observers that fall
// behind miss intermediate states, never the accessors' current one.
func (m *Manager) emit(kind EventKind) {
	ev := Event{
		Kind:          kind,
		Authenticated: m.Authenticated(),
		Identity:      m.Identity(),
	}
	select {
	case m.events <- ev:
	default:
	}
}
