package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndthang/campusfind/internal/model"
)

// State represents the connection state of the notification channel.
type State int

const (
	// StateDisconnected is the initial state, and the state whenever
	// no token is present.
	StateDisconnected State = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means the hub connection is live.
	StateConnected

	// StateFailed means the last attempt failed; either a reconnect is
	// scheduled or, after the retry budget is spent, the channel is
	// waiting for a manual Retry.
	StateFailed
)

// String returns a short label for UI status indicators.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReasonUnavailable is the terminal status after the retry budget is
// exhausted.
const ReasonUnavailable = "notification service unavailable"

// PushEvent is the normalized payload of one inbound hub event. Message
// is the only field the push source is contractually bound to send.
type PushEvent struct {
	Message string
	Title   string
	Data    map[string]any
}

// Conn is a live hub connection delivering push events. ReadEvent
// blocks until an event arrives or the connection dies.
type Conn interface {
	ReadEvent(ctx context.Context) (*PushEvent, error)
	Close() error
}

// Dialer opens hub connections parameterized by the bearer token.
// Tests substitute a scripted implementation.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// EventKind identifies what a channel event carries.
type EventKind int

const (
	// EventStateChanged reports a connection state transition.
	EventStateChanged EventKind = iota

	// EventNotification reports a newly received notification.
	EventNotification
)

// Event is delivered to channel observers.
type Event struct {
	Kind         EventKind
	State        State
	Reason       string
	Notification *model.Notification
}

// Channel maintains a best-effort live feed of server-pushed
// notifications while a session is active. It owns one connection at a
// time, reconnects with exponential backoff on failure, gives up after
// a bounded number of consecutive failures, and presents a locally
// mutable read/unread collection ordered most-recent-first.
//
// Delivery is at-most-once: events missed while disconnected are gone.
type Channel struct {
	dialer   Dialer
	notifier Notifier
	log      *slog.Logger

	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration

	mu            sync.Mutex
	state         State
	reason        string
	failures      int
	token         string
	running       bool
	stopCh        chan struct{}
	cancel        context.CancelFunc
	conn          Conn
	notifications []model.Notification

	events chan Event
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithNotifier sets the local alert surface. Defaults to the desktop
// notifier.
func WithNotifier(n Notifier) ChannelOption {
	return func(c *Channel) { c.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ChannelOption {
	return func(c *Channel) { c.log = l }
}

// WithRetryPolicy overrides the bounded-retry policy: maxRetries
// consecutive dial failures before giving up, with delays starting at
// base and doubling per failure up to cap.
func WithRetryPolicy(maxRetries int, base, cap time.Duration) ChannelOption {
	return func(c *Channel) {
		c.maxRetries = maxRetries
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// NewChannel creates a notification channel using the given dialer.
func NewChannel(dialer Dialer, opts ...ChannelOption) *Channel {
	c := &Channel{
		dialer:      dialer,
		notifier:    DesktopNotifier{},
		log:         slog.Default(),
		maxRetries:  3,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
		state:       StateDisconnected,
		events:      make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the channel carrying state transitions and inbound
// notifications. Events are dropped rather than blocking the reconnect
// loop when no one is draining them.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// State returns the current connection state and, for StateFailed, the
// reason string surfaced to the UI.
func (c *Channel) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.reason
}

// Start opens the connection loop with the given bearer token. With an
// empty token the channel stays disconnected. Calling Start while a
// loop is already running is a no-op; callers rotating tokens must
// Stop first so the old connection is torn down before a new one is
// opened.
func (c *Channel) Start(token string) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	if token == "" {
		c.setStateLocked(StateDisconnected, "")
		c.mu.Unlock()
		return
	}
	c.token = token
	c.failures = 0
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.run(token, stopCh)
}

// Stop tears the channel down: the connection is actively closed, any
// pending reconnect timer is cancelled, and the state returns to
// Disconnected. Safe to call at any time.
func (c *Channel) Stop() {
	c.mu.Lock()
	if !c.running {
		// A terminal Failed state also holds no live resources, but
		// reset it so a later Start begins cleanly.
		c.setStateLocked(StateDisconnected, "")
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.setStateLocked(StateDisconnected, "")
	c.mu.Unlock()
}

// Retry resumes connecting after the retry budget was exhausted, with a
// fresh failure counter. It is the manual trigger the UI offers when
// the channel reports the service unavailable.
func (c *Channel) Retry() {
	c.mu.Lock()
	token := c.token
	running := c.running
	c.mu.Unlock()

	if running || token == "" {
		return
	}
	c.Start(token)
}

// run is the reconnect loop. It is the only goroutine that dials, so at
// most one connection attempt is ever in flight. It exits when stopped
// or when the retry budget is spent.
func (c *Channel) run(token string, stopCh chan struct{}) {
	for {
		if stopped(stopCh) {
			return
		}
		c.setState(StateConnecting, "")

		ctx, cancel := context.WithCancel(context.Background())
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()

		conn, err := c.dialer.Dial(ctx, token)
		if err != nil {
			cancel()
			if stopped(stopCh) {
				return
			}

			c.mu.Lock()
			c.failures++
			failures := c.failures
			exhausted := failures >= c.maxRetries
			c.mu.Unlock()

			c.log.Warn("hub.dial.fail",
				slog.Int("attempt", failures),
				slog.String("err", err.Error()))

			if exhausted {
				c.mu.Lock()
				c.running = false
				c.setStateLocked(StateFailed, ReasonUnavailable)
				c.mu.Unlock()
				c.log.Warn("hub.retries.exhausted", slog.Int("attempts", failures))
				return
			}

			c.setState(StateFailed, err.Error())
			select {
			case <-stopCh:
				return
			case <-time.After(c.backoffDelay(failures)):
			}
			continue
		}

		c.mu.Lock()
		// Stop may have run while the dial was in flight; installing the
		// connection now would flash a Connected state after teardown.
		if stopped(stopCh) {
			c.mu.Unlock()
			cancel()
			conn.Close()
			return
		}
		c.failures = 0
		c.conn = conn
		c.setStateLocked(StateConnected, "")
		c.mu.Unlock()
		c.log.Info("hub.connected")

		readErr := c.readLoop(ctx, conn)
		cancel()
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if stopped(stopCh) {
			return
		}
		if readErr != nil {
			c.log.Warn("hub.connection.lost", slog.String("err", readErr.Error()))
		}
		// The drop does not count against the retry budget; the next
		// dial failure restarts backoff from the base delay.
	}
}

// readLoop consumes events until the connection dies.
func (c *Channel) readLoop(ctx context.Context, conn Conn) error {
	for {
		ev, err := conn.ReadEvent(ctx)
		if err != nil {
			return err
		}
		c.handlePush(ev)
	}
}

// handlePush normalizes an inbound event, prepends it to the
// collection, emits it to observers, and raises the local device alert.
func (c *Channel) handlePush(ev *PushEvent) {
	title := ev.Title
	if title == "" {
		title = model.DefaultNotificationTitle
	}

	n := model.Notification{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   ev.Message,
		Read:      false,
		CreatedAt: time.Now(),
		Data:      ev.Data,
	}

	c.mu.Lock()
	c.notifications = append([]model.Notification{n}, c.notifications...)
	c.mu.Unlock()

	c.emit(Event{Kind: EventNotification, State: StateConnected, Notification: &n})

	// Fire-and-forget: the alert surface offers no acknowledgment, and
	// its failure must never reach the read loop.
	go func() {
		if err := c.notifier.Notify(n.Title, n.Message); err != nil {
			c.log.Debug("notify.local.fail", slog.String("err", err.Error()))
		}
	}()

	c.log.Debug("hub.notification", slog.String("id", n.ID))
}

// backoffDelay computes the reconnect delay after the given number of
// consecutive failures: base doubled per failure, capped.
func (c *Channel) backoffDelay(failures int) time.Duration {
	d := c.backoffBase << uint(failures-1)
	if d > c.backoffCap || d <= 0 {
		d = c.backoffCap
	}
	return d
}

// setState transitions the connection state and notifies observers.
func (c *Channel) setState(s State, reason string) {
	c.mu.Lock()
	c.setStateLocked(s, reason)
	c.mu.Unlock()
}

// setStateLocked is setState for callers already holding the mutex.
func (c *Channel) setStateLocked(s State, reason string) {
	if c.state == s && c.reason == reason {
		return
	}
	c.state = s
	c.reason = reason
	c.emit(Event{Kind: EventStateChanged, State: s, Reason: reason})
}

// emit sends an event without blocking.
func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

// stopped reports whether the stop channel has been closed.
func stopped(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}
