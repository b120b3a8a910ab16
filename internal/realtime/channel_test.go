package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ndthang/campusfind/internal/model"
)

// fakeConn is a scripted hub connection fed by a test.
type fakeConn struct {
	events chan *PushEvent
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan *PushEvent, 16),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadEvent(ctx context.Context) (*PushEvent, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.done:
		return nil, errors.New("connection dropped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() { c.Close() }

// fakeDialer replays a script of dial outcomes: a nil entry fails the
// attempt, a conn entry succeeds with that connection. Once the script
// is exhausted every further dial fails.
type fakeDialer struct {
	mu     sync.Mutex
	script []*fakeConn
	dials  int
	tokens []string
}

func (d *fakeDialer) Dial(ctx context.Context, token string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	d.tokens = append(d.tokens, token)
	if i < len(d.script) && d.script[i] != nil {
		return d.script[i], nil
	}
	return nil, errors.New("dial refused")
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recordingNotifier captures local alert invocations.
type recordingNotifier struct {
	mu    sync.Mutex
	calls [][2]string
}

func (n *recordingNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, [2]string{title, message})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// waitFor polls until cond holds or the timeout elapses.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestChannel(d Dialer, opts ...ChannelOption) *Channel {
	base := []ChannelOption{
		WithRetryPolicy(3, time.Millisecond, 10*time.Millisecond),
		WithNotifier(NopNotifier{}),
	}
	return NewChannel(d, append(base, opts...)...)
}

// stopMidDialDialer calls Stop while the dial is in flight, then hands
// back a live connection anyway.
type stopMidDialDialer struct {
	ch   *Channel
	conn *fakeConn
}

func (d *stopMidDialDialer) Dial(ctx context.Context, token string) (Conn, error) {
	d.ch.Stop()
	return d.conn, nil
}

func TestStopDuringDialDiscardsConnection(t *testing.T) {
	conn := newFakeConn()
	dialer := &stopMidDialDialer{conn: conn}
	c := newTestChannel(dialer)
	dialer.ch = c

	c.Start("tok")

	waitFor(t, "connection closed", func() bool {
		select {
		case <-conn.done:
			return true
		default:
			return false
		}
	})

	if s, _ := c.State(); s != StateDisconnected {
		t.Errorf("state = %v, want Disconnected after Stop won the race", s)
	}

	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == EventStateChanged && ev.State == StateConnected {
				t.Error("observed Connected event after Stop")
			}
		default:
			return
		}
	}
}

func TestStartWithoutTokenStaysDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestChannel(dialer)

	c.Start("")

	if s, _ := c.State(); s != StateDisconnected {
		t.Errorf("state = %v, want disconnected", s)
	}
	if dialer.dialCount() != 0 {
		t.Errorf("dials = %d, want 0", dialer.dialCount())
	}
}

func TestExhaustsRetriesAfterThreeFailures(t *testing.T) {
	dialer := &fakeDialer{} // empty script: every dial fails
	c := newTestChannel(dialer)

	c.Start("tok")

	waitFor(t, "exhausted state", func() bool {
		s, reason := c.State()
		return s == StateFailed && reason == ReasonUnavailable
	})

	if got := dialer.dialCount(); got != 3 {
		t.Errorf("dials = %d, want exactly 3", got)
	}

	// No further automatic attempts once exhausted.
	time.Sleep(50 * time.Millisecond)
	if got := dialer.dialCount(); got != 3 {
		t.Errorf("dials after exhaustion = %d, want 3", got)
	}
}

func TestManualRetryResumesAfterExhaustion(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestChannel(dialer)

	c.Start("tok")
	waitFor(t, "exhausted state", func() bool {
		_, reason := c.State()
		return reason == ReasonUnavailable
	})

	c.Retry()

	waitFor(t, "retry attempts", func() bool {
		return dialer.dialCount() > 3
	})
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	conn := newFakeConn()
	// Fail twice, succeed, then fail forever.
	dialer := &fakeDialer{script: []*fakeConn{nil, nil, conn}}
	c := newTestChannel(dialer)

	c.Start("tok")

	waitFor(t, "connected state", func() bool {
		s, _ := c.State()
		return s == StateConnected
	})
	if got := dialer.dialCount(); got != 3 {
		t.Fatalf("dials to connect = %d, want 3", got)
	}

	conn.drop()

	// With the counter reset on success, the channel gets a fresh
	// budget of 3 attempts before giving up: 6 dials in total. Without
	// the reset it would stop after a single post-drop failure.
	waitFor(t, "exhausted after drop", func() bool {
		_, reason := c.State()
		return reason == ReasonUnavailable
	})
	if got := dialer.dialCount(); got != 6 {
		t.Errorf("total dials = %d, want 6", got)
	}
}

func TestStopCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	c := newTestChannel(dialer, WithRetryPolicy(3, time.Hour, time.Hour))

	c.Start("tok")
	waitFor(t, "first failed attempt", func() bool {
		return dialer.dialCount() == 1
	})

	c.Stop()

	if s, _ := c.State(); s != StateDisconnected {
		t.Errorf("state after stop = %v, want disconnected", s)
	}
	time.Sleep(20 * time.Millisecond)
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("dials after stop = %d, want 1", got)
	}
}

func TestStopClosesLiveConnection(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	c := newTestChannel(dialer)

	c.Start("tok")
	waitFor(t, "connected state", func() bool {
		s, _ := c.State()
		return s == StateConnected
	})

	c.Stop()

	select {
	case <-conn.done:
	case <-time.After(time.Second):
		t.Fatal("connection not actively closed by Stop")
	}
	if s, _ := c.State(); s != StateDisconnected {
		t.Errorf("state after stop = %v, want disconnected", s)
	}
}

func TestDialUsesToken(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	c := newTestChannel(dialer)

	c.Start("bearer-xyz")
	waitFor(t, "dial", func() bool { return dialer.dialCount() == 1 })

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	if dialer.tokens[0] != "bearer-xyz" {
		t.Errorf("dial token = %q, want bearer-xyz", dialer.tokens[0])
	}
}

func TestPushEventsAreNormalizedAndPrepended(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	notifier := &recordingNotifier{}
	c := newTestChannel(dialer, WithNotifier(notifier))

	c.Start("tok")
	waitFor(t, "connected state", func() bool {
		s, _ := c.State()
		return s == StateConnected
	})

	conn.events <- &PushEvent{
		Message: "Item claimed",
		Title:   "Claim Update",
		Data:    map[string]any{"claimId": float64(7)},
	}
	waitFor(t, "first notification", func() bool {
		return len(c.Notifications()) == 1
	})

	first := c.Notifications()[0]
	if first.Message != "Item claimed" {
		t.Errorf("Message = %q, want Item claimed", first.Message)
	}
	if first.Title != "Claim Update" {
		t.Errorf("Title = %q, want Claim Update", first.Title)
	}
	if first.Read {
		t.Error("new notification must arrive unread")
	}
	if first.ID == "" {
		t.Error("notification must get a locally assigned id")
	}
	if first.CreatedAt.IsZero() {
		t.Error("notification must be stamped with local receipt time")
	}

	// A second event is prepended, not appended.
	conn.events <- &PushEvent{Message: "Second"}
	waitFor(t, "second notification", func() bool {
		return len(c.Notifications()) == 2
	})
	if got := c.Notifications()[0].Message; got != "Second" {
		t.Errorf("first element = %q, want Second (most recent first)", got)
	}

	waitFor(t, "local alerts", func() bool { return notifier.count() == 2 })
}

func TestMissingTitleGetsDefault(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	c := newTestChannel(dialer)

	c.Start("tok")
	waitFor(t, "connected state", func() bool {
		s, _ := c.State()
		return s == StateConnected
	})

	conn.events <- &PushEvent{Message: "x"}
	waitFor(t, "notification", func() bool {
		return len(c.Notifications()) == 1
	})

	if got := c.Notifications()[0].Title; got != model.DefaultNotificationTitle {
		t.Errorf("Title = %q, want default %q", got, model.DefaultNotificationTitle)
	}
}

// pushNotifications injects n notifications through a connected fake
// conn and waits for them to land.
func pushNotifications(t *testing.T, c *Channel, conn *fakeConn, messages ...string) {
	t.Helper()
	for _, m := range messages {
		conn.events <- &PushEvent{Message: m}
	}
	waitFor(t, "notifications to land", func() bool {
		return len(c.Notifications()) >= len(messages)
	})
}

func newConnectedChannel(t *testing.T) (*Channel, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	c := newTestChannel(dialer)
	c.Start("tok")
	waitFor(t, "connected state", func() bool {
		s, _ := c.State()
		return s == StateConnected
	})
	t.Cleanup(c.Stop)
	return c, conn
}

func TestMarkReadIsIdempotent(t *testing.T) {
	c, conn := newConnectedChannel(t)
	pushNotifications(t, c, conn, "a", "b")

	id := c.Notifications()[0].ID

	c.MarkRead(id)
	after1 := c.Notifications()
	count1 := c.UnreadCount()

	c.MarkRead(id)
	after2 := c.Notifications()
	count2 := c.UnreadCount()

	if count1 != 1 || count2 != 1 {
		t.Errorf("unread counts = %d, %d; want 1, 1", count1, count2)
	}
	for i := range after1 {
		if after1[i].Read != after2[i].Read {
			t.Error("second MarkRead changed state")
		}
	}

	// Unknown id is a no-op, not an error.
	c.MarkRead("no-such-id")
	if c.UnreadCount() != 1 {
		t.Error("MarkRead with unknown id mutated the collection")
	}
}

func TestUnreadCountIsLive(t *testing.T) {
	c, conn := newConnectedChannel(t)
	pushNotifications(t, c, conn, "a", "b", "c")

	if got := c.UnreadCount(); got != 3 {
		t.Errorf("UnreadCount = %d, want 3", got)
	}

	c.MarkRead(c.Notifications()[1].ID)
	if got := c.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount after MarkRead = %d, want 2", got)
	}

	c.MarkAllRead()
	if got := c.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount after MarkAllRead = %d, want 0", got)
	}
}

func TestClearAll(t *testing.T) {
	c, conn := newConnectedChannel(t)
	pushNotifications(t, c, conn, "a", "b")

	c.ClearAll()

	if got := len(c.Notifications()); got != 0 {
		t.Errorf("len(Notifications) after ClearAll = %d, want 0", got)
	}
	if got := c.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount after ClearAll = %d, want 0", got)
	}
}

func TestNotificationEventsEmitted(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{script: []*fakeConn{conn}}
	c := newTestChannel(dialer)

	c.Start("tok")
	t.Cleanup(c.Stop)

	// Drain state transitions until connected, then expect the
	// notification event.
	conn.events <- &PushEvent{Message: "hello"}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == EventNotification {
				if ev.Notification == nil || ev.Notification.Message != "hello" {
					t.Fatalf("notification event = %+v", ev)
				}
				return
			}
		case <-deadline:
			t.Fatal("no notification event observed")
		}
	}
}
