package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// The hub speaks the SignalR JSON protocol over a raw WebSocket:
// an initial handshake record, then a stream of JSON records each
// terminated by the 0x1E record separator.
const recordSeparator = 0x1e

// SignalR message types used by this client.
const (
	messageInvocation = 1
	messagePing       = 6
	messageClose      = 7
)

// notificationTarget is the hub method name carrying push events.
const notificationTarget = "ReceiveNotification"

// hubMessage is the subset of a SignalR record this client reads.
type hubMessage struct {
	Type      int               `json:"type"`
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
	Error     string            `json:"error"`
}

// HubDialer opens SignalR connections to the notification hub,
// authenticating with the bearer token as a query parameter.
type HubDialer struct {
	hubURL       string
	pingInterval time.Duration
	log          *slog.Logger
}

// HubOption configures a HubDialer.
type HubOption func(*HubDialer)

// WithPingInterval sets how often keepalive pings are sent. Zero
// disables pings.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *HubDialer) { h.pingInterval = d }
}

// WithHubLogger sets the structured logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *HubDialer) { h.log = l }
}

// NewHubDialer builds a dialer for the hub mounted at hubPath on the
// server that serves apiBaseURL. The /api suffix of the base URL is
// stripped (the hub lives at the server root) and the scheme is
// switched to ws/wss.
func NewHubDialer(apiBaseURL, hubPath string, opts ...HubOption) *HubDialer {
	h := &HubDialer{
		hubURL:       hubURL(apiBaseURL, hubPath),
		pingInterval: 15 * time.Second,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// hubURL derives the WebSocket endpoint from the API base URL.
func hubURL(apiBaseURL, hubPath string) string {
	base := strings.TrimRight(apiBaseURL, "/")
	base = strings.TrimSuffix(base, "/api")

	u, err := url.Parse(base)
	if err != nil {
		return base + hubPath
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + hubPath
	return u.String()
}

// Dial opens the WebSocket, completes the SignalR handshake, and
// starts the keepalive loop. The returned Conn delivers decoded push
// events until the connection dies or ctx is cancelled.
func (d *HubDialer) Dial(ctx context.Context, token string) (Conn, error) {
	u := d.hubURL + "?access_token=" + url.QueryEscape(token)

	ws, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing hub: %w", err)
	}

	hc := &hubConn{ws: ws, log: d.log}
	if err := hc.handshake(ctx); err != nil {
		ws.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, err
	}

	if d.pingInterval > 0 {
		go hc.pingLoop(ctx, d.pingInterval)
	}

	return hc, nil
}

// hubConn is one live SignalR connection.
type hubConn struct {
	ws      *websocket.Conn
	log     *slog.Logger
	pending [][]byte
}

// handshake sends the protocol negotiation record and waits for the
// server's acknowledgment.
func (c *hubConn) handshake(ctx context.Context) error {
	if err := c.writeRecord(ctx, []byte(`{"protocol":"json","version":1}`)); err != nil {
		return fmt.Errorf("sending handshake: %w", err)
	}

	record, err := c.readRecord(ctx)
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(record, &resp); err != nil {
		return fmt.Errorf("parsing handshake response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("hub rejected handshake: %s", resp.Error)
	}
	return nil
}

// ReadEvent blocks until the next push event arrives. Pings are
// swallowed; a close record or transport error ends the connection.
func (c *hubConn) ReadEvent(ctx context.Context) (*PushEvent, error) {
	for {
		record, err := c.readRecord(ctx)
		if err != nil {
			return nil, err
		}

		var msg hubMessage
		if err := json.Unmarshal(record, &msg); err != nil {
			c.log.Debug("hub.record.malformed", slog.String("err", err.Error()))
			continue
		}

		switch msg.Type {
		case messagePing:
			continue
		case messageClose:
			if msg.Error != "" {
				return nil, fmt.Errorf("hub closed connection: %s", msg.Error)
			}
			return nil, fmt.Errorf("hub closed connection")
		case messageInvocation:
			if msg.Target != notificationTarget || len(msg.Arguments) == 0 {
				continue
			}
			ev, err := decodePush(msg.Arguments[0])
			if err != nil {
				c.log.Debug("hub.payload.malformed", slog.String("err", err.Error()))
				continue
			}
			return ev, nil
		}
	}
}

// decodePush maps the loosely shaped hub payload onto a PushEvent.
// Only message and title have a known shape; everything else rides
// along in Data.
func decodePush(raw json.RawMessage) (*PushEvent, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	ev := &PushEvent{Data: data}
	if msg, ok := data["message"].(string); ok {
		ev.Message = msg
	}
	if title, ok := data["title"].(string); ok {
		ev.Title = title
	}
	return ev, nil
}

// pingLoop sends keepalive pings until ctx is cancelled. Write errors
// are left for the read loop to surface.
func (c *hubConn) pingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeRecord(ctx, []byte(`{"type":6}`)); err != nil {
				return
			}
		}
	}
}

// readRecord returns the next 0x1E-terminated record, reading more
// WebSocket messages as needed. One message may carry several records.
func (c *hubConn) readRecord(ctx context.Context) ([]byte, error) {
	for len(c.pending) == 0 {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, err
		}
		for _, part := range bytes.Split(data, []byte{recordSeparator}) {
			if len(part) > 0 {
				c.pending = append(c.pending, part)
			}
		}
	}

	record := c.pending[0]
	c.pending = c.pending[1:]
	return record, nil
}

// writeRecord appends the record separator and writes one record.
func (c *hubConn) writeRecord(ctx context.Context, record []byte) error {
	framed := append(append([]byte{}, record...), recordSeparator)
	return c.ws.Write(ctx, websocket.MessageText, framed)
}

// Close actively closes the WebSocket so no live handle outlives the
// token that opened it.
func (c *hubConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
