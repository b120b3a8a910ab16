package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestHubURLDerivation(t *testing.T) {
	cases := []struct {
		base string
		path string
		want string
	}{
		{"https://campusfind.example.edu/api", "/notificationHub",
			"wss://campusfind.example.edu/notificationHub"},
		{"http://localhost:5000/api", "/notificationHub",
			"ws://localhost:5000/notificationHub"},
		{"http://localhost:5000/api/", "/notificationHub",
			"ws://localhost:5000/notificationHub"},
		{"http://localhost:5000", "/notificationHub",
			"ws://localhost:5000/notificationHub"},
	}

	for _, tc := range cases {
		if got := hubURL(tc.base, tc.path); got != tc.want {
			t.Errorf("hubURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestDecodePush(t *testing.T) {
	ev, err := decodePush([]byte(`{"message":"Item claimed","title":"Claim Update","claimId":7}`))
	if err != nil {
		t.Fatalf("decodePush failed: %v", err)
	}
	if ev.Message != "Item claimed" {
		t.Errorf("Message = %q, want Item claimed", ev.Message)
	}
	if ev.Title != "Claim Update" {
		t.Errorf("Title = %q, want Claim Update", ev.Title)
	}
	if ev.Data["claimId"] != float64(7) {
		t.Errorf("Data[claimId] = %v, want 7", ev.Data["claimId"])
	}

	// Missing title is not an error; the channel applies the default.
	ev, err = decodePush([]byte(`{"message":"x"}`))
	if err != nil {
		t.Fatalf("decodePush failed: %v", err)
	}
	if ev.Title != "" {
		t.Errorf("Title = %q, want empty", ev.Title)
	}

	if _, err := decodePush([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

// newHubServer runs a scripted SignalR hub: it accepts the WebSocket,
// acknowledges the handshake, then sends the given records and keeps
// the connection open until the client leaves.
func newHubServer(t *testing.T, records []string, gotToken *string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotToken = r.URL.Query().Get("access_token")

		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()

		ctx := r.Context()

		// Consume the client handshake.
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
		if err := ws.Write(ctx, websocket.MessageText, []byte("{}\x1e")); err != nil {
			return
		}

		for _, rec := range records {
			if err := ws.Write(ctx, websocket.MessageText, []byte(rec)); err != nil {
				return
			}
		}

		// Hold the connection until the client closes it.
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDialHandshakeAndReceive(t *testing.T) {
	var gotToken string
	srv := newHubServer(t, []string{
		// Ping and invocation batched into one WebSocket message.
		`{"type":6}` + "\x1e" +
			`{"type":1,"target":"ReceiveNotification","arguments":[{"message":"Item claimed","title":"Claim Update"}]}` + "\x1e",
		// An invocation for some other hub method is ignored.
		`{"type":1,"target":"SomethingElse","arguments":[{"message":"skip"}]}` + "\x1e",
		`{"type":1,"target":"ReceiveNotification","arguments":[{"message":"x"}]}` + "\x1e",
	}, &gotToken)

	d := NewHubDialer(srv.URL+"/api", "/notificationHub", WithPingInterval(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx, "tok-123")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if gotToken != "tok-123" {
		t.Errorf("access_token = %q, want tok-123", gotToken)
	}

	ev, err := conn.ReadEvent(ctx)
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if ev.Message != "Item claimed" || ev.Title != "Claim Update" {
		t.Errorf("event = %+v, want Item claimed / Claim Update", ev)
	}

	ev, err = conn.ReadEvent(ctx)
	if err != nil {
		t.Fatalf("second ReadEvent failed: %v", err)
	}
	if ev.Message != "x" {
		t.Errorf("second event message = %q, want x", ev.Message)
	}
}

func TestDialRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.CloseNow()

		ctx := r.Context()
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
		ws.Write(ctx, websocket.MessageText, []byte(`{"error":"unauthorized"}`+"\x1e"))
	}))
	t.Cleanup(srv.Close)

	d := NewHubDialer(srv.URL, "/notificationHub", WithPingInterval(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := d.Dial(ctx, "tok"); err == nil {
		t.Fatal("expected handshake rejection error")
	} else if !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("error = %v, want to mention the server reason", err)
	}
}

func TestDialUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	d := NewHubDialer(srv.URL, "/notificationHub", WithPingInterval(0))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := d.Dial(ctx, "tok"); err == nil {
		t.Fatal("expected dial error for unreachable hub")
	}
}

func TestCloseRecordEndsConnection(t *testing.T) {
	var gotToken string
	srv := newHubServer(t, []string{
		`{"type":7,"error":"server going away"}` + "\x1e",
	}, &gotToken)

	d := NewHubDialer(srv.URL, "/notificationHub", WithPingInterval(0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx, "tok")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	_, err = conn.ReadEvent(ctx)
	if err == nil {
		t.Fatal("expected error after close record")
	}
	if !strings.Contains(err.Error(), "server going away") {
		t.Errorf("error = %v, want to carry the server reason", err)
	}
}
