package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/auth"
	"github.com/vovakirdan/wirenotify-server/internal/config"
	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/proto"
	"github.com/vovakirdan/wirenotify-server/internal/service/notifications"
	"github.com/vovakirdan/wirenotify-server/internal/store/sqlite"
)

type testEnv struct {
	ts  *httptest.Server
	hub *core.Hub
}

type account struct {
	ID    int64
	Token string
}

// outboundFrame mirrors proto.Outbound with data left raw for decoding.
type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// newTestEnv starts a full server over an in-memory store.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if _, err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}

	disabledLogger := zerolog.Nop()

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	hub := core.NewHub(st, authService, &disabledLogger)
	notifService := notifications.New(st, hub)

	server := NewServer(hub, authService, notifService, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub}
}

// do sends a JSON request and returns the status and raw body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (e *testEnv) register(t *testing.T, username string) account {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/register", "", RegisterRequest{
		Username: username,
		Password: "password123",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, status, body)
	}

	var resp AuthResponse
	mustDecode(t, body, &resp)
	return account{ID: resp.User.ID, Token: resp.Token}
}

func (e *testEnv) send(t *testing.T, from account, receiverID int64, message string) (int, SendResponse) {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/notifications/send", from.Token, SendRequest{
		SenderID:   from.ID,
		ReceiverID: receiverID,
		Message:    message,
	})
	var resp SendResponse
	if status == http.StatusCreated {
		mustDecode(t, body, &resp)
	}
	return status, resp
}

func (e *testEnv) dial(ctx context.Context, t *testing.T, query string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws" + query
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func writeInbound(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	inbound := proto.Inbound{Type: typ}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal inbound: %v", err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(ctx, conn, inbound); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return frame
}

func authenticate(ctx context.Context, t *testing.T, conn *websocket.Conn, token string) proto.EventAuthenticatedData {
	t.Helper()

	writeInbound(ctx, t, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: token})
	return readAuthenticated(ctx, t, conn)
}

func readAuthenticated(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.EventAuthenticatedData {
	t.Helper()

	frame := readFrame(ctx, t, conn)
	if frame.Type != proto.OutboundTypeEvent || frame.Event != proto.EventAuthenticated {
		t.Fatalf("expected authenticated event, got %+v", frame)
	}
	var data proto.EventAuthenticatedData
	mustDecode(t, frame.Data, &data)
	return data
}

func mustDecode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", fmt.Sprintf("%.200s", data), err)
	}
}
