package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/vovakirdan/wirenotify-server/internal/proto"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type sendResponse struct {
	Notification proto.NotificationPayload `json:"notification"`
	Outcome      string                    `json:"outcome"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	api := flag.String("api", "http://localhost:8080", "server base URL")
	text := flag.String("text", "hello from smoke test", "notification text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	suffix := uuid.NewString()[:8]
	receiver, err := register(ctx, *api, "rcv-"+suffix)
	if err != nil {
		return fmt.Errorf("register receiver: %w", err)
	}
	sender, err := register(ctx, *api, "snd-"+suffix)
	if err != nil {
		return fmt.Errorf("register sender: %w", err)
	}

	wsURL := strings.Replace(*api, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(receiver.Token)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var ack proto.Outbound
	if err := wsjson.Read(ctx, conn, &ack); err != nil {
		return fmt.Errorf("read auth ack: %w", err)
	}
	fmt.Printf("Received outbound: type=%s event=%s data=%v\n", ack.Type, ack.Event, ack.Data)

	sent, err := send(ctx, *api, sender, receiver.User.ID, *text)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("Sent notification %d: outcome=%s\n", sent.Notification.ID, sent.Outcome)

	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if frame.Error != nil {
			fmt.Printf("Error: %s %s\n", frame.Error.Code, frame.Error.Msg)
			continue
		}
		if frame.Event != proto.EventNotification {
			continue
		}

		var payload proto.NotificationPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return fmt.Errorf("unmarshal notification: %w", err)
		}
		fmt.Printf("Notification: id=%d from=%s message=%q created=%s\n",
			payload.ID, payload.Sender.Username, payload.Message, payload.CreatedAt)
		if payload.Message != *text {
			return fmt.Errorf("unexpected message %q", payload.Message)
		}
		return nil
	}
}

func register(ctx context.Context, api, username string) (*authResponse, error) {
	var resp authResponse
	err := postJSON(ctx, api+"/api/register", "", map[string]string{
		"username": username,
		"password": "smoke-password",
	}, http.StatusCreated, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func send(ctx context.Context, api string, from *authResponse, receiverID int64, text string) (*sendResponse, error) {
	var resp sendResponse
	err := postJSON(ctx, api+"/api/notifications/send", from.Token, map[string]any{
		"senderId":   from.User.ID,
		"receiverId": receiverID,
		"message":    text,
	}, http.StatusCreated, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func postJSON(ctx context.Context, target, token string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s: status %d: %s", target, resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}
