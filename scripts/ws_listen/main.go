package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirenotify-server/internal/proto"
)

type session struct {
	api    string
	token  string
	userID int64
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_listen: %v", err)
		os.Exit(1)
	}
}

func run() error {
	api := flag.String("api", "http://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "username")
	password := flag.String("password", "", "password")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	s, err := login(ctx, *api, *user, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	wsURL := strings.Replace(*api, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	authPayload, err := json.Marshal(proto.AuthenticateData{Token: s.token})
	if err != nil {
		return fmt.Errorf("marshal authenticate: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeAuthenticate, Data: authPayload}); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	fmt.Printf("Connected to %s as %s (id %d)\n", *api, *user, s.userID)
	fmt.Println("Type \"<receiverId> <message>\" and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, s)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if frame.Error != nil {
			fmt.Printf("error %s: %s\n", frame.Error.Code, frame.Error.Msg)
			continue
		}

		switch frame.Event {
		case proto.EventNotification:
			var n proto.NotificationPayload
			if err := json.Unmarshal(frame.Data, &n); err != nil {
				log.Printf("unmarshal notification: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", n.CreatedAt, n.Sender.Username, n.Message)
		case proto.EventAuthenticated:
			var ack proto.EventAuthenticatedData
			if err := json.Unmarshal(frame.Data, &ack); err != nil {
				log.Printf("unmarshal authenticated: %v", err)
				continue
			}
			if !ack.Success {
				fmt.Printf("authentication failed: %s\n", ack.Message)
				continue
			}
			fmt.Println("online, waiting for notifications")
		default:
			fmt.Printf("event=%s data=%s\n", frame.Event, frame.Data)
		}
	}
}

func writeLoop(ctx context.Context, s *session) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			to, text, found := strings.Cut(strings.TrimSpace(line), " ")
			if !found {
				continue
			}
			receiverID, err := strconv.ParseInt(to, 10, 64)
			if err != nil {
				fmt.Println("receiver must be a numeric user id")
				continue
			}

			outcome, err := s.send(ctx, receiverID, text)
			if err != nil {
				log.Printf("send error: %v", err)
				continue
			}
			fmt.Printf("-> %d (%s)\n", receiverID, outcome)
		}
	}
}

func login(ctx context.Context, api, username, password string) (*session, error) {
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := postJSON(ctx, api+"/api/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &resp); err != nil {
		return nil, err
	}
	return &session{api: api, token: resp.Token, userID: resp.User.ID}, nil
}

func (s *session) send(ctx context.Context, receiverID int64, text string) (string, error) {
	var resp struct {
		Outcome string `json:"outcome"`
	}
	err := postJSON(ctx, s.api+"/api/notifications/send", s.token, map[string]any{
		"senderId":   s.userID,
		"receiverId": receiverID,
		"message":    text,
	}, &resp)
	return resp.Outcome, err
}

func postJSON(ctx context.Context, target, token string, body, out any) error {
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
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}
