package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/config"
	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/proto"
	"github.com/vovakirdan/wirenotify-server/internal/utils"
)

var errAuthTimeout = errors.New("authentication timeout")

// WSHandler upgrades HTTP connections and bridges them to the hub.
type WSHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	token := credentialFromRequest(r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), h.cfg.PushBuffer)
	session := h.hub.Connect(client)
	defer func() {
		client.Close()
		h.hub.Disconnect(session)
	}()

	if token != "" {
		_, _ = h.hub.Authenticate(session, token)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.authDeadline(ctx, session)
	}()

	err = <-errCh

	// Drop the handle before the close handshake, which may wait on the peer.
	client.Close()
	h.hub.Disconnect(session)

	if errors.Is(err, errAuthTimeout) {
		h.log.Debug().Str("conn_id", client.ID()).Msg("closing unauthenticated connection")
		conn.Close(websocket.StatusPolicyViolation, "authentication timeout")
	}
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	if errors.Is(err, errAuthTimeout) {
		return
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, client *core.Client) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID()).Msg("read ws inbound")
			return err
		}

		var reply *core.Event
		var inbound proto.Inbound
		switch {
		case typ != websocket.MessageText:
			reply = core.ProtocolError(core.ErrCodeBadRequest, "text frames only")
		case json.Unmarshal(data, &inbound) != nil:
			reply = core.ProtocolError(core.ErrCodeBadRequest, "invalid json")
		default:
			reply = applyInbound(h.hub, session, inbound)
		}

		if reply != nil {
			if err := client.Push(reply); err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID()).Msg("drop reply")
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID()).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// authDeadline fails with errAuthTimeout if the session is still
// unauthenticated once AuthTimeout has passed.
func (h *WSHandler) authDeadline(ctx context.Context, session *core.Session) error {
	if h.cfg.AuthTimeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	timer := time.NewTimer(h.cfg.AuthTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		if session.State() == core.StateUnauthenticated {
			return errAuthTimeout
		}
		<-ctx.Done()
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// credentialFromRequest picks a token from the upgrade request, if any.
func credentialFromRequest(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}
