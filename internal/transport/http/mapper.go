package http

import (
	"encoding/json"
	"time"

	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/proto"
	"github.com/vovakirdan/wirenotify-server/internal/store"
)

const timeLayout = time.RFC3339

// applyInbound runs a client message against the hub. It returns an event
// to send back directly, or nil when the hub already answered.
func applyInbound(hub *core.Hub, session *core.Session, inbound proto.Inbound) *core.Event {
	switch inbound.Type {
	case proto.InboundTypeAuthenticate:
		var data proto.AuthenticateData
		if len(inbound.Data) == 0 || json.Unmarshal(inbound.Data, &data) != nil {
			return core.ProtocolError(core.ErrCodeBadRequest, "authenticate requires {token}")
		}
		// The hub pushes the authenticated event, success or not.
		_, _ = hub.Authenticate(session, data.Token)
		return nil
	case proto.InboundTypePing:
		return core.Pong()
	default:
		return core.ProtocolError(core.ErrCodeInvalidMessage, "unknown message type")
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNotification:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNotification,
			Data:  payloadToProto(event.Notification),
		}
	case core.EventAuthenticated:
		data := proto.EventAuthenticatedData{}
		if event.Auth != nil {
			data = proto.EventAuthenticatedData{
				Success: event.Auth.Success,
				UserID:  event.Auth.UserID,
				Message: event.Auth.Message,
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventAuthenticated,
			Data:  data,
		}
	case core.EventPong:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventPong}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func payloadToProto(p *core.Payload) proto.NotificationPayload {
	if p == nil {
		return proto.NotificationPayload{}
	}
	return proto.NotificationPayload{
		ID:         p.ID,
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Message:    p.Message,
		IsRead:     p.IsRead,
		CreatedAt:  p.CreatedAt.UTC().Format(timeLayout),
		Sender: proto.SenderData{
			ID:       p.Sender.ID,
			Username: p.Sender.Username,
		},
	}
}

// notificationToProto renders a stored notification the same way it is pushed.
func notificationToProto(n *store.Notification) proto.NotificationPayload {
	resp := proto.NotificationPayload{
		ID:         n.ID,
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		Message:    n.Message,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt.UTC().Format(timeLayout),
		Sender:     proto.SenderData{ID: n.SenderID},
	}
	if n.Sender != nil {
		resp.Sender.Username = n.Sender.Username
	}
	return resp
}
