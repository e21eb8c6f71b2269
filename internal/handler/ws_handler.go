package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/letscodeshivansh/taskchat/internal/audit"
	"github.com/letscodeshivansh/taskchat/internal/auth"
	"github.com/letscodeshivansh/taskchat/internal/config"
	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/hub"
	"github.com/letscodeshivansh/taskchat/internal/logging"
	"github.com/letscodeshivansh/taskchat/internal/presence"
	"github.com/letscodeshivansh/taskchat/internal/service"
)

const sessionCookie = "token"

// WSHandler is the connection gateway: it upgrades the transport, resolves
// the session once, and wires the connection to the hub and the presence
// tracker.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	tracker  *presence.Tracker
	resolver auth.SessionResolver
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(
	h *hub.Hub,
	svc service.ChatService,
	tracker *presence.Tracker,
	resolver auth.SessionResolver,
	wsCfg config.WebSocketConfig,
) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		tracker:  tracker,
		resolver: resolver,
		wsCfg:    wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/chat/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := logging.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Resolve the session once at accept. A missing or invalid token keeps
	// the connection for presence counting only; it is denied room
	// admission later.
	identity, err := h.resolver.Resolve(h.sessionToken(r))
	if err != nil {
		identity = ""
	}

	client := hub.NewClient(uuid.New().String(), identity, h.hub, conn, h.wsCfg)

	ctx := context.Background()
	client.SetTeardown(func() {
		// Unconditional: room and presence registrations are released
		// even if any single step fails, or a leaked registration would
		// silently eat messages for future joiners of the same room key.
		h.service.HandleDisconnect(ctx, client)
		h.hub.Unregister(client)
		h.tracker.Unregister()
	})

	h.hub.Register(client)
	h.tracker.Register()
	audit.Log(ctx, audit.ActionConnect, identity, "connection accepted")

	go client.WritePump()
	go client.ReadPump(h.handleEvent)
}

func (h *WSHandler) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(sessionCookie)
}

func (h *WSHandler) handleEvent(c *hub.Client, raw []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid event format"))
		return
	}

	ctx := context.Background()
	l := logging.L()

	switch base.Type {
	case domain.EventJoin:
		var event domain.JoinEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid join event"))
			return
		}
		if err := h.service.HandleJoin(ctx, c, event.TaskID); err != nil {
			l.Debug().Err(err).Str(logging.FieldConnID, c.ID).Msg("join rejected")
		}

	case domain.EventLeave:
		var event domain.LeaveEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid leave event"))
			return
		}
		h.service.HandleLeave(ctx, c, event.TaskID)

	case domain.EventMessage:
		var event domain.MessageEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid message event"))
			return
		}
		if err := h.service.HandlePublish(ctx, c, &event); err != nil {
			l.Debug().Err(err).Str(logging.FieldConnID, c.ID).Msg("publish rejected")
		}

	case domain.EventFeedback:
		var event domain.FeedbackEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "invalid feedback event"))
			return
		}
		if err := h.service.HandleFeedback(ctx, c, event.Payload); err != nil {
			l.Debug().Err(err).Str(logging.FieldConnID, c.ID).Msg("feedback rejected")
		}

	case domain.EventPing:
		c.SendEvent(domain.BaseEvent{Type: domain.EventPong})

	default:
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "unknown event type"))
	}
}
