package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/response"
	ws "github.com/stemsi/quizhub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveInbox is the part of the inbox a live socket can act on.
type LiveInbox interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// WSHandler streams a user's notifications as they are delivered.
type WSHandler struct {
	rdb      *redis.Client
	inbox    LiveInbox
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, inbox LiveInbox, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		inbox:    inbox,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// NotificationStream godoc
// WS /ws/v1/notifications?token=<access_token>
// Forwards every notification published on the caller's channel. Clients may
// send {"action":"ping"} or {"action":"mark_read","notification_id":"..."}.
func (h *WSHandler) NotificationStream(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("request_id", response.RequestID(c)).
		Logger()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.UserNotificationChannel(userID.String()))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		_ = conn.WriteError("notification stream unavailable")
		return
	}

	wsLog.Info().Msg("Notification stream opened")
	h.sendUnreadCount(ctx, conn, userID)

	go h.readLoop(ctx, cancel, conn, userID, wsLog)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Notification stream closed")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			ev := ws.NotificationEvent{
				Event:        ws.EventNotification,
				Notification: json.RawMessage(msg.Payload),
			}
			if err := conn.WriteTyped(ev); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}

// readLoop handles client actions until the connection drops, then cancels
// the stream.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *ws.Conn, userID uuid.UUID, wsLog zerolog.Logger) {
	defer cancel()
	for {
		var req ws.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch req.Action {
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionMarkRead:
			id, err := uuid.Parse(req.NotificationID)
			if err != nil {
				_ = conn.WriteError("invalid notification_id")
				continue
			}
			if err := h.inbox.MarkRead(ctx, userID, id); err != nil {
				_ = conn.WriteError("notification not found")
				continue
			}
			_ = conn.WriteTyped(ws.MarkedReadResponse{Event: ws.EventMarkedRead, NotificationID: id.String()})
			h.sendUnreadCount(ctx, conn, userID)
		default:
			_ = conn.WriteError("unknown action: " + string(req.Action))
		}
	}
}

func (h *WSHandler) sendUnreadCount(ctx context.Context, conn *ws.Conn, userID uuid.UUID) {
	n, err := h.inbox.UnreadCount(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Unread count failed")
		return
	}
	_ = conn.WriteTyped(ws.UnreadCountResponse{Event: ws.EventUnreadCount, Count: n})
}
