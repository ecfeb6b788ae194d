package websocket

import (
	"encoding/json"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionMarkRead Action = "mark_read"
)

// Request is any client message. NotificationID is only read for mark_read.
type Request struct {
	Action         Action `json:"action"`
	NotificationID string `json:"notification_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventNotification Event = "notification"
	EventMarkedRead   Event = "marked_read"
	EventUnreadCount  Event = "unread_count"
	EventPong         Event = "pong"
	EventError        Event = "error"
)

// NotificationEvent carries one notification as published on the user's
// channel.
type NotificationEvent struct {
	Event        Event           `json:"event"`
	Notification json.RawMessage `json:"notification"`
}

type MarkedReadResponse struct {
	Event          Event  `json:"event"`
	NotificationID string `json:"notification_id"`
}

type UnreadCountResponse struct {
	Event Event `json:"event"`
	Count int   `json:"count"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
