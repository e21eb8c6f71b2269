package domain

import (
	"encoding/json"
	"time"
)

// WebSocket event types from client.
const (
	EventJoin     = "join"
	EventLeave    = "leave"
	EventMessage  = "message"
	EventFeedback = "feedback"
	EventPing     = "ping"
)

// WebSocket event types to client.
const (
	EventJoined       = "joined"
	EventChatMessage  = "chat-message"
	EventClientsTotal = "clients-total"
	EventError        = "error"
	EventPong         = "pong"
)

// Error codes
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeStorageError     = "STORAGE_ERROR"
	ErrCodeNotInRoom        = "NOT_IN_ROOM"
	ErrCodeBadRequest       = "BAD_REQUEST"
)

// BaseEvent is the base structure for all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId" validate:"required"`
}

type LeaveEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId" validate:"required"`
}

// MessageEvent carries an inbound chat message. The timestamp is optional and
// assigned server-side when absent. The sender field is accepted on the wire
// for compatibility with the historical clients but the authenticated
// connection identity always wins.
type MessageEvent struct {
	Type      string     `json:"type"`
	TaskID    string     `json:"taskId" validate:"required"`
	Sender    string     `json:"sender"`
	Receiver  string     `json:"receiver" validate:"required"`
	Body      string     `json:"body" validate:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// FeedbackEvent carries an opaque client-defined payload relayed to the
// sender's rooms without persistence.
type FeedbackEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Server -> Client events

type JoinedEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Owner  string `json:"owner"`
}

type ChatMessageEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	TaskID    string    `json:"taskId"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessageEvent builds the outbound event for a persisted message.
func NewChatMessageEvent(msg *Message) *ChatMessageEvent {
	return &ChatMessageEvent{
		Type:      EventChatMessage,
		MessageID: msg.MessageID,
		TaskID:    msg.TaskID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Body:      msg.Body,
		Timestamp: msg.CreatedAt,
	}
}

type ClientsTotalEvent struct {
	Type  string `json:"type"`
	Total int    `json:"total"`
}

type FeedbackRelayEvent struct {
	Type    string          `json:"type"`
	TaskID  string          `json:"taskId"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    EventError,
		Code:    code,
		Message: message,
	}
}
