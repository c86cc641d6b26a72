package ws

import (
	"github.com/igronus/notify/internal/model"
)

const (
	TypeWelcome      = "welcome"
	TypeNotification = "notification"
)

// WelcomeMessage is pushed once, immediately after a successful handshake.
type WelcomeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NotificationMessage carries a delivered notification record.
type NotificationMessage struct {
	Type string             `json:"type"`
	Data model.Notification `json:"data"`
}

// NewWelcome builds the one-time greeting envelope.
func NewWelcome(message string) WelcomeMessage {
	return WelcomeMessage{Type: TypeWelcome, Message: message}
}

// NewNotification wraps a record in the delivery envelope.
func NewNotification(n model.Notification) NotificationMessage {
	return NotificationMessage{Type: TypeNotification, Data: n}
}
