package models

import "time"

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Enabled  bool   `json:"enabled"`
}

// MessageStatus is forward-only: SENT -> DELIVERED -> READ. It never regresses.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

type Message struct {
	ID         int64         `json:"id"`
	SenderID   int64         `json:"sender_id"`
	ReceiverID int64         `json:"receiver_id"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"created_at"`
	Status     MessageStatus `json:"status"`

	// Display names, populated on joined reads and on fan-out. Not stored.
	SenderName   string `json:"sender_name,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
}

// Notification is an ephemeral envelope pushed alongside a message to prompt
// a UI refresh. Never persisted, no delivery guarantee.
type Notification struct {
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}
