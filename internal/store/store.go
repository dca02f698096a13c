package store

import (
	"errors"

	"github.com/linkup/messenger/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	SearchUsers(query string) ([]models.User, error)
	SetUserEnabled(id int64, enabled bool) error

	// Message operations
	SaveMessage(senderID, receiverID int64, content string) (*models.Message, error)
	GetMessage(id int64) (*models.Message, error)

	// MarkDelivered and MarkRead advance a message's status forward-only and
	// only when receiverID matches the stored receiver. They report whether a
	// row actually changed; a regressive, duplicate or foreign ack is a no-op.
	MarkDelivered(id, receiverID int64) (bool, error)
	MarkRead(id, receiverID int64) (bool, error)

	// GetConversation returns all messages exchanged between a and b in
	// ascending id order, regardless of direction.
	GetConversation(a, b int64) ([]models.Message, error)

	// GetContacts returns the distinct users the given user has exchanged
	// messages with, in either direction, de-duplicated.
	GetContacts(userID int64) ([]models.User, error)
}
