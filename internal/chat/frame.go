package chat

import "github.com/linkup/messenger/internal/models"

// Frame types pushed to connected clients.
const (
	FrameMessage      = "message"      // inbound message for this user
	FrameNotification = "notification" // ephemeral UI-refresh nudge
	FrameSent         = "sent"         // echo of a stored message to its sender
	FrameError        = "error"        // operation rejected, sent to the offending connection only
)

// Frame is the server-to-client envelope carried over a destination.
type Frame struct {
	Type         string               `json:"type"`
	Message      *models.Message      `json:"message,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	Error        string               `json:"error,omitempty"`
}
