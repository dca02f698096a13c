// Package chat implements the message routing core: accept a message from a
// bound session, persist it, fan it out to the receiver's live destinations,
// and advance per-message delivery state on acknowledgment.
package chat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/linkup/messenger/internal/metrics"
	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/session"
	"github.com/linkup/messenger/internal/store"
)

// MaxContentBytes bounds a single message payload.
const MaxContentBytes = 4096

var (
	ErrUnauthenticated = errors.New("session is not authenticated")
	ErrNoSuchReceiver  = errors.New("receiver does not exist")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrContentTooLong  = errors.New("message content exceeds limit")
)

type Router struct {
	Store    store.Store
	Registry *Registry
	Metrics  *metrics.Collector
	Log      *slog.Logger
}

// SendMessage persists a message from the session's bound user and fans it out
// to every live destination of the receiver. Persistence completes before any
// fan-out is attempted, so a push failure never loses the message: it stays
// retrievable through conversation history.
func (rt *Router) SendMessage(sess *session.Session, receiverID int64, content string) (*models.Message, error) {
	if !sess.Bound() {
		rt.Log.Error("unauthenticated session tried to send a message", "session_id", sess.ID)
		rt.Metrics.RecordSendRejected("unauthenticated")
		return nil, ErrUnauthenticated
	}
	if content == "" {
		rt.Metrics.RecordSendRejected("empty_content")
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentBytes {
		rt.Metrics.RecordSendRejected("content_too_long")
		return nil, ErrContentTooLong
	}

	receiver, err := rt.Store.GetUserByID(receiverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rt.Metrics.RecordSendRejected("no_such_receiver")
			return nil, ErrNoSuchReceiver
		}
		return nil, fmt.Errorf("look up receiver %d: %w", receiverID, err)
	}

	msg, err := rt.Store.SaveMessage(sess.UserID(), receiverID, content)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	msg.SenderName = sess.User.Name
	msg.ReceiverName = receiver.Name
	rt.Metrics.RecordMessageSent()

	rt.fanOut(receiver.ID, &Frame{Type: FrameMessage, Message: msg})
	rt.fanOut(receiver.ID, &Frame{
		Type: FrameNotification,
		Notification: &models.Notification{
			SenderID:   sess.UserID(),
			SenderName: sess.User.Name,
			Text:       "New message from " + sess.User.Name,
		},
	})

	rt.Log.Info("message sent", "message_id", msg.ID, "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID)
	return msg, nil
}

// fanOut pushes a frame to every live destination of a user. Failures are
// isolated per destination: one slow or closed connection must not block or
// fail delivery to the user's other devices.
func (rt *Router) fanOut(userID int64, frame *Frame) {
	for _, dest := range rt.Registry.Resolve(userID) {
		if err := dest.Send(frame); err != nil {
			rt.Metrics.RecordFanoutFailure()
			rt.Log.Warn("push to destination failed",
				"user_id", userID, "destination_id", dest.ID(), "frame_type", frame.Type, "error", err)
		}
	}
}

// MarkDelivered advances a message from SENT to DELIVERED when the session's
// bound user is the stored receiver. A regressive, duplicate or foreign ack
// is a no-op; network retries make duplicates legitimate.
func (rt *Router) MarkDelivered(sess *session.Session, messageID int64) error {
	if !sess.Bound() {
		rt.Log.Error("unauthenticated session tried to ack delivered", "session_id", sess.ID)
		return ErrUnauthenticated
	}
	changed, err := rt.Store.MarkDelivered(messageID, sess.UserID())
	if err != nil {
		return fmt.Errorf("mark delivered %d: %w", messageID, err)
	}
	if changed {
		rt.Metrics.RecordAckDelivered()
	}
	return nil
}

// MarkRead advances a message from SENT or DELIVERED to READ under the same
// authorization rule as MarkDelivered.
func (rt *Router) MarkRead(sess *session.Session, messageID int64) error {
	if !sess.Bound() {
		rt.Log.Error("unauthenticated session tried to ack read", "session_id", sess.ID)
		return ErrUnauthenticated
	}
	changed, err := rt.Store.MarkRead(messageID, sess.UserID())
	if err != nil {
		return fmt.Errorf("mark read %d: %w", messageID, err)
	}
	if changed {
		rt.Metrics.RecordAckRead()
	}
	return nil
}
