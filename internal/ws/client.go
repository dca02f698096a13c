package ws

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linkup/messenger/internal/chat"
	"github.com/linkup/messenger/internal/session"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size: content bound plus envelope headroom.
	maxFrameSize = chat.MaxContentBytes + 512

	sendBufferSize = 64
)

var (
	errDestinationBusy   = errors.New("destination send buffer full")
	errDestinationClosed = errors.New("destination closed")
)

// Inbound frame envelope. Type selects which of the remaining fields apply.
type inboundFrame struct {
	Type       string `json:"type"`
	ReceiverID int64  `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
	MessageID  int64  `json:"message_id,omitempty"`
}

const (
	frameChat      = "chat"
	frameDelivered = "delivered"
	frameRead      = "read"
)

// Client is one live connection: the session bound at handshake plus the
// outbound destination the registry fans out to.
type Client struct {
	sess *session.Session
	conn *websocket.Conn

	send chan interface{}
	done chan struct{}

	router *chat.Router
	log    *slog.Logger
}

func newClient(sess *session.Session, conn *websocket.Conn, router *chat.Router, log *slog.Logger) *Client {
	return &Client{
		sess:   sess,
		conn:   conn,
		send:   make(chan interface{}, sendBufferSize),
		done:   make(chan struct{}),
		router: router,
		log:    log,
	}
}

func (c *Client) ID() string { return c.sess.ID }

// Send queues a frame for delivery without blocking. A full buffer or a
// closed connection is reported as an error so the router can isolate the
// failure to this destination.
func (c *Client) Send(v interface{}) error {
	select {
	case <-c.done:
		return errDestinationClosed
	default:
	}
	select {
	case c.send <- v:
		return nil
	default:
		return errDestinationBusy
	}
}

// readPump reads frames from the connection and dispatches them to the
// router. It owns the done channel: when the read side ends, the connection
// is gone and the write pump shuts down.
func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("connection closed unexpectedly", "session_id", c.sess.ID, "error", err)
			}
			return
		}
		c.dispatch(&frame)
	}
}

func (c *Client) dispatch(frame *inboundFrame) {
	switch frame.Type {
	case frameChat:
		msg, err := c.router.SendMessage(c.sess, frame.ReceiverID, frame.Content)
		if err != nil {
			c.sendError(err)
			return
		}
		// Synchronous success indication back to the sending connection.
		c.Send(&chat.Frame{Type: chat.FrameSent, Message: msg})

	case frameDelivered:
		if err := c.router.MarkDelivered(c.sess, frame.MessageID); err != nil {
			c.sendError(err)
		}

	case frameRead:
		if err := c.router.MarkRead(c.sess, frame.MessageID); err != nil {
			c.sendError(err)
		}

	default:
		c.sendError(errors.New("unknown frame type"))
	}
}

func (c *Client) sendError(err error) {
	if sendErr := c.Send(&chat.Frame{Type: chat.FrameError, Error: err.Error()}); sendErr != nil {
		c.log.Warn("failed to deliver error frame", "session_id", c.sess.ID, "error", sendErr)
	}
}

// writePump serializes all writes to the connection: queued frames and
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case v := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
