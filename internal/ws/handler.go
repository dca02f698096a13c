// Package ws carries the relay's persistent transport: one websocket
// connection per session, upgraded from HTTP, with the handshake header
// deciding whether the session is bound or anonymous.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/linkup/messenger/internal/chat"
	"github.com/linkup/messenger/internal/metrics"
	"github.com/linkup/messenger/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a separately served frontend origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	Auth     *session.Authenticator
	Router   *chat.Router
	Registry *chat.Registry
	Metrics  *metrics.Collector
	Log      *slog.Logger
}

// ServeHTTP performs the handshake. The upgrade request's Authorization
// header is the connection-scoped credential; browsers that cannot set
// headers on a websocket dial pass ?token= instead. Authentication failure
// does not reject the upgrade: the connection proceeds anonymous.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			authHeader = "Bearer " + tok
		}
	}
	sess := h.Auth.Authenticate(authHeader)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(sess, conn, h.Router, h.Log)
	if sess.Bound() {
		h.Registry.Register(sess.UserID(), client)
	}
	h.Metrics.DestinationOpened()

	go client.writePump()
	client.readPump()

	// Deregister only this connection's handle: another device of the same
	// user keeps its registration.
	if sess.Bound() {
		h.Registry.Deregister(sess.UserID(), client)
	}
	h.Metrics.DestinationClosed()
	h.Log.Info("connection closed", "session_id", sess.ID, "user_id", sess.UserID())
}
