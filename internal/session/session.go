// Package session binds a validated identity to a live persistent connection.
//
// A session is created when a connection completes its handshake and is either
// anonymous or bound to exactly one user for its whole lifetime. An auth
// failure during the handshake never tears the connection down: the transport
// treats an abrupt abort as a protocol violation, so the session degrades to
// anonymous instead.
package session

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/store"
	"github.com/linkup/messenger/internal/token"
)

type Session struct {
	ID   string
	User *models.User // nil when anonymous
}

// Bound reports whether the session carries an authenticated identity.
func (s *Session) Bound() bool {
	return s != nil && s.User != nil
}

// UserID returns the bound user's id, or 0 for an anonymous session.
func (s *Session) UserID() int64 {
	if !s.Bound() {
		return 0
	}
	return s.User.ID
}

type Authenticator struct {
	Tokens *token.Provider
	Store  store.Store
	Log    *slog.Logger
}

// Authenticate runs once per connection, on the handshake. It takes the raw
// Authorization header value; a missing or malformed "Bearer " prefix is not
// an error, and every failure past that point (invalid token, unknown or
// disabled user, store error) results in an anonymous session, never a
// rejected connection.
func (a *Authenticator) Authenticate(authHeader string) *Session {
	sess := &Session{ID: uuid.NewString()}

	tok, ok := extractBearer(authHeader)
	if !ok {
		a.Log.Debug("handshake without bearer credential, anonymous session", "session_id", sess.ID)
		return sess
	}

	claims, valid := a.Tokens.Validate(tok)
	if !valid {
		a.Log.Warn("handshake credential did not validate, proceeding anonymous", "session_id", sess.ID)
		return sess
	}

	user, err := a.Store.GetUserByEmail(claims.Subject)
	if err != nil {
		a.Log.Warn("handshake identity lookup failed, proceeding anonymous",
			"session_id", sess.ID, "subject", claims.Subject, "error", err)
		return sess
	}
	if !user.Enabled {
		a.Log.Warn("handshake identity is disabled, proceeding anonymous",
			"session_id", sess.ID, "subject", claims.Subject)
		return sess
	}

	sess.User = user
	a.Log.Info("session bound", "session_id", sess.ID, "user_id", user.ID)
	return sess
}

func extractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}
