package ws

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linkup/messenger/internal/chat"
	"github.com/linkup/messenger/internal/metrics"
	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/session"
	"github.com/linkup/messenger/internal/store/sqlstore"
	"github.com/linkup/messenger/internal/token"
)

type wsFixture struct {
	srv      *httptest.Server
	store    *sqlstore.SQLStore
	tokens   *token.Provider
	registry *chat.Registry
	alice    *models.User
	bob      *models.User
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	alice := &models.User{Name: "alice", Email: "alice@example.com", Password: "p"}
	bob := &models.User{Name: "bob", Email: "bob@example.com", Password: "p"}
	if err := s.CreateUser(alice); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(bob); err != nil {
		t.Fatal(err)
	}

	tokens := token.NewProvider("test-secret-test-secret-test-secret", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := chat.NewRegistry()
	collector := metrics.NewCollector(prometheus.NewRegistry())

	handler := &Handler{
		Auth:     &session.Authenticator{Tokens: tokens, Store: s, Log: log},
		Router:   &chat.Router{Store: s, Registry: registry, Metrics: collector, Log: log},
		Registry: registry,
		Metrics:  collector,
		Log:      log,
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, store: s, tokens: tokens, registry: registry, alice: alice, bob: bob}
}

func (f *wsFixture) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func (f *wsFixture) dialAs(t *testing.T, user *models.User) *websocket.Conn {
	t.Helper()
	tok, err := f.tokens.Generate(user)
	if err != nil {
		t.Fatal(err)
	}
	return f.dial(t, http.Header{"Authorization": {"Bearer " + tok}})
}

// waitRegistered blocks until the user's destination registration from the
// server-side handshake goroutine becomes visible.
func (f *wsFixture) waitRegistered(t *testing.T, userID int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(f.registry.Resolve(userID)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("User %d never registered a destination", userID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) *chat.Frame {
	t.Helper()
	var frame chat.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return &frame
}

func TestSendAndReceive(t *testing.T) {
	f := newWSFixture(t)

	aliceConn := f.dialAs(t, f.alice)
	bobConn := f.dialAs(t, f.bob)
	f.waitRegistered(t, f.bob.ID)

	err := aliceConn.WriteJSON(map[string]interface{}{
		"type": "chat", "receiver_id": f.bob.ID, "content": "hi bob",
	})
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	// Receiver gets the message and then the notification nudge.
	first := readFrame(t, bobConn)
	if first.Type != chat.FrameMessage {
		t.Fatalf("Expected message frame first, got %q", first.Type)
	}
	if first.Message.Content != "hi bob" || first.Message.SenderID != f.alice.ID {
		t.Errorf("Unexpected message payload: %+v", first.Message)
	}
	if first.Message.Status != models.StatusSent {
		t.Errorf("Expected status SENT, got %s", first.Message.Status)
	}

	second := readFrame(t, bobConn)
	if second.Type != chat.FrameNotification {
		t.Fatalf("Expected notification frame second, got %q", second.Type)
	}
	if second.Notification.SenderName != "alice" {
		t.Errorf("Expected notification from alice, got %+v", second.Notification)
	}

	// Sender gets the stored-message echo.
	echo := readFrame(t, aliceConn)
	if echo.Type != chat.FrameSent {
		t.Fatalf("Expected sent frame, got %q", echo.Type)
	}
	if echo.Message.ID == 0 {
		t.Error("Expected echo to carry the stored message id")
	}
}

func TestReadAckOverSocket(t *testing.T) {
	f := newWSFixture(t)

	aliceConn := f.dialAs(t, f.alice)
	bobConn := f.dialAs(t, f.bob)
	f.waitRegistered(t, f.bob.ID)

	aliceConn.WriteJSON(map[string]interface{}{
		"type": "chat", "receiver_id": f.bob.ID, "content": "hi",
	})
	msgFrame := readFrame(t, bobConn)

	err := bobConn.WriteJSON(map[string]interface{}{
		"type": "read", "message_id": msgFrame.Message.ID,
	})
	if err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	// The ack has no success response; poll the store for the transition.
	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, err := f.store.GetMessage(msgFrame.Message.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if stored.Status == models.StatusRead {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Message never reached READ, status=%s", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExpiredTokenStaysConnectedButAnonymous(t *testing.T) {
	f := newWSFixture(t)

	expired := token.NewProvider("test-secret-test-secret-test-secret", -time.Minute)
	tok, _ := expired.Generate(f.alice)

	// The handshake must still succeed: auth failure never aborts the
	// transport.
	conn := f.dial(t, http.Header{"Authorization": {"Bearer " + tok}})

	conn.WriteJSON(map[string]interface{}{
		"type": "chat", "receiver_id": f.bob.ID, "content": "hi",
	})

	frame := readFrame(t, conn)
	if frame.Type != chat.FrameError {
		t.Fatalf("Expected error frame, got %q", frame.Type)
	}

	conv, _ := f.store.GetConversation(f.alice.ID, f.bob.ID)
	if len(conv) != 0 {
		t.Error("Expected no stored message from an anonymous session")
	}
}

func TestAnonymousDialStaysOpen(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(t, nil)

	conn.WriteJSON(map[string]interface{}{"type": "read", "message_id": int64(1)})
	frame := readFrame(t, conn)
	if frame.Type != chat.FrameError {
		t.Fatalf("Expected error frame for anonymous ack, got %q", frame.Type)
	}
}

func TestQueryTokenFallback(t *testing.T) {
	f := newWSFixture(t)

	tok, _ := f.tokens.Generate(f.bob)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/?token=" + tok
	bobConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer bobConn.Close()
	bobConn.SetReadDeadline(time.Now().Add(3 * time.Second))

	f.waitRegistered(t, f.bob.ID)

	aliceConn := f.dialAs(t, f.alice)
	aliceConn.WriteJSON(map[string]interface{}{
		"type": "chat", "receiver_id": f.bob.ID, "content": "via query token",
	})

	frame := readFrame(t, bobConn)
	if frame.Type != chat.FrameMessage || frame.Message.Content != "via query token" {
		t.Fatalf("Expected message push to query-token session, got %+v", frame)
	}
}
