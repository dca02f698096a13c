package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/linkup/messenger/internal/models"
	"github.com/linkup/messenger/internal/store"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		enabled BOOLEAN DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'SENT',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (sender_id) REFERENCES users(id),
		FOREIGN KEY (receiver_id) REFERENCES users(id)
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (name, email, password, enabled) VALUES (?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Name, user.Email, user.Password, true).Scan(&user.ID)
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, name, email, password, enabled FROM users WHERE email = ?")
	err := s.db.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, name, email, password, enabled FROM users WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) SearchUsers(queryStr string) ([]models.User, error) {
	query := s.rebind("SELECT id, name, email FROM users WHERE name LIKE ? AND enabled = TRUE LIMIT 10")
	rows, err := s.db.Query(query, "%"+queryStr+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLStore) SetUserEnabled(id int64, enabled bool) error {
	query := s.rebind("UPDATE users SET enabled = ? WHERE id = ?")
	result, err := s.db.Exec(query, enabled, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) SaveMessage(senderID, receiverID int64, content string) (*models.Message, error) {
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Status:     models.StatusSent,
	}
	query := s.rebind("INSERT INTO messages (sender_id, receiver_id, content, status) VALUES (?, ?, ?, ?) RETURNING id, created_at")
	err := s.db.QueryRow(query, senderID, receiverID, content, models.StatusSent).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *SQLStore) GetMessage(id int64) (*models.Message, error) {
	var m models.Message
	query := s.rebind("SELECT id, sender_id, receiver_id, content, status, created_at FROM messages WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkDelivered advances SENT -> DELIVERED. The WHERE clause carries the whole
// contract: receiver authorization, forward-only transition, idempotency.
func (s *SQLStore) MarkDelivered(id, receiverID int64) (bool, error) {
	query := s.rebind("UPDATE messages SET status = ? WHERE id = ? AND receiver_id = ? AND status = ?")
	result, err := s.db.Exec(query, models.StatusDelivered, id, receiverID, models.StatusSent)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// MarkRead advances SENT or DELIVERED -> READ.
func (s *SQLStore) MarkRead(id, receiverID int64) (bool, error) {
	query := s.rebind("UPDATE messages SET status = ? WHERE id = ? AND receiver_id = ? AND status IN (?, ?)")
	result, err := s.db.Exec(query, models.StatusRead, id, receiverID, models.StatusSent, models.StatusDelivered)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (s *SQLStore) GetConversation(a, b int64) ([]models.Message, error) {
	// Ordered by id, never by timestamp: insert order is the visibility order
	// and clock skew must not reorder history.
	query := s.rebind(`
		SELECT m.id, m.sender_id, m.receiver_id, m.content, m.status, m.created_at,
		       su.name, ru.name
		FROM messages m
		JOIN users su ON m.sender_id = su.id
		JOIN users ru ON m.receiver_id = ru.id
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.id ASC
	`)
	rows, err := s.db.Query(query, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Status, &m.CreatedAt, &m.SenderName, &m.ReceiverName); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) GetContacts(userID int64) ([]models.User, error) {
	query := s.rebind(`
		SELECT DISTINCT u.id, u.name, u.email
		FROM users u
		JOIN messages m ON (m.sender_id = u.id AND m.receiver_id = ?)
		               OR (m.receiver_id = u.id AND m.sender_id = ?)
		ORDER BY u.id
	`)
	rows, err := s.db.Query(query, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
