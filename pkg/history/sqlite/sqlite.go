// Package sqlite provides a SQLite-backed conversation history store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nossamaternidade/nathia/pkg/llm"
)

// Store implements history.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite-backed store. The dbPath can be a file path or
// ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append records one message at the end of the conversation.
func (s *Store) Append(ctx context.Context, conversationID string, msg llm.Message) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id is required")
	}

	query := `INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, conversationID, msg.Role, msg.Content)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Messages returns the conversation in insertion order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]llm.Message, error) {
	query := `SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
