package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultSessionTitle marks sessions that are renamed after their first
// user message.
const DefaultSessionTitle = "New Chat"

const autoTitleRunes = 50

// Message is one persisted chat turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a chat session with its full message list.
type Session struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSummary is a session list entry.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateSession inserts an empty session.
func (s *Store) CreateSession(ctx context.Context, projectID, title string) (Session, error) {
	if title == "" {
		title = DefaultSessionTitle
	}
	now := s.timestamp()
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO chat_sessions(id, project_id, title, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)`, id, projectID, title, now, now); err != nil {
		return Session{}, fmt.Errorf("insert chat session: %w", err)
	}
	return Session{
		ID:        id,
		ProjectID: projectID,
		Title:     title,
		Messages:  []Message{},
		CreatedAt: parseTime(now),
		UpdatedAt: parseTime(now),
	}, nil
}

// LoadSession reads a session and its messages in order.
func (s *Store) LoadSession(ctx context.Context, projectID, sessionID string) (Session, error) {
	var sess Session
	var createdAt, updatedAt string
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, title, created_at, updated_at
		FROM chat_sessions WHERE id=? AND project_id=?`, sessionID, projectID)
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.Title, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("load session %q: %w", sessionID, ErrSessionNotFound)
		}
		return Session{}, fmt.Errorf("read chat session: %w", err)
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)

	rows, err := s.db.QueryContext(ctx, `SELECT role, content, created_at FROM chat_messages
		WHERE session_id=? ORDER BY seq`, sessionID)
	if err != nil {
		return Session{}, fmt.Errorf("read chat messages: %w", err)
	}
	defer rows.Close()

	sess.Messages = []Message{}
	for rows.Next() {
		var msg Message
		var ts string
		if err := rows.Scan(&msg.Role, &msg.Content, &ts); err != nil {
			return Session{}, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Timestamp = parseTime(ts)
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("read chat messages: %w", err)
	}
	return sess, nil
}

// SaveSession upserts the session row and replaces its message list in one
// transaction.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	return s.withTx(ctx, "save session", func(tx *sql.Tx) error {
		created := sess.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		updated := sess.UpdatedAt
		if updated.IsZero() {
			updated = s.now()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_sessions(id, project_id, title, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title=excluded.title, updated_at=excluded.updated_at`,
			sess.ID, sess.ProjectID, sess.Title, created.Format(timeLayout), updated.Format(timeLayout)); err != nil {
			return fmt.Errorf("upsert chat session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id=?`, sess.ID); err != nil {
			return fmt.Errorf("clear chat messages: %w", err)
		}
		for i, msg := range sess.Messages {
			ts := msg.Timestamp
			if ts.IsZero() {
				ts = updated
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO chat_messages(session_id, seq, role, content, created_at)
				VALUES(?, ?, ?, ?, ?)`, sess.ID, i+1, msg.Role, msg.Content, ts.Format(timeLayout)); err != nil {
				return fmt.Errorf("insert chat message: %w", err)
			}
		}
		return nil
	})
}

// AppendMessage adds one message to a session. The first user message of a
// session still carrying DefaultSessionTitle becomes its title.
func (s *Store) AppendMessage(ctx context.Context, projectID, sessionID, role, content string) (Session, error) {
	sess, err := s.LoadSession(ctx, projectID, sessionID)
	if err != nil {
		return Session{}, err
	}

	now := s.timestamp()
	err = s.withTx(ctx, "append message", func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id=?`,
			sessionID).Scan(&seq); err != nil {
			return fmt.Errorf("read message seq: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_messages(session_id, seq, role, content, created_at)
			VALUES(?, ?, ?, ?, ?)`, sessionID, seq+1, role, content, now); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
		if sess.Title == DefaultSessionTitle && role == "user" {
			sess.Title = AutoTitle(content)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET title=?, updated_at=? WHERE id=?`,
			sess.Title, now, sessionID); err != nil {
			return fmt.Errorf("update chat session: %w", err)
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: parseTime(now)})
	sess.UpdatedAt = parseTime(now)
	return sess, nil
}

// ListSessions returns the sessions of a project, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, projectID string) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.title, s.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		FROM chat_sessions s WHERE s.project_id=? ORDER BY s.updated_at DESC, s.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var item SessionSummary
		var updatedAt string
		if err := rows.Scan(&item.ID, &item.Title, &updatedAt, &item.MessageCount); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		item.UpdatedAt = parseTime(updatedAt)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and its messages. Deleting a missing
// session is not an error.
func (s *Store) DeleteSession(ctx context.Context, projectID, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id=? AND project_id=?`,
		sessionID, projectID); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

// DeleteProjectSessions removes every session of a project.
func (s *Store) DeleteProjectSessions(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE project_id=?`, projectID); err != nil {
		return fmt.Errorf("delete project sessions: %w", err)
	}
	return nil
}

// AutoTitle derives a session title from its first user message.
func AutoTitle(content string) string {
	if utf8.RuneCountInString(content) <= autoTitleRunes {
		return content
	}
	return string([]rune(content)[:autoTitleRunes]) + "..."
}
