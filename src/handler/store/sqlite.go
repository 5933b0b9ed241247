// Package store implements the Metadata Store (§4.B): the durable mapping of
// terminal-id to provider coordinates, and the inbox message queue. It is
// grounded on the sqlite repository pattern used throughout the retrieval
// pack for small durable registries: a single-writer database/sql handle
// over mattn/go-sqlite3, WAL journaling, and raw SQL CRUD.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS terminals (
	id TEXT PRIMARY KEY,
	session TEXT NOT NULL,
	window TEXT NOT NULL,
	provider_kind TEXT NOT NULL,
	agent_profile TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS inbox_messages (
	id TEXT PRIMARY KEY,
	receiver_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	body TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('PENDING', 'DELIVERED', 'FAILED')) DEFAULT 'PENDING',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	delivered_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_inbox_receiver_status ON inbox_messages(receiver_id, status, created_at);
`

// Store is the Metadata Store. It is the single writer of durable state;
// callers never hold their own lock around it because sqlite itself is
// restricted to one open connection (SetMaxOpenConns(1)).
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the sqlite-backed metadata store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init metadata store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTerminal inserts a new terminal row.
func (s *Store) CreateTerminal(t *Terminal) error {
	_, err := s.db.Exec(
		`INSERT INTO terminals (id, session, window, provider_kind, agent_profile, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Session, t.Window, string(t.ProviderKind), nullableString(t.AgentProfile), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: create terminal %s: %v", lib.ErrPersistenceFailure, t.ID, err)
	}
	return nil
}

// GetTerminal returns the stored metadata for id, or nil if not found.
func (s *Store) GetTerminal(id string) (*Terminal, error) {
	row := s.db.QueryRow(
		`SELECT id, session, window, provider_kind, agent_profile, created_at FROM terminals WHERE id = ?`, id,
	)
	t, err := scanTerminal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get terminal %s: %v", lib.ErrPersistenceFailure, id, err)
	}
	return t, nil
}

// DeleteTerminal removes a terminal row. Inbox messages referencing it are
// left untouched — they remain as historical records per §4.F.
func (s *Store) DeleteTerminal(id string) error {
	if _, err := s.db.Exec(`DELETE FROM terminals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete terminal %s: %v", lib.ErrPersistenceFailure, id, err)
	}
	return nil
}

// ListTerminals returns every terminal, oldest first.
func (s *Store) ListTerminals() ([]*Terminal, error) {
	rows, err := s.db.Query(`SELECT id, session, window, provider_kind, agent_profile, created_at FROM terminals ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list terminals: %v", lib.ErrPersistenceFailure, err)
	}
	defer rows.Close()
	return collectTerminals(rows)
}

// ListSessionTerminals returns every terminal belonging to session.
func (s *Store) ListSessionTerminals(session string) ([]*Terminal, error) {
	rows, err := s.db.Query(`SELECT id, session, window, provider_kind, agent_profile, created_at FROM terminals WHERE session = ? ORDER BY created_at ASC`, session)
	if err != nil {
		return nil, fmt.Errorf("%w: list session terminals %s: %v", lib.ErrPersistenceFailure, session, err)
	}
	defer rows.Close()
	return collectTerminals(rows)
}

// ListSessions returns the distinct session names currently in use.
func (s *Store) ListSessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session FROM terminals ORDER BY session ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", lib.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", lib.ErrPersistenceFailure, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// EnqueueMessage inserts a new PENDING inbox message.
func (s *Store) EnqueueMessage(m *InboxMessage) error {
	_, err := s.db.Exec(
		`INSERT INTO inbox_messages (id, receiver_id, sender_id, body, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ReceiverID, m.SenderID, m.Body, string(constants.MessageStatusPending), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: enqueue message %s: %v", lib.ErrPersistenceFailure, m.ID, err)
	}
	return nil
}

// GetPendingMessages returns up to limit oldest PENDING messages for receiverID, FIFO by created_at.
func (s *Store) GetPendingMessages(receiverID string, limit int) ([]*InboxMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, receiver_id, sender_id, body, status, created_at, delivered_at FROM inbox_messages
		 WHERE receiver_id = ? AND status = ? ORDER BY created_at ASC LIMIT ?`,
		receiverID, string(constants.MessageStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get pending messages for %s: %v", lib.ErrPersistenceFailure, receiverID, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListMessages returns messages for terminalID, optionally filtered by status, newest first.
func (s *Store) ListMessages(terminalID string, status constants.MessageStatus, limit int) ([]*InboxMessage, error) {
	query := `SELECT id, receiver_id, sender_id, body, status, created_at, delivered_at FROM inbox_messages WHERE receiver_id = ?`
	args := []interface{}{terminalID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages for %s: %v", lib.ErrPersistenceFailure, terminalID, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// UpdateMessageStatus advances a message to newStatus, atomically guarding
// on it currently being PENDING so that at-most-one delivery ever succeeds
// under concurrent scheduler events (§4.B, §9).
func (s *Store) UpdateMessageStatus(id string, newStatus constants.MessageStatus) (bool, error) {
	var deliveredAt interface{}
	if newStatus == constants.MessageStatusDelivered {
		deliveredAt = time.Now()
	}

	result, err := s.db.Exec(
		`UPDATE inbox_messages SET status = ?, delivered_at = ? WHERE id = ? AND status = ?`,
		string(newStatus), deliveredAt, id, string(constants.MessageStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("%w: update message status %s: %v", lib.ErrPersistenceFailure, id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected %s: %v", lib.ErrPersistenceFailure, id, err)
	}
	if n == 0 {
		logrus.WithField("message_id", id).Debug("message status update skipped: not PENDING")
		return false, nil
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTerminal(row rowScanner) (*Terminal, error) {
	var t Terminal
	var agentProfile sql.NullString
	if err := row.Scan(&t.ID, &t.Session, &t.Window, &t.ProviderKind, &agentProfile, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.AgentProfile = agentProfile.String
	return &t, nil
}

func collectTerminals(rows *sql.Rows) ([]*Terminal, error) {
	var out []*Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan terminal: %v", lib.ErrPersistenceFailure, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func collectMessages(rows *sql.Rows) ([]*InboxMessage, error) {
	var out []*InboxMessage
	for rows.Next() {
		var m InboxMessage
		var deliveredAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ReceiverID, &m.SenderID, &m.Body, &m.Status, &m.CreatedAt, &deliveredAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", lib.ErrPersistenceFailure, err)
		}
		if deliveredAt.Valid {
			t := deliveredAt.Time
			m.DeliveredAt = &t
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
