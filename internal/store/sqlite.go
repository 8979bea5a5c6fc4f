package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// SQLiteStore implements Store on a local SQLite file. Ordering is the
// store-assigned seq column, so concurrent appends for one session
// interleave without corrupting read order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations. The parent directory is created if missing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			last_active_at DATETIME NOT NULL,
			turn_count INTEGER NOT NULL DEFAULT 0,
			metadata TEXT
		);

		CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			turn_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			answer_plain TEXT NOT NULL,
			answer_markdown TEXT NOT NULL,
			sources TEXT,
			created_at DATETIME NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			trace_id TEXT,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session_seq ON turns(session_id, seq);
	`)
	return err
}

// AppendTurn inserts the turn and upserts the session row in one
// transaction, so turn_count never drifts from the log.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn chat.Turn) error {
	sources, err := marshalJSON(turn.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	metadata, err := marshalJSON(turn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (turn_id, session_id, user_message, answer_plain, answer_markdown, sources, created_at, latency_ms, trace_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.UserMessage, turn.Answer.PlainText, turn.Answer.Markdown,
		sources, turn.CreatedAt.UTC(), turn.LatencyMs, turn.TraceID, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_active_at, turn_count, metadata)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_active_at = excluded.last_active_at,
			turn_count = sessions.turn_count + 1`,
		turn.SessionID, turn.CreatedAt.UTC(), turn.CreatedAt.UTC(), metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return tx.Commit()
}

// RecentTurns returns the newest limit turns in append order.
func (s *SQLiteStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	if limit < 1 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, session_id, user_message, answer_plain, answer_markdown, sources, created_at, latency_ms, trace_id, metadata
		FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Flip the DESC result back to append order, newest-last.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SessionTurns pages the log oldest-first with the session total.
func (s *SQLiteStore) SessionTurns(ctx context.Context, sessionID string, limit, offset int) ([]chat.Turn, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count turns: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_id, session_id, user_message, answer_plain, answer_markdown, sources, created_at, latency_ms, trace_id, metadata
		FROM turns WHERE session_id = ? ORDER BY seq ASC LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, 0, err
	}
	return turns, total, nil
}

// CreateSession registers a session row with no turns yet.
func (s *SQLiteStore) CreateSession(ctx context.Context, session chat.Session) error {
	metadata, err := marshalJSON(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_active_at, turn_count, metadata)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		session.ID, session.CreatedAt.UTC(), session.LastActiveAt.UTC(), metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession fetches session metadata.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, created_at, last_active_at, turn_count, metadata
		FROM sessions WHERE session_id = ?`, sessionID,
	)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// ListSessions pages sessions most recently active first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit, offset int) ([]chat.Session, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, created_at, last_active_at, turn_count, metadata
		FROM sessions ORDER BY last_active_at DESC, session_id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]chat.Session, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Ping reports database reachability.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurns(rows *sql.Rows) ([]chat.Turn, error) {
	var turns []chat.Turn
	for rows.Next() {
		var (
			turn              chat.Turn
			sources, metadata sql.NullString
			traceID           sql.NullString
			createdAt         time.Time
		)
		err := rows.Scan(
			&turn.ID, &turn.SessionID, &turn.UserMessage,
			&turn.Answer.PlainText, &turn.Answer.Markdown,
			&sources, &createdAt, &turn.LatencyMs, &traceID, &metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn.CreatedAt = createdAt.UTC()
		turn.TraceID = traceID.String
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &turn.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode sources: %w", err)
			}
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &turn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

func scanSession(row rowScanner) (chat.Session, error) {
	var (
		session                 chat.Session
		metadata                sql.NullString
		createdAt, lastActiveAt time.Time
	)
	err := row.Scan(&session.ID, &createdAt, &lastActiveAt, &session.TurnCount, &metadata)
	if err != nil {
		return chat.Session{}, err
	}

	session.CreatedAt = createdAt.UTC()
	session.LastActiveAt = lastActiveAt.UTC()
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &session.Metadata); err != nil {
			return chat.Session{}, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return session, nil
}

func marshalJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case []chat.Source:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
