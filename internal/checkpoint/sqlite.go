package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petasbytes/agentloop/memory"
)

const defaultBusyTimeout = 5 * time.Second

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  turns      TEXT NOT NULL,
  turn_count INTEGER NOT NULL,
  updated_at TEXT NOT NULL
);
`

// SQLiteStore keeps one row per session; the turns column holds the JSONL record.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
	locks       *keyedMutex
}

type SQLiteOption func(*SQLiteStore)

func WithBusyTimeout(timeout time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) SQLiteOption {
	return func(s *SQLiteStore) {
		s.enableWAL = enabled
	}
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, storageErr("open", "", fmt.Errorf("sqlite path is required"))
	}
	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("open", "", fmt.Errorf("create sqlite directory: %w", err))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", "", fmt.Errorf("open sqlite db: %w", err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, storageErr("open", "", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	if s.busyTimeout > 0 {
		ms := int(s.busyTimeout / time.Millisecond)
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("set busy_timeout: %w", err)
		}
	}
	if s.enableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous=FULL;"); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*memory.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT turns FROM sessions WHERE session_id = ?;`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("load", sessionID, err)
	}
	turns, err := DecodeTurns([]byte(raw))
	if err != nil {
		return nil, storageErr("load", sessionID, err)
	}
	return &memory.Session{ID: sessionID, Turns: turns}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID string, session memory.Session) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return storageErr("save", sessionID, err)
	}
	data, err := EncodeTurns(session.Turns)
	if err != nil {
		return storageErr("save", sessionID, err)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("save", sessionID, fmt.Errorf("begin tx: %w", err))
	}
	const q = `
INSERT INTO sessions (session_id, turns, turn_count, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  turns=excluded.turns,
  turn_count=excluded.turn_count,
  updated_at=excluded.updated_at;
`
	if _, err := tx.ExecContext(ctx, q, sessionID, string(data), len(session.Turns), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = tx.Rollback()
		return storageErr("save", sessionID, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("save", sessionID, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
