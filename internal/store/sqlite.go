package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatbois/chatbois-server/internal/core"
)

const (
	blobUsers = "users"
	blobChats = "chats"
)

// Store holds snapshots in a single sqlite file: one row per blob, the
// users and chats blobs written together in one transaction.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at dbPath. Use
// ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			name     TEXT PRIMARY KEY,
			data     BLOB NOT NULL,
			saved_at DATETIME NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes both blobs in one transaction. A reload after Save
// reproduces an equivalent store pair.
func (s *Store) Save(ctx context.Context, users []core.User, chats []core.Chat) error {
	usersJSON, err := json.Marshal(usersToRecords(users))
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	chatsJSON, err := json.Marshal(chatsToRecords(chats))
	if err != nil {
		return fmt.Errorf("marshal chats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO snapshots (name, data, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at
	`
	now := time.Now()
	if _, err := tx.ExecContext(ctx, query, blobUsers, usersJSON, now); err != nil {
		return fmt.Errorf("save users blob: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, blobChats, chatsJSON, now); err != nil {
		return fmt.Errorf("save chats blob: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the most recent snapshot pair. A missing blob yields an
// empty slice; a corrupt one is an error the caller may degrade on.
func (s *Store) Load(ctx context.Context) ([]core.User, []core.Chat, error) {
	var userRecs []userRecord
	if err := s.loadBlob(ctx, blobUsers, &userRecs); err != nil {
		return nil, nil, fmt.Errorf("load users blob: %w", err)
	}

	var chatRecs []chatRecord
	if err := s.loadBlob(ctx, blobChats, &chatRecs); err != nil {
		return nil, nil, fmt.Errorf("load chats blob: %w", err)
	}

	return usersFromRecords(userRecs), chatsFromRecords(chatRecs), nil
}

func (s *Store) loadBlob(ctx context.Context, name string, v any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
