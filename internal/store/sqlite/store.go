// Package sqlite persists the small amount of state that outlives a
// process: the CLI's saved PDS session and the bot's per-chat viewing
// state. The record cache itself is deliberately not persisted; it is
// rebuilt from the PDS on demand.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	host         TEXT NOT NULL,
	did          TEXT NOT NULL,
	handle       TEXT NOT NULL,
	access_jwt   TEXT NOT NULL,
	refresh_jwt  TEXT NOT NULL DEFAULT '',
	saved_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_state (
	chat_id      INTEGER PRIMARY KEY,
	author_did   TEXT NOT NULL DEFAULT '',
	author_handle TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMP NOT NULL
);
`

// ErrNoSession is returned when no session has been saved yet.
var ErrNoSession = errors.New("no saved session")

// Session is a persisted PDS login.
type Session struct {
	Host       string
	DID        string
	Handle     string
	AccessJWT  string
	RefreshJWT string
	SavedAt    time.Time
}

// ChatState is the bot's persisted per-chat viewing state.
type ChatState struct {
	ChatID       int64
	AuthorDID    string
	AuthorHandle string
	UpdatedAt    time.Time
}

// Store wraps the sqlite database. The caller should Close it when done.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession stores the session, replacing any previous one.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, host, did, handle, access_jwt, refresh_jwt, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			host = excluded.host,
			did = excluded.did,
			handle = excluded.handle,
			access_jwt = excluded.access_jwt,
			refresh_jwt = excluded.refresh_jwt,
			saved_at = excluded.saved_at`,
		sess.Host, sess.DID, sess.Handle, sess.AccessJWT, sess.RefreshJWT, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the saved session, or ErrNoSession.
func (s *Store) LoadSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT host, did, handle, access_jwt, refresh_jwt, saved_at
		FROM sessions WHERE id = 1`)

	var sess Session
	err := row.Scan(&sess.Host, &sess.DID, &sess.Handle, &sess.AccessJWT, &sess.RefreshJWT, &sess.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return &sess, nil
}

// DeleteSession removes the saved session (logout). Deleting when none
// exists is not an error.
func (s *Store) DeleteSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SaveChatState upserts one chat's viewing state.
func (s *Store) SaveChatState(ctx context.Context, state ChatState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_state (chat_id, author_did, author_handle, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			author_did = excluded.author_did,
			author_handle = excluded.author_handle,
			updated_at = excluded.updated_at`,
		state.ChatID, state.AuthorDID, state.AuthorHandle, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save chat state: %w", err)
	}
	return nil
}

// LoadChatState returns one chat's state, or nil when the chat is new.
func (s *Store) LoadChatState(ctx context.Context, chatID int64) (*ChatState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, author_did, author_handle, updated_at
		FROM chat_state WHERE chat_id = ?`, chatID)

	var state ChatState
	err := row.Scan(&state.ChatID, &state.AuthorDID, &state.AuthorHandle, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat state: %w", err)
	}

	return &state, nil
}
