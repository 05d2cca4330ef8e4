// Package storage persists the admin audit trail in a local sqlite
// database. Auditing is optional: with no path configured Open returns a
// store that accepts and discards everything, so callers never branch.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"estatebot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Entry is one recorded admin interaction.
type Entry struct {
	At       time.Time
	ChatID   int64
	Username string
	Action   string
	Allowed  bool
}

// Store records admin interactions. Implementations must be safe for use
// from the single update loop plus the maintenance goroutine.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open returns a sqlite-backed store at path, or a discard store when
// path is empty.
func Open(path string, log logx.Logger) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nopStore{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit migrations: %w", err)
	}
	return st, nil
}

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Append(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, chat_id, username, action, allowed) VALUES(?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.ChatID, nullStr(e.Username), e.Action, e.Allowed,
	)
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, chat_id, username, action, allowed FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			at       string
			username sql.NullString
		)
		if err := rows.Scan(&at, &e.ChatID, &username, &e.Action, &e.Allowed); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Username = username.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

type nopStore struct{}

func (nopStore) Append(context.Context, Entry) error          { return nil }
func (nopStore) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (nopStore) Close() error                                 { return nil }
