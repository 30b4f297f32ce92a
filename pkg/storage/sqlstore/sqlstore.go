// Package sqlstore implements storage.Driver over database/sql. The sqlite and
// postgres drivers open a *sql.DB and wrap it in a Store.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

// Dialect describes the SQL differences between supported databases.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// TimeType is the column type used for timestamps.
	TimeType string

	// Numbered placeholders ($1, $2) instead of "?".
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", TimeType: "DATETIME"}
	Postgres = Dialect{Name: "postgres", TimeType: "TIMESTAMPTZ", Numbered: true}
)

// rebind rewrites "?" placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store implements storage.Driver using a conversations table.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// New wraps db and creates the schema when it doesn't exist yet.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{DB: db, Dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s schema: %w", dialect.Name, err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	messages TEXT NOT NULL,
	created_at %[1]s NOT NULL,
	updated_at %[1]s NOT NULL
)`, s.Dialect.TimeType),
		`CREATE INDEX IF NOT EXISTS conversations_updated_at ON conversations (updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveConversation(ctx context.Context, rec conversation.Record) error {
	if rec.ID == "" {
		return errors.New("cannot store a conversation without an id")
	}

	messages := rec.Messages
	if messages == nil {
		messages = []llm.Message{}
	}
	encoded, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	now := time.Now().UTC()
	createdAt, updatedAt := rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()
	if rec.CreatedAt.IsZero() {
		createdAt = now
	}
	if rec.UpdatedAt.IsZero() {
		updatedAt = now
	}

	query := s.Dialect.rebind(`INSERT INTO conversations (id, title, model, messages, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	title = excluded.title,
	model = excluded.model,
	messages = excluded.messages,
	updated_at = excluded.updated_at`)

	if _, err := s.DB.ExecContext(ctx, query, rec.ID, rec.Title, rec.Model, string(encoded), createdAt, updatedAt); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*conversation.Record, error) {
	row := s.DB.QueryRowContext(ctx, s.Dialect.rebind(
		`SELECT id, title, model, messages, created_at, updated_at FROM conversations WHERE id = ?`), id)

	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]conversation.Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, title, model, messages, created_at, updated_at FROM conversations ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	out := []conversation.Record{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, s.Dialect.rebind(`DELETE FROM conversations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*conversation.Record, error) {
	var (
		rec      conversation.Record
		messages string
	)
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Model, &messages, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return nil, fmt.Errorf("corrupt messages for %s: %w", rec.ID, err)
	}
	return &rec, nil
}
