package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS voiceover_sessions (
	id         TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresRepository stores sessions as JSONB rows.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres opens and pings a Postgres connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresRepository creates the sessions table if needed and returns
// a repository backed by db.
func NewPostgresRepository(ctx context.Context, db *sql.DB) (*PostgresRepository, error) {
	if _, err := db.ExecContext(ctx, createSessionsTable); err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// Save upserts the session row.
func (r *PostgresRepository) Save(ctx context.Context, s *Session) error {
	snapshot := s.Clone()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO voiceover_sessions (id, stage, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET stage = EXCLUDED.stage, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		snapshot.ID, string(snapshot.Stage), data, snapshot.CreatedAt, snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", snapshot.ID, err)
	}
	return nil
}

// FindByID loads a session row.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Session, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM voiceover_sessions WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	return decodeSession(data)
}

// List loads all sessions ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM voiceover_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]*Session, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return result, nil
}

// Delete removes a session row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voiceover_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func decodeSession(data []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.Steps == nil {
		s.Steps = make([]StepRecord, 0)
	}
	return s, nil
}
