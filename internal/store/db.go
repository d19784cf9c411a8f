package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// Migrate bootstraps the schema. Statements run one at a time so the same
// code works against pooled serverless Postgres, which forbids multi-command
// strings.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			email    TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			role     TEXT NOT NULL CHECK (role IN ('admin','student')),
			reg_no   TEXT,
			batch_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id     TEXT PRIMARY KEY,
			number TEXT UNIQUE NOT NULL,
			name   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_slots (
			id       TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			weekday  INT NOT NULL,
			subject  TEXT NOT NULL,
			start_t  TEXT NOT NULL,
			end_t    TEXT NOT NULL,
			location TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id         BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ DEFAULT now(),
			date_ymd   TEXT NOT NULL,
			batch_id   TEXT NOT NULL,
			session_id TEXT NOT NULL,
			student_id TEXT NOT NULL,
			reg_no     TEXT,
			name       TEXT,
			subject    TEXT,
			start_t    TEXT,
			end_t      TEXT,
			location   TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS attendance_session_student_idx
			ON attendance (session_id, student_id)`,
		`CREATE TABLE IF NOT EXISTS community_posts (
			id         TEXT PRIMARY KEY,
			author_id  TEXT NOT NULL,
			body       TEXT NOT NULL,
			type       TEXT NOT NULL CHECK (type IN ('anon','announcement')),
			pinned     BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT now(),
			expires_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS community_created_idx
			ON community_posts (created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
