package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert appends one record. The unique (session_id, student_id) index turns
// a duplicate scan into ErrAlreadyMarked instead of a second row.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance
			(ts, date_ymd, batch_id, session_id, student_id, reg_no, name, subject, start_t, end_t, location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, rec.TS, rec.DateYMD, rec.BatchID, rec.SessionID, rec.StudentID,
		rec.RegNo, rec.Name, rec.Subject, rec.Start, rec.End, rec.Location)
	if err := row.Scan(&rec.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Record{}, ErrAlreadyMarked
		}
		return Record{}, err
	}
	return rec, nil
}

// ListForSession returns the records of one session ordered by mark time.
func (r *PostgresRepository) ListForSession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, date_ymd, batch_id, session_id, student_id, reg_no, name, subject, start_t, end_t, location
		FROM attendance
		WHERE session_id = $1
		ORDER BY ts
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.TS, &rec.DateYMD, &rec.BatchID, &rec.SessionID, &rec.StudentID,
			&rec.RegNo, &rec.Name, &rec.Subject, &rec.Start, &rec.End, &rec.Location); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
