package schedule

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepository persists schedule slots in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const slotColumns = `id, batch_id, weekday, subject, start_t, end_t, location`

// SlotsForWeekday returns slots for one batch and weekday ordered by start.
func (r *PostgresRepository) SlotsForWeekday(ctx context.Context, batchID string, weekday int) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE batch_id = $1 AND weekday = $2
		ORDER BY start_t
	`, batchID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// Week returns every slot of a batch, ordered by weekday then start.
func (r *PostgresRepository) Week(ctx context.Context, batchID string) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE batch_id = $1
		ORDER BY weekday, start_t
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// Slot returns one slot by id, scoped to a batch. Missing slots return nil.
func (r *PostgresRepository) Slot(ctx context.Context, slotID, batchID string) (*Slot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE id = $1 AND batch_id = $2
		LIMIT 1
	`, slotID, batchID)
	var s Slot
	if err := row.Scan(&s.ID, &s.BatchID, &s.Weekday, &s.Subject, &s.Start, &s.End, &s.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ReplaceWeek deletes the batch's slots and inserts the replacement set in
// one transaction.
func (r *PostgresRepository) ReplaceWeek(ctx context.Context, batchID string, slots []Slot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE batch_id = $1`, batchID); err != nil {
		return err
	}
	for _, s := range slots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_slots (id, batch_id, weekday, subject, start_t, end_t, location)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, batchID, s.Weekday, s.Subject, s.Start, s.End, s.Location); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SeedSlots inserts slots only when the batch has none yet.
func (r *PostgresRepository) SeedSlots(ctx context.Context, batchID string, slots []Slot) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM schedule_slots WHERE batch_id = $1 LIMIT 1`, batchID).Scan(&one)
	if err == nil {
		return nil // already populated
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	for _, s := range slots {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO schedule_slots (id, batch_id, weekday, subject, start_t, end_t, location)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, s.BatchID, s.Weekday, s.Subject, s.Start, s.End, s.Location); err != nil {
			return err
		}
	}
	return nil
}

func scanSlots(rows *sql.Rows) ([]Slot, error) {
	var res []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.BatchID, &s.Weekday, &s.Subject, &s.Start, &s.End, &s.Location); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
