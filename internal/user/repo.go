package user

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepository persists users and batches in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, role, COALESCE(reg_no, ''), COALESCE(batch_id, '')`

func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)::int FROM users`).Scan(&count)
	return count, err
}

func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`, password FROM users WHERE email = $1 LIMIT 1
	`, email)
	return scanUserWithHash(row)
}

func (r *PostgresRepository) UserByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`, password FROM users WHERE id = $1 LIMIT 1
	`, id)
	return scanUserWithHash(row)
}

func scanUserWithHash(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.RegNo, &u.BatchID, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password, role, reg_no, batch_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.RegNo, u.BatchID)
	return err
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.RegNo, &u.BatchID); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, id, name, regNo, batchID string) (*User, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, reg_no = $3, batch_id = $4 WHERE id = $1
	`, id, name, regNo, batchID); err != nil {
		return nil, err
	}
	return r.UserByID(ctx, id)
}

func (r *PostgresRepository) BatchByNumber(ctx context.Context, number string) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, number, name FROM batches WHERE number = $1 LIMIT 1`, number)
	return scanBatch(row)
}

func (r *PostgresRepository) BatchByID(ctx context.Context, id string) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, number, name FROM batches WHERE id = $1 LIMIT 1`, id)
	return scanBatch(row)
}

func scanBatch(row *sql.Row) (*Batch, error) {
	var b Batch
	if err := row.Scan(&b.ID, &b.Number, &b.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, b Batch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO batches (id, number, name) VALUES ($1,$2,$3)
	`, b.ID, b.Number, b.Name)
	return err
}

func (r *PostgresRepository) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, number, name FROM batches ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Number, &b.Name); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) RenameBatch(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE batches SET name = $2 WHERE id = $1`, id, name)
	return err
}
