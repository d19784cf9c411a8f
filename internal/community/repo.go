package community

import (
	"context"
	"database/sql"
)

// PostgresRepository persists board posts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// PurgeExpired deletes anonymous posts past their expiry.
func (r *PostgresRepository) PurgeExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM community_posts
		WHERE type = 'anon' AND expires_at IS NOT NULL AND expires_at < now()
	`)
	return err
}

// List returns live posts, announcements pinned first, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.author_id, c.body, c.type, c.pinned, c.created_at, c.expires_at,
		       u.name, u.email
		FROM community_posts c
		JOIN users u ON u.id = c.author_id
		WHERE (c.type = 'announcement' OR c.expires_at IS NULL OR c.expires_at > now())
		ORDER BY c.pinned DESC, c.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Body, &p.Type, &p.Pinned, &p.CreatedAt, &p.ExpiresAt,
			&p.AuthorName, &p.AuthorEmail); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Insert stores a new post.
func (r *PostgresRepository) Insert(ctx context.Context, p Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO community_posts (id, author_id, body, type, pinned, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.AuthorID, p.Body, p.Type, p.Pinned, p.CreatedAt, p.ExpiresAt)
	return err
}

// Delete removes a post by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM community_posts WHERE id = $1`, id)
	return err
}
