package admin

import (
	"context"
	"database/sql"
	"errors"
)

// Admin represents a registered administrator.
type Admin struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Repository is the persistence contract for admin records.
type Repository interface {
	Upsert(ctx context.Context, username, passwordHash string) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}

// PostgresRepository persists admins in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert creates an admin or overwrites the password hash of an existing one.
func (r *PostgresRepository) Upsert(ctx context.Context, username, passwordHash string) error {
	if username == "" {
		return errors.New("username required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, username, passwordHash)
	return err
}

// GetByUsername returns an admin or nil when no such username exists.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash FROM admins WHERE username = $1
	`, username)
	var a Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
