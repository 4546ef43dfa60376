package attendance

import (
	"context"
	"database/sql"
	"errors"
)

// Repository is the persistence contract for attendance records, keyed by
// (student id, date).
type Repository interface {
	GetStatus(ctx context.Context, studentID int, date string) (Status, error)
	SetStatus(ctx context.Context, studentID int, date string, status Status) error
}

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetStatus returns the stored status, or absent when no row exists.
func (r *PostgresRepository) GetStatus(ctx context.Context, studentID int, date string) (Status, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT status FROM attendance WHERE student_id = $1 AND date = $2
	`, studentID, date)
	var status Status
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StatusAbsent, nil
		}
		return "", err
	}
	return status, nil
}

// SetStatus upserts the record for (studentID, date) in a single statement.
// The composite primary key makes concurrent writers for the same pair
// converge on last write wins instead of racing two inserts.
func (r *PostgresRepository) SetStatus(ctx context.Context, studentID int, date string, status Status) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status
	`, studentID, date, status)
	return err
}
