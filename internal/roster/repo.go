package roster

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a student id does not exist.
var ErrNotFound = errors.New("student not found")

// Student is a roster entry. Attendance records reference it by id.
type Student struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Repository is the persistence contract for the student roster.
type Repository interface {
	List(ctx context.Context) ([]Student, error)
	Create(ctx context.Context, name string) (Student, error)
	Update(ctx context.Context, id int, name string) (Student, error)
	Delete(ctx context.Context, id int) error
}

// PostgresRepository persists students in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all students ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Create inserts a student and returns it with the assigned id.
func (r *PostgresRepository) Create(ctx context.Context, name string) (Student, error) {
	var s Student
	s.Name = name
	row := r.db.QueryRowContext(ctx, `INSERT INTO students (name) VALUES ($1) RETURNING id`, name)
	if err := row.Scan(&s.ID); err != nil {
		return Student{}, err
	}
	return s, nil
}

// Update renames a student.
func (r *PostgresRepository) Update(ctx context.Context, id int, name string) (Student, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return Student{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Student{}, ErrNotFound
	}
	return Student{ID: id, Name: name}, nil
}

// Delete removes a student.
func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
