package store

import "context"

// The attendance table keys on (student_id, date) so a day's mark for a
// student is a single row that upserts replace.
const schema = `
CREATE TABLE IF NOT EXISTS admins (
	id SERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance (
	student_id INTEGER NOT NULL REFERENCES students(id),
	date DATE NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (student_id, date)
);
`

// EnsureSchema creates the tables when they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
