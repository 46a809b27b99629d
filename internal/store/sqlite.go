package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bwise1/geofence_reminders/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reminders (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	radius    REAL NOT NULL,
	note      TEXT NOT NULL DEFAULT ''
);
`

// SQLite stores reminders in an embedded database file.
type SQLite struct{ DB *sql.DB }

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}

	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify sqlite connection to %q: %w", path, err)
	}
	return &SQLite{DB: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite reminders table: %w", err)
	}
	return nil
}

func (s *SQLite) Insert(ctx context.Context, r model.Reminder) error {
	stmt := `
	INSERT INTO reminders (id, name, latitude, longitude, radius, note)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := s.DB.ExecContext(ctx, stmt, r.ID, r.Name, r.Latitude, r.Longitude, r.Radius, r.Note)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return fmt.Errorf("insert reminder %q: %w", r.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert reminder %q: %w", r.ID, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]model.Reminder, error) {
	query := `
	SELECT id, name, latitude, longitude, radius, note
	FROM reminders
	ORDER BY rowid;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reminders: query reminders table: %w", err)
	}
	defer rows.Close()

	reminders := make([]model.Reminder, 0, 16)
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.Name, &r.Latitude, &r.Longitude, &r.Radius, &r.Note); err != nil {
			return nil, fmt.Errorf("list reminders: scan row: %w", err)
		}
		reminders = append(reminders, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: row iteration: %w", err)
	}
	return reminders, nil
}

func (s *SQLite) Remove(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?;`, id); err != nil {
		return fmt.Errorf("delete reminder %q: %w", id, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}
