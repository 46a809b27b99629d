package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/geofence_reminders/internal/db"
	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reminders (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	radius     DOUBLE PRECISION NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres stores reminders through the shared pgx pool.
type Postgres struct {
	db *db.DB
}

func NewPostgres(database *db.DB) *Postgres {
	return &Postgres{db: database}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	return p.db.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, postgresSchema); err != nil {
			return fmt.Errorf("creating reminders table: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Insert(ctx context.Context, r model.Reminder) error {
	stmt := `
        INSERT INTO reminders (id, name, latitude, longitude, radius, note)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := p.db.Pool().Exec(ctx, stmt,
		r.ID,
		r.Name,
		r.Latitude,
		r.Longitude,
		r.Radius,
		r.Note,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("creating reminder %q: %w", r.ID, ErrDuplicateID)
		}
		return fmt.Errorf("creating reminder: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]model.Reminder, error) {
	stmt := `
		SELECT id, name, latitude, longitude, radius, note
		FROM reminders
		ORDER BY seq
	`
	rows, err := p.db.Pool().Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("getting reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Latitude,
			&r.Longitude,
			&r.Radius,
			&r.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reminders: %w", err)
	}
	return reminders, nil
}

func (p *Postgres) Remove(ctx context.Context, id string) error {
	if _, err := p.db.Pool().Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting reminder: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
