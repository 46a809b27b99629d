// Package store persists reminders. Repository implementations talk to a
// concrete database; Gateway layers the reminder persistence rules on top.
package store

import (
	"context"
	"errors"

	"github.com/bwise1/geofence_reminders/internal/model"
)

var (
	ErrEmptyID     = errors.New("reminder id is required")
	ErrDuplicateID = errors.New("reminder id already exists")
)

// Repository is the CRUD surface a reminder backend must provide.
// List returns reminders in insertion order.
type Repository interface {
	Migrate(ctx context.Context) error
	Insert(ctx context.Context, r model.Reminder) error
	List(ctx context.Context) ([]model.Reminder, error)
	Remove(ctx context.Context, id string) error
	Close() error
}
