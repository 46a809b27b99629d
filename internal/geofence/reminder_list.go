package geofence

import (
	"context"
	"sync"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/store"
)

// ReminderList is the read/delete view over persisted reminders. It only
// reloads when told to.
type ReminderList struct {
	gateway *store.Gateway

	mu        sync.RWMutex
	reminders []model.Reminder
	onDelete  []func(id string)
}

func NewReminderList(gateway *store.Gateway) *ReminderList {
	return &ReminderList{gateway: gateway, reminders: []model.Reminder{}}
}

// OnDelete registers fn to run after a reminder is deleted.
func (l *ReminderList) OnDelete(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDelete = append(l.onDelete, fn)
}

// Load replaces the list with the persisted reminders.
func (l *ReminderList) Load(ctx context.Context) []model.Reminder {
	reminders := l.gateway.FetchAll(ctx)

	l.mu.Lock()
	l.reminders = reminders
	l.mu.Unlock()
	return reminders
}

func (l *ReminderList) Refresh(ctx context.Context) []model.Reminder {
	return l.Load(ctx)
}

// Delete removes the reminder from the store, reloads, then runs the delete hooks.
func (l *ReminderList) Delete(ctx context.Context, id string) {
	l.gateway.Delete(ctx, id)
	l.Load(ctx)

	l.mu.RLock()
	hooks := append(([]func(string))(nil), l.onDelete...)
	l.mu.RUnlock()

	for _, fn := range hooks {
		fn(id)
	}
}

// Reminders returns the reminders as of the last load.
func (l *ReminderList) Reminders() []model.Reminder {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Reminder, len(l.reminders))
	copy(out, l.reminders)
	return out
}

// Find returns the loaded reminder with the given id.
func (l *ReminderList) Find(id string) (model.Reminder, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.reminders {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reminder{}, false
}
