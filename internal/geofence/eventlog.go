package geofence

import (
	"log/slog"
	"sync"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/jonboulle/clockwork"
)

const defaultEventLogSize = 500

// EventLog keeps the most recent geofence trace lines in a ring buffer and
// mirrors every line to the structured logger.
type EventLog struct {
	mu      sync.RWMutex
	entries []model.LogEntry
	start   int
	count   int

	clock    clockwork.Clock
	logger   *slog.Logger
	onAppend func(model.LogEntry)
}

func NewEventLog(size int, clock clockwork.Clock, logger *slog.Logger) *EventLog {
	if size <= 0 {
		size = defaultEventLogSize
	}
	return &EventLog{
		entries: make([]model.LogEntry, size),
		clock:   clock,
		logger:  logger,
	}
}

// OnAppend registers fn to be called with every new entry.
func (l *EventLog) OnAppend(fn func(model.LogEntry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAppend = fn
}

// Append records message, evicting the oldest entry when the buffer is full.
func (l *EventLog) Append(message string) model.LogEntry {
	entry := model.LogEntry{At: l.clock.Now(), Message: message}

	l.mu.Lock()
	idx := (l.start + l.count) % len(l.entries)
	l.entries[idx] = entry
	if l.count < len(l.entries) {
		l.count++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
	hook := l.onAppend
	l.mu.Unlock()

	l.logger.Info(message, "component", "geofence")
	if hook != nil {
		hook(entry)
	}
	return entry
}

// Entries returns the retained entries, oldest first.
func (l *EventLog) Entries() []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.LogEntry, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}

// Messages returns the retained messages, oldest first.
func (l *EventLog) Messages() []string {
	entries := l.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
