// Package geofence turns persisted reminders into monitored regions and
// reacts to the callbacks the platform reports for them.
//
// All published state is owned by the goroutine running Controller.Run.
// Work from other goroutines is handed to it through a queue: async for
// fire-and-forget updates, sync when the caller needs the result.
package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwise1/geofence_reminders/config"
	"github.com/bwise1/geofence_reminders/internal/http/overpass"
	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/observability"
	"github.com/bwise1/geofence_reminders/internal/platform"
	"github.com/bwise1/geofence_reminders/internal/store"
	"github.com/jonboulle/clockwork"
)

const queueSize = 256

var ErrStopped = errors.New("geofence controller is not running")

// Fetcher loads points of interest.
type Fetcher interface {
	FetchLocations(ctx context.Context, q overpass.Query) ([]model.Location, error)
}

// Publisher pushes state changes to connected clients.
type Publisher interface {
	Publish(kind string, data interface{})
}

type Options struct {
	Query                  overpass.Query
	EventLogSize           int
	TestNotificationOnSave bool
	TestNotificationDelay  time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Query: overpass.Query{
			TagKey:       cfg.POITagKey,
			TagValue:     cfg.POITagValue,
			Latitude:     cfg.POICenterLat,
			Longitude:    cfg.POICenterLon,
			RadiusMeters: cfg.POIRadiusMeters,
		},
		EventLogSize:           cfg.EventLogSize,
		TestNotificationOnSave: cfg.TestNotificationOnSave,
		TestNotificationDelay:  cfg.TestNotificationDelay,
	}
}

type Params struct {
	Gateway       *store.Gateway
	Fetcher       Fetcher
	Monitor       *platform.Monitor
	Notifications *platform.Notifications
	Publisher     Publisher
	Metrics       *observability.Metrics
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Options       Options
}

// State is what the map screen renders.
type State struct {
	Locations           []model.Location          `json:"locations"`
	Reminders           []model.Reminder          `json:"reminders"`
	IsOffline           bool                      `json:"is_offline"`
	ShowPermissionAlert bool                      `json:"show_permission_alert"`
	Authorization       model.AuthorizationStatus `json:"authorization"`
	MapRegion           model.MapRegion           `json:"map_region"`
}

// Snapshot is State plus the event log.
type Snapshot struct {
	State
	Log []model.LogEntry `json:"log"`
}

type Controller struct {
	gateway       *store.Gateway
	fetcher       Fetcher
	monitor       *platform.Monitor
	notifications *platform.Notifications
	list          *ReminderList
	events        *EventLog
	publisher     Publisher
	metrics       *observability.Metrics
	clock         clockwork.Clock
	logger        *slog.Logger
	opts          Options

	queue chan func()
	done  chan struct{}

	// owned by the Run goroutine
	state State
}

// NewController wires the controller as the delegate of the monitor and the
// notification center.
func NewController(p Params) *Controller {
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	if p.Options.TestNotificationDelay <= 0 {
		p.Options.TestNotificationDelay = model.TestNotificationDelay
	}

	c := &Controller{
		gateway:       p.Gateway,
		fetcher:       p.Fetcher,
		monitor:       p.Monitor,
		notifications: p.Notifications,
		list:          NewReminderList(p.Gateway),
		events:        NewEventLog(p.Options.EventLogSize, p.Clock, p.Logger),
		publisher:     p.Publisher,
		metrics:       p.Metrics,
		clock:         p.Clock,
		logger:        p.Logger,
		opts:          p.Options,
		queue:         make(chan func(), queueSize),
		done:          make(chan struct{}),
		state: State{
			Locations:     []model.Location{},
			Reminders:     []model.Reminder{},
			Authorization: p.Monitor.AuthorizationStatus(),
			MapRegion:     model.DefaultMapRegion(),
		},
	}

	if c.publisher != nil {
		c.events.OnAppend(func(e model.LogEntry) { c.publisher.Publish("log", e) })
	}
	c.list.OnDelete(c.forget)
	p.Monitor.SetDelegate(c)
	p.Notifications.SetDelegate(c)
	return c
}

// Run processes queued work until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.queue:
			fn()
		}
	}
}

// async queues fn without blocking the caller.
func (c *Controller) async(fn func()) {
	select {
	case c.queue <- fn:
	default:
		go func() {
			select {
			case c.queue <- fn:
			case <-c.done:
			}
		}()
	}
}

// sync queues fn and waits for it to run. It must not be called from the
// Run goroutine.
func (c *Controller) sync(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.queue <- wrapped:
	case <-c.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// List returns the reminder list view-model backed by the same gateway.
func (c *Controller) List() *ReminderList {
	return c.list
}

func (c *Controller) EventLog() *EventLog {
	return c.events
}

// Start requests permissions, fetches points of interest and registers every
// persisted reminder.
func (c *Controller) Start(ctx context.Context) error {
	granted, err := c.notifications.RequestAuthorization(ctx)
	regions := c.monitor.MonitoredRegions()
	if syncErr := c.sync(func() {
		switch {
		case granted:
			c.events.Append("Notification permission granted")
		case err != nil:
			c.events.Append(fmt.Sprintf("Notification permission denied: %v", err))
		default:
			c.events.Append("Notification permission denied: Unknown")
		}
		c.logger.Info("monitored regions at init", "count", len(regions))
	}); syncErr != nil {
		return syncErr
	}

	// Offline mode is a valid start.
	_ = c.FetchLocations(ctx)

	c.list.Load(ctx)
	if err := c.LoadReminders(ctx); err != nil {
		return err
	}

	c.RequestAuthorization()
	return nil
}

// RequestAuthorization asks for when-in-use and then always location access.
func (c *Controller) RequestAuthorization() {
	c.logger.Debug("requesting always authorization")
	c.monitor.RequestWhenInUseAuthorization()
	c.monitor.RequestAlwaysAuthorization()
}

// FetchLocations replaces the location list on success. On failure the
// previous list is kept and the controller goes offline.
func (c *Controller) FetchLocations(ctx context.Context) error {
	locations, err := c.fetcher.FetchLocations(ctx, c.opts.Query)

	if syncErr := c.sync(func() {
		if err != nil {
			c.metrics.LocationFetches.WithLabelValues("error").Inc()
			c.logger.Warn("location fetch failed", "error", err)
			c.state.IsOffline = true
			c.events.Append("Network fetch failed: Offline mode")
			c.publishState()
			return
		}

		c.metrics.LocationFetches.WithLabelValues("success").Inc()
		c.state.Locations = locations
		c.state.IsOffline = false
		c.events.Append(fetchedMessage(locations))
		c.publishState()
	}); syncErr != nil {
		return syncErr
	}
	return err
}

func fetchedMessage(locations []model.Location) string {
	parts := make([]string, len(locations))
	for i, l := range locations {
		parts[i] = fmt.Sprintf("%s: %v, %v", l.Name, l.Latitude, l.Longitude)
	}
	return fmt.Sprintf("Fetched locations: [%s]", strings.Join(parts, "; "))
}

// LoadReminders mirrors the persisted reminders and registers each of them.
func (c *Controller) LoadReminders(ctx context.Context) error {
	reminders := c.gateway.FetchAll(ctx)
	return c.sync(func() {
		c.state.Reminders = reminders
		for _, r := range reminders {
			c.register(r)
		}
		c.publishState()
	})
}

// SaveReminder persists a reminder for location and starts monitoring it.
// The location id is reused as the reminder id; a new one is generated when
// it is empty.
func (c *Controller) SaveReminder(ctx context.Context, location model.Location, radius float64, note string) (model.Reminder, error) {
	id := location.ID
	if id == "" {
		id = newID()
	}

	saved, err := c.gateway.Save(ctx, model.Reminder{
		ID:        id,
		Name:      location.Name,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
		Radius:    radius,
		Note:      note,
	})
	if err != nil {
		c.async(func() {
			c.events.Append(fmt.Sprintf("Failed to save reminder for location: %s", location.Name))
		})
		return model.Reminder{}, err
	}

	if err := c.sync(func() {
		c.state.Reminders = append(c.state.Reminders, saved)
		c.register(saved)
		c.publishState()
	}); err != nil {
		return saved, err
	}

	c.list.Refresh(ctx)
	c.async(func() {
		c.events.Append(fmt.Sprintf("Saved reminder: %s", saved.DisplayName("unknown")))
	})

	if c.opts.TestNotificationOnSave {
		testID := "test_" + id
		_ = c.scheduleTestNotification(ctx, testID, fmt.Sprintf("Testing notification system for %s", location.Name),
			fmt.Sprintf("Test notification scheduled for %s", testID))
	}
	return saved, nil
}

// DeleteReminder deletes the reminder through the reminder list. It reports
// false when no such reminder is loaded.
func (c *Controller) DeleteReminder(ctx context.Context, id string) bool {
	c.list.Refresh(ctx)
	if _, ok := c.list.Find(id); !ok {
		return false
	}
	c.list.Delete(ctx, id)
	return true
}

// forget runs after a reminder is deleted from the store.
func (c *Controller) forget(id string) {
	c.monitor.StopMonitoring(id)
	c.notifications.Remove(id)
	c.metrics.MonitoredRegions.Set(float64(len(c.monitor.MonitoredRegions())))

	_ = c.sync(func() {
		kept := make([]model.Reminder, 0, len(c.state.Reminders))
		for _, r := range c.state.Reminders {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		c.state.Reminders = kept
		c.events.Append(fmt.Sprintf("Deleted reminder: %s", id))
		c.publishState()
	})
}

// ClearGeofences stops every monitored region and removes its notification.
// Persisted reminders are kept.
func (c *Controller) ClearGeofences() error {
	regions := c.monitor.MonitoredRegions()
	ids := make([]string, 0, len(regions))
	for _, r := range regions {
		c.monitor.StopMonitoring(r.ID)
		ids = append(ids, r.ID)
	}
	c.notifications.Remove(ids...)
	c.metrics.MonitoredRegions.Set(0)

	return c.sync(func() {
		c.events.Append("Cleared all monitored regions")
	})
}

// TestNotification schedules a one-shot notification after the test delay.
func (c *Controller) TestNotification(ctx context.Context) (string, error) {
	id := "test_" + newID()
	err := c.scheduleTestNotification(ctx, id, "Testing notification system", "Test notification scheduled")
	return id, err
}

// scheduleTestNotification adds a one-shot alert and logs scheduled once the
// request is accepted.
func (c *Controller) scheduleTestNotification(ctx context.Context, id, body, scheduled string) error {
	err := c.notifications.Add(ctx, model.NotificationRequest{
		ID:      id,
		Title:   model.TestNotificationTitle,
		Body:    body,
		Sound:   true,
		Trigger: model.Trigger{Interval: c.opts.TestNotificationDelay},
	})
	c.async(func() {
		if err != nil {
			c.events.Append(fmt.Sprintf("Test notification error: %v", err))
			return
		}
		c.events.Append(scheduled)
	})
	return err
}

// Snapshot returns a copy of the published state and the event log.
func (c *Controller) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := c.sync(func() {
		snap.State = c.copyState()
	})
	snap.Log = c.events.Entries()
	return snap, err
}

func (c *Controller) copyState() State {
	st := c.state
	st.Locations = append(make([]model.Location, 0, len(c.state.Locations)), c.state.Locations...)
	st.Reminders = append(make([]model.Reminder, 0, len(c.state.Reminders)), c.state.Reminders...)
	return st
}

func (c *Controller) publishState() {
	if c.publisher != nil {
		c.publisher.Publish("state", c.copyState())
	}
}
