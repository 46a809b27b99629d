package geofence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/geofence_reminders/internal/http/overpass"
	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/observability"
	"github.com/bwise1/geofence_reminders/internal/platform"
	"github.com/bwise1/geofence_reminders/internal/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFetcher returns the queued results in order, repeating the last one.
type stubFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

type fetchResult struct {
	locations []model.Location
	err       error
}

func (f *stubFetcher) push(locations []model.Location, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, fetchResult{locations, err})
}

func (f *stubFetcher) FetchLocations(context.Context, overpass.Query) ([]model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return nil, errors.New("no response configured")
	}
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	r := f.results[idx]
	return r.locations, r.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
}

func (p *recordingPublisher) Publish(kind string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
}

func (p *recordingPublisher) has(kind string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.kinds, kind)
}

type harness struct {
	ctrl          *Controller
	gateway       *store.Gateway
	fetcher       *stubFetcher
	monitor       *platform.Monitor
	notifications *platform.Notifications
	publisher     *recordingPublisher
	metrics       *observability.Metrics
	clock         *clockwork.FakeClock
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	maxRegions  int
	testOnSave  bool
	notifyGrant bool
}

func withMaxRegions(n int) harnessOption {
	return func(c *harnessConfig) { c.maxRegions = n }
}

func withTestNotificationOnSave() harnessOption {
	return func(c *harnessConfig) { c.testOnSave = true }
}

func withNotificationsDenied() harnessOption {
	return func(c *harnessConfig) { c.notifyGrant = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{maxRegions: 20, notifyGrant: true}
	for _, o := range opts {
		o(&cfg)
	}

	repo, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })

	logger := discardLogger()
	clock := clockwork.NewFakeClock()
	gateway := store.NewGateway(repo, logger)
	monitor := platform.NewMonitor(cfg.maxRegions, clock, logger)
	notifications := platform.NewNotifications(cfg.notifyGrant, clock, logger)
	monitor.SetRegionTrigger(notifications)
	fetcher := &stubFetcher{}
	publisher := &recordingPublisher{}
	metrics := observability.NewMetricsForTesting()

	ctrl := NewController(Params{
		Gateway:       gateway,
		Fetcher:       fetcher,
		Monitor:       monitor,
		Notifications: notifications,
		Publisher:     publisher,
		Metrics:       metrics,
		Clock:         clock,
		Logger:        logger,
		Options: Options{
			EventLogSize:           100,
			TestNotificationOnSave: cfg.testOnSave,
			TestNotificationDelay:  5 * time.Second,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(cancel)

	return &harness{
		ctrl:          ctrl,
		gateway:       gateway,
		fetcher:       fetcher,
		monitor:       monitor,
		notifications: notifications,
		publisher:     publisher,
		metrics:       metrics,
		clock:         clock,
	}
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.ctrl.Snapshot()
	require.NoError(t, err)
	return snap
}

func (h *harness) eventuallyLogged(t *testing.T, message string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Contains(h.ctrl.EventLog().Messages(), message)
	}, waitFor, 5*time.Millisecond, "log never contained %q; got %v", message, h.ctrl.EventLog().Messages())
}

var belvedere = model.Location{
	ID:        "42",
	Name:      "Belvedere Castle",
	Latitude:  40.7794,
	Longitude: -73.9692,
	Category:  "attraction",
}

func TestSaveReminderRegistersGeofence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saved, err := h.ctrl.SaveReminder(ctx, belvedere, 250, "look at the turtles")
	require.NoError(t, err)
	assert.Equal(t, "42", saved.ID)

	regions := h.monitor.MonitoredRegions()
	require.Len(t, regions, 1)
	assert.Equal(t, model.Region{
		ID:            "42",
		Latitude:      40.7794,
		Longitude:     -73.9692,
		Radius:        250,
		NotifyOnEntry: true,
		NotifyOnExit:  true,
	}, regions[0])

	pending := h.notifications.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "42", pending[0].ID)
	assert.Equal(t, "Geofence Alert", pending[0].Title)
	assert.Equal(t, "You have entered/exited Belvedere Castle", pending[0].Body)
	require.NotNil(t, pending[0].Trigger.Region)
	assert.Equal(t, "42", pending[0].Trigger.Region.ID)
	assert.True(t, pending[0].Trigger.Repeats)

	snap := h.snapshot(t)
	assert.Equal(t, []model.Reminder{saved}, snap.Reminders)
	assert.Equal(t, []model.Reminder{saved}, h.ctrl.List().Reminders())

	h.eventuallyLogged(t, "Saved reminder: Belvedere Castle")
	h.eventuallyLogged(t, "Notification scheduled for 42: Belvedere Castle")
	assert.True(t, h.publisher.has("state"))
	assert.True(t, h.publisher.has("log"))
}

func TestSaveReminderGeneratesIDWhenLocationHasNone(t *testing.T) {
	h := newHarness(t)

	loc := belvedere
	loc.ID = ""
	saved, err := h.ctrl.SaveReminder(context.Background(), loc, 100, "")
	require.NoError(t, err)

	_, parseErr := uuid.Parse(saved.ID)
	assert.NoError(t, parseErr)
	assert.Len(t, h.monitor.MonitoredRegions(), 1)
}

func TestSaveReminderUnnamedLocationFallback(t *testing.T) {
	h := newHarness(t)

	loc := belvedere
	loc.Name = ""
	_, err := h.ctrl.SaveReminder(context.Background(), loc, 100, "")
	require.NoError(t, err)

	pending := h.notifications.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "You have entered/exited a location", pending[0].Body)
}

func TestNonPositiveRadiusIsPersistedButNeverMonitored(t *testing.T) {
	for _, radius := range []float64{0, -5} {
		h := newHarness(t)
		ctx := context.Background()

		_, err := h.ctrl.SaveReminder(ctx, belvedere, radius, "")
		require.NoError(t, err)

		assert.Len(t, h.gateway.FetchAll(ctx), 1, "radius %v", radius)
		assert.Empty(t, h.monitor.MonitoredRegions(), "radius %v", radius)
		assert.Empty(t, h.notifications.Pending(), "radius %v", radius)
		h.eventuallyLogged(t, "Saved reminder: Belvedere Castle")
	}
}

func TestOutOfRangeCoordinatesAreRejected(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude above 90", 90.5, 0},
		{"latitude below -90", -91, 0},
		{"longitude above 180", 0, 180.1},
		{"longitude below -180", 0, -200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			loc := model.Location{ID: "bad", Name: "Nowhere", Latitude: tc.lat, Longitude: tc.lon}

			_, err := h.ctrl.SaveReminder(context.Background(), loc, 100, "")
			require.NoError(t, err)

			assert.Empty(t, h.monitor.MonitoredRegions())
			assert.Empty(t, h.notifications.Pending())
			require.Eventually(t, func() bool {
				for _, m := range h.ctrl.EventLog().Messages() {
					if strings.HasPrefix(m, "Error: Invalid geofence parameters for Nowhere") {
						return true
					}
				}
				return false
			}, waitFor, 5*time.Millisecond)
		})
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.sync(func() {
		h.ctrl.register(model.Reminder{Name: "Ghost", Latitude: 1, Longitude: 1, Radius: 10})
	}))

	assert.Empty(t, h.monitor.MonitoredRegions())
	assert.Empty(t, h.notifications.Pending())
	h.eventuallyLogged(t, "Error: Reminder ID is empty for Ghost")
}

func TestRegisterRejectsNaNGeometry(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.sync(func() {
		h.ctrl.register(model.Reminder{ID: "nan-lat", Latitude: math.NaN(), Radius: 10})
		h.ctrl.register(model.Reminder{ID: "nan-radius", Radius: math.NaN()})
		h.ctrl.register(model.Reminder{ID: "inf-radius", Radius: math.Inf(1)})
	}))

	assert.Empty(t, h.monitor.MonitoredRegions())
	assert.Empty(t, h.notifications.Pending())
}

func TestSaveReminderFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.SaveReminder(ctx, belvedere, 100, "first")
	require.NoError(t, err)

	_, err = h.ctrl.SaveReminder(ctx, belvedere, 300, "second")
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	all := h.gateway.FetchAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "first", all[0].Note)
	assert.Len(t, h.snapshot(t).Reminders, 1)
	h.eventuallyLogged(t, "Failed to save reminder for location: Belvedere Castle")
}

func TestSaveReminderSchedulesTestNotification(t *testing.T) {
	h := newHarness(t, withTestNotificationOnSave())

	_, err := h.ctrl.SaveReminder(context.Background(), belvedere, 100, "")
	require.NoError(t, err)

	ids := []string{}
	for _, p := range h.notifications.Pending() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"42", "test_42"}, ids)
	h.eventuallyLogged(t, "Test notification scheduled for test_42")

	h.clock.Advance(5 * time.Second)
	h.eventuallyLogged(t, "Notification will present: test_42")
	assert.Len(t, h.notifications.Pending(), 1)
}

func TestTestNotificationWithoutPermission(t *testing.T) {
	h := newHarness(t, withNotificationsDenied())

	_, err := h.ctrl.TestNotification(context.Background())
	assert.ErrorIs(t, err, platform.ErrNotAuthorized)
	h.eventuallyLogged(t, "Test notification error: not authorized")
}

func TestTestNotificationIsOneShot(t *testing.T) {
	h := newHarness(t)

	id, err := h.ctrl.TestNotification(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^test_[0-9a-f-]{36}$`, id)
	h.eventuallyLogged(t, "Test notification scheduled")
	assert.NotContains(t, h.ctrl.EventLog().Messages(), "Test notification scheduled for "+id)

	h.clock.Advance(5 * time.Second)
	h.eventuallyLogged(t, "Notification will present: "+id)
	assert.Empty(t, h.notifications.Pending())
}

func TestDeleteReminderRemovesStoredAndMonitored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.SaveReminder(ctx, belvedere, 100, "")
	require.NoError(t, err)
	other := model.Location{ID: "7", Name: "Bow Bridge", Latitude: 40.7757, Longitude: -73.9719}
	_, err = h.ctrl.SaveReminder(ctx, other, 100, "")
	require.NoError(t, err)

	assert.True(t, h.ctrl.DeleteReminder(ctx, "42"))

	all := h.gateway.FetchAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "7", all[0].ID)

	regions := h.monitor.MonitoredRegions()
	require.Len(t, regions, 1)
	assert.Equal(t, "7", regions[0].ID)

	pending := h.notifications.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "7", pending[0].ID)

	snap := h.snapshot(t)
	require.Len(t, snap.Reminders, 1)
	assert.Equal(t, "7", snap.Reminders[0].ID)
	assert.Len(t, h.ctrl.List().Reminders(), 1)
	h.eventuallyLogged(t, "Deleted reminder: 42")

	assert.False(t, h.ctrl.DeleteReminder(ctx, "42"))
}

func TestFetchFailureKeepsLocationsAndGoesOffline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := []model.Location{belvedere}
	h.fetcher.push(first, nil)
	h.fetcher.push(nil, errors.New("connection refused"))
	second := []model.Location{{ID: "7", Name: "Bow Bridge", Latitude: 40.7757, Longitude: -73.9719}}
	h.fetcher.push(second, nil)

	require.NoError(t, h.ctrl.FetchLocations(ctx))
	snap := h.snapshot(t)
	assert.Equal(t, first, snap.Locations)
	assert.False(t, snap.IsOffline)

	assert.Error(t, h.ctrl.FetchLocations(ctx))
	snap = h.snapshot(t)
	assert.Equal(t, first, snap.Locations)
	assert.True(t, snap.IsOffline)
	assert.Contains(t, h.ctrl.EventLog().Messages(), "Network fetch failed: Offline mode")

	require.NoError(t, h.ctrl.FetchLocations(ctx))
	snap = h.snapshot(t)
	assert.Equal(t, second, snap.Locations)
	assert.False(t, snap.IsOffline)
	assert.Contains(t, h.ctrl.EventLog().Messages(), "Fetched locations: [Bow Bridge: 40.7757, -73.9719]")
}

func TestAuthorizationStateMachine(t *testing.T) {
	h := newHarness(t)

	h.monitor.SetAuthorization(model.AuthorizationWhenInUse)
	h.eventuallyLogged(t, "Authorization status: When in use authorization granted")
	assert.Equal(t, platform.PromptAlways, h.monitor.State().PendingPrompt)
	assert.Equal(t, model.AuthorizationWhenInUse, h.snapshot(t).Authorization)

	h.monitor.SetAuthorization(model.AuthorizationAlways)
	h.eventuallyLogged(t, "Authorization status: Always authorization granted")
	assert.Eventually(t, func() bool { return h.monitor.State().UpdatingLocation }, waitFor, 5*time.Millisecond)
	assert.False(t, h.snapshot(t).ShowPermissionAlert)

	h.monitor.SetAuthorization(model.AuthorizationDenied)
	h.eventuallyLogged(t, "Authorization status: Location access denied")
	assert.True(t, h.snapshot(t).ShowPermissionAlert)
}

func TestRestrictedAuthorizationShowsAlert(t *testing.T) {
	h := newHarness(t)

	h.monitor.SetAuthorization(model.AuthorizationRestricted)

	h.eventuallyLogged(t, "Authorization status: Location access restricted")
	assert.True(t, h.snapshot(t).ShowPermissionAlert)
}

func TestRegionCrossingsAreLoggedAndNotified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.monitor.SetAuthorization(model.AuthorizationAlways)
	_, err := h.ctrl.SaveReminder(ctx, belvedere, 150, "")
	require.NoError(t, err)

	require.NoError(t, h.monitor.ReportLocation(model.Coordinate{Latitude: 40.7795, Longitude: -73.9691}))
	h.eventuallyLogged(t, "Entered geofence: 42")
	h.eventuallyLogged(t, "Notification will present: 42")

	require.NoError(t, h.monitor.ReportLocation(model.Coordinate{Latitude: 40.7900, Longitude: -73.9500}))
	h.eventuallyLogged(t, "Exited geofence: 42")

	delivered := h.notifications.Delivered()
	require.Len(t, delivered, 2)
	assert.Equal(t, "enter", delivered[0].Event)
	assert.Equal(t, "exit", delivered[1].Event)
	assert.Len(t, h.notifications.Pending(), 1)
}

func TestMonitoringFailureIsLogged(t *testing.T) {
	h := newHarness(t, withMaxRegions(1))
	ctx := context.Background()

	_, err := h.ctrl.SaveReminder(ctx, belvedere, 100, "")
	require.NoError(t, err)
	_, err = h.ctrl.SaveReminder(ctx, model.Location{ID: "7", Name: "Bow Bridge", Latitude: 40.7757, Longitude: -73.9719}, 100, "")
	require.NoError(t, err)

	h.eventuallyLogged(t, "Geofence monitoring failed for 7: "+platform.ErrRegionLimit.Error())
	assert.Len(t, h.monitor.MonitoredRegions(), 1)

	pending := h.notifications.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "42", pending[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("monitor_failed")))
	assert.Len(t, h.gateway.FetchAll(ctx), 2)
}

func TestClearGeofences(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.SaveReminder(ctx, belvedere, 100, "")
	require.NoError(t, err)

	require.NoError(t, h.ctrl.ClearGeofences())

	assert.Empty(t, h.monitor.MonitoredRegions())
	assert.Empty(t, h.notifications.Pending())
	assert.Len(t, h.gateway.FetchAll(ctx), 1)
	assert.Contains(t, h.ctrl.EventLog().Messages(), "Cleared all monitored regions")
}

func TestStartLoadsPersistedReminders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gateway.Save(ctx, model.Reminder{ID: "42", Name: "Belvedere Castle", Latitude: 40.7794, Longitude: -73.9692, Radius: 100})
	require.NoError(t, err)
	_, err = h.gateway.Save(ctx, model.Reminder{ID: "bad", Name: "Broken", Latitude: 40, Longitude: -73, Radius: 0})
	require.NoError(t, err)
	h.fetcher.push(nil, errors.New("offline"))

	require.NoError(t, h.ctrl.Start(ctx))

	snap := h.snapshot(t)
	assert.Len(t, snap.Reminders, 2)
	assert.True(t, snap.IsOffline)
	assert.Equal(t, model.DefaultMapRegion(), snap.MapRegion)
	assert.Len(t, h.ctrl.List().Reminders(), 2)

	regions := h.monitor.MonitoredRegions()
	require.Len(t, regions, 1)
	assert.Equal(t, "42", regions[0].ID)
	assert.Equal(t, platform.PromptAlways, h.monitor.State().PendingPrompt)

	messages := h.ctrl.EventLog().Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "Notification permission granted", messages[0])
}

func TestSnapshotAfterStop(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewController(Params{
		Gateway:       h.gateway,
		Fetcher:       h.fetcher,
		Monitor:       platform.NewMonitor(20, h.clock, discardLogger()),
		Notifications: platform.NewNotifications(true, h.clock, discardLogger()),
		Metrics:       observability.NewMetricsForTesting(),
		Clock:         h.clock,
		Logger:        discardLogger(),
	})
	stopped := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	_, err := ctrl.Snapshot()
	assert.ErrorIs(t, err, ErrStopped)
}
