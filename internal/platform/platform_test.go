package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures delegate callbacks and sink deliveries.
type recorder struct {
	mu        sync.Mutex
	auth      []model.AuthorizationStatus
	events    []model.RegionEvent
	failures  map[string]error
	fixes     []model.Coordinate
	presented []model.DeliveredNotification
	sunk      []model.DeliveredNotification
}

func newRecorder() *recorder {
	return &recorder{failures: make(map[string]error)}
}

func (r *recorder) HandleAuthorizationChange(s model.AuthorizationStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = append(r.auth, s)
}

func (r *recorder) HandleRegionEvent(ev model.RegionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) HandleMonitoringFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id] = err
}

func (r *recorder) HandleLocationUpdate(c model.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, c)
}

func (r *recorder) HandleNotificationPresented(n model.DeliveredNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presented = append(r.presented, n)
}

func (r *recorder) Deliver(_ context.Context, n model.DeliveredNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sunk = append(r.sunk, n)
	return nil
}

func (r *recorder) presentedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.presented)
}

var fountain = model.Region{
	ID:            "fountain",
	Latitude:      40.7740,
	Longitude:     -73.9708,
	Radius:        200,
	NotifyOnEntry: true,
	NotifyOnExit:  true,
}

var (
	atFountain = model.Coordinate{Latitude: 40.7741, Longitude: -73.9709}
	farAway    = model.Coordinate{Latitude: 40.7900, Longitude: -73.9500}
)

func newMonitor(t *testing.T, maxRegions int) (*Monitor, *recorder) {
	t.Helper()
	rec := newRecorder()
	m := NewMonitor(maxRegions, clockwork.NewFakeClock(), discardLogger())
	m.SetDelegate(rec)
	return m, rec
}

func TestMonitorRegionLimit(t *testing.T) {
	m, rec := newMonitor(t, 2)

	require.NoError(t, m.StartMonitoring(model.Region{ID: "a", Radius: 10}))
	require.NoError(t, m.StartMonitoring(model.Region{ID: "b", Radius: 10}))
	require.NoError(t, m.StartMonitoring(model.Region{ID: "a", Radius: 20}))
	assert.ErrorIs(t, m.StartMonitoring(model.Region{ID: "c", Radius: 10}), ErrRegionLimit)

	regions := m.MonitoredRegions()
	require.Len(t, regions, 2)
	assert.Equal(t, 20.0, regions[0].Radius)
	assert.ErrorIs(t, rec.failures["c"], ErrRegionLimit)
}

func TestMonitorRejectsInvalidRegion(t *testing.T) {
	m, rec := newMonitor(t, 20)

	assert.ErrorIs(t, m.StartMonitoring(model.Region{ID: "zero", Radius: 0}), ErrInvalidRegion)

	assert.Empty(t, m.MonitoredRegions())
	assert.ErrorIs(t, rec.failures["zero"], ErrInvalidRegion)
}

func TestMonitorStopMonitoring(t *testing.T) {
	m, _ := newMonitor(t, 20)
	m.StartMonitoring(fountain)

	m.StopMonitoring("fountain")
	m.StopMonitoring("unknown")

	assert.Empty(t, m.MonitoredRegions())
}

func TestMonitorAuthorizationPrompts(t *testing.T) {
	m, rec := newMonitor(t, 20)

	m.RequestWhenInUseAuthorization()
	assert.Equal(t, PromptWhenInUse, m.State().PendingPrompt)

	m.SetAuthorization(model.AuthorizationWhenInUse)
	assert.Equal(t, PromptNone, m.State().PendingPrompt)

	m.RequestWhenInUseAuthorization()
	assert.Equal(t, PromptNone, m.State().PendingPrompt)

	m.RequestAlwaysAuthorization()
	assert.Equal(t, PromptAlways, m.State().PendingPrompt)

	m.SetAuthorization(model.AuthorizationDenied)
	m.RequestAlwaysAuthorization()
	assert.Equal(t, PromptNone, m.State().PendingPrompt)

	assert.Equal(t, []model.AuthorizationStatus{model.AuthorizationWhenInUse, model.AuthorizationDenied}, rec.auth)
}

func TestMonitorLocationRequiresAuthorization(t *testing.T) {
	m, _ := newMonitor(t, 20)

	assert.ErrorIs(t, m.StartUpdatingLocation(), ErrNotAuthorized)
	assert.ErrorIs(t, m.ReportLocation(atFountain), ErrNotAuthorized)
}

func TestMonitorRejectsOutOfRangeFix(t *testing.T) {
	m, rec := newMonitor(t, 20)
	m.SetAuthorization(model.AuthorizationAlways)
	require.NoError(t, m.StartUpdatingLocation())
	require.NoError(t, m.StartMonitoring(fountain))

	for _, fix := range []model.Coordinate{
		{Latitude: fountain.Latitude + 360, Longitude: fountain.Longitude},
		{Latitude: fountain.Latitude, Longitude: fountain.Longitude - 360},
		{Latitude: math.NaN(), Longitude: fountain.Longitude},
		{Latitude: fountain.Latitude, Longitude: math.Inf(1)},
	} {
		assert.ErrorIs(t, m.ReportLocation(fix), ErrInvalidLocation, "fix %+v", fix)
	}

	assert.Empty(t, rec.events)
	assert.Empty(t, rec.fixes)
	assert.Nil(t, m.State().LastLocation)

	require.NoError(t, m.ReportLocation(atFountain))
	require.Len(t, rec.events, 1)
	assert.Equal(t, model.RegionEnter, rec.events[0].Kind)
}

func TestMonitorRegionTransitions(t *testing.T) {
	m, rec := newMonitor(t, 20)
	m.SetAuthorization(model.AuthorizationAlways)
	require.NoError(t, m.StartUpdatingLocation())
	m.StartMonitoring(fountain)

	require.NoError(t, m.ReportLocation(farAway))
	require.NoError(t, m.ReportLocation(atFountain))
	require.NoError(t, m.ReportLocation(atFountain))
	require.NoError(t, m.ReportLocation(farAway))

	require.Len(t, rec.events, 2)
	assert.Equal(t, model.RegionEnter, rec.events[0].Kind)
	assert.Equal(t, "fountain", rec.events[0].RegionID)
	assert.Equal(t, model.RegionExit, rec.events[1].Kind)
	assert.Len(t, rec.fixes, 4)
	assert.Equal(t, &farAway, m.State().LastLocation)
}

func TestMonitorWhenInUseDoesNotEvaluateRegions(t *testing.T) {
	m, rec := newMonitor(t, 20)
	m.SetAuthorization(model.AuthorizationWhenInUse)
	m.StartMonitoring(fountain)

	require.NoError(t, m.ReportLocation(atFountain))

	assert.Empty(t, rec.events)
	assert.Empty(t, rec.fixes)
}

func TestMonitorRegisteringWhileInsideDoesNotFireEnter(t *testing.T) {
	m, rec := newMonitor(t, 20)
	m.SetAuthorization(model.AuthorizationAlways)
	require.NoError(t, m.ReportLocation(atFountain))

	m.StartMonitoring(fountain)
	require.NoError(t, m.ReportLocation(atFountain))

	assert.Empty(t, rec.events)
}

func newNotifications(t *testing.T, granted bool) (*Notifications, *recorder, *clockwork.FakeClock) {
	t.Helper()
	rec := newRecorder()
	clock := clockwork.NewFakeClock()
	n := NewNotifications(granted, clock, discardLogger(), rec)
	n.SetDelegate(rec)
	return n, rec, clock
}

func TestNotificationsRejectsWhenNotGranted(t *testing.T) {
	n, _, _ := newNotifications(t, false)

	granted, err := n.RequestAuthorization(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)

	err = n.Add(context.Background(), model.NotificationRequest{
		ID:      "x",
		Trigger: model.Trigger{Interval: time.Second},
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Empty(t, n.Pending())
}

func TestNotificationsRejectsAmbiguousTrigger(t *testing.T) {
	n, _, _ := newNotifications(t, true)
	region := fountain

	err := n.Add(context.Background(), model.NotificationRequest{ID: "none"})
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	err = n.Add(context.Background(), model.NotificationRequest{
		ID:      "both",
		Trigger: model.Trigger{Region: &region, Interval: time.Second},
	})
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestNotificationsIntervalTrigger(t *testing.T) {
	n, rec, clock := newNotifications(t, true)

	err := n.Add(context.Background(), model.NotificationRequest{
		ID:      "test_1",
		Title:   model.TestNotificationTitle,
		Trigger: model.Trigger{Interval: 5 * time.Second},
	})
	require.NoError(t, err)
	require.Len(t, n.Pending(), 1)

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, rec.presentedCount())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.presentedCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Empty(t, n.Pending())
	require.Len(t, n.Delivered(), 1)
	assert.Equal(t, "test_1", n.Delivered()[0].ID)
}

func TestNotificationsRemoveCancelsTimer(t *testing.T) {
	n, rec, clock := newNotifications(t, true)

	require.NoError(t, n.Add(context.Background(), model.NotificationRequest{
		ID:      "test_2",
		Trigger: model.Trigger{Interval: time.Second},
	}))
	n.Remove("test_2")

	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0, rec.presentedCount())
	assert.Empty(t, n.Pending())
}

func TestNotificationsRegionTriggerRepeats(t *testing.T) {
	n, rec, _ := newNotifications(t, true)
	region := fountain

	require.NoError(t, n.Add(context.Background(), model.NotificationRequest{
		ID:      "fountain",
		Title:   model.GeofenceAlertTitle,
		Body:    "You have entered/exited Bethesda Fountain",
		Trigger: model.Trigger{Region: &region, Repeats: true},
	}))

	n.RegionTransition(fountain, model.RegionEnter)
	n.RegionTransition(fountain, model.RegionExit)
	n.RegionTransition(model.Region{ID: "other"}, model.RegionEnter)

	require.Len(t, rec.presented, 2)
	assert.Equal(t, "enter", rec.presented[0].Event)
	assert.Equal(t, "fountain", rec.presented[0].RegionID)
	assert.Equal(t, "exit", rec.presented[1].Event)
	assert.Len(t, rec.sunk, 2)
	assert.Len(t, n.Pending(), 1)
}

func TestNotificationsRegionTriggerOneShot(t *testing.T) {
	n, rec, _ := newNotifications(t, true)
	region := fountain

	require.NoError(t, n.Add(context.Background(), model.NotificationRequest{
		ID:      "once",
		Trigger: model.Trigger{Region: &region},
	}))

	n.RegionTransition(fountain, model.RegionEnter)
	n.RegionTransition(fountain, model.RegionEnter)

	assert.Len(t, rec.presented, 1)
	assert.Empty(t, n.Pending())
}

type failingSink struct{}

func (failingSink) Deliver(context.Context, model.DeliveredNotification) error {
	return errors.New("broker unavailable")
}

func TestMonitorDrivesRegionNotifications(t *testing.T) {
	rec := newRecorder()
	clock := clockwork.NewFakeClock()
	n := NewNotifications(true, clock, discardLogger(), failingSink{})
	n.SetDelegate(rec)
	m := NewMonitor(20, clock, discardLogger())
	m.SetDelegate(rec)
	m.SetRegionTrigger(n)

	region := fountain
	m.SetAuthorization(model.AuthorizationAlways)
	m.StartMonitoring(region)
	require.NoError(t, n.Add(context.Background(), model.NotificationRequest{
		ID:      region.ID,
		Trigger: model.Trigger{Region: &region, Repeats: true},
	}))

	require.NoError(t, m.ReportLocation(atFountain))

	require.Len(t, rec.events, 1)
	require.Len(t, rec.presented, 1)
	assert.Equal(t, "fountain", rec.presented[0].ID)
}
