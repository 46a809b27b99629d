package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/util"
	"github.com/jonboulle/clockwork"
)

// RegionTrigger is told about every boundary crossing so region-bound
// notifications can fire.
type RegionTrigger interface {
	RegionTransition(region model.Region, kind model.RegionEventKind)
}

// Monitor watches circular regions against the device's reported location.
// Regions are only evaluated while the app holds always authorization.
type Monitor struct {
	mu         sync.Mutex
	regions    map[string]model.Region
	inside     map[string]bool
	maxRegions int

	status   model.AuthorizationStatus
	prompt   AuthorizationPrompt
	updating bool
	last     *model.Coordinate

	delegate Delegate
	trigger  RegionTrigger
	clock    clockwork.Clock
	logger   *slog.Logger
}

// DeviceState is a point-in-time view of the monitor.
type DeviceState struct {
	Authorization    model.AuthorizationStatus `json:"authorization"`
	PendingPrompt    AuthorizationPrompt       `json:"pending_prompt,omitempty"`
	UpdatingLocation bool                      `json:"updating_location"`
	LastLocation     *model.Coordinate         `json:"last_location,omitempty"`
	MonitoredRegions []model.Region            `json:"monitored_regions"`
}

func NewMonitor(maxRegions int, clock clockwork.Clock, logger *slog.Logger) *Monitor {
	return &Monitor{
		regions:    make(map[string]model.Region),
		inside:     make(map[string]bool),
		maxRegions: maxRegions,
		status:     model.AuthorizationNotDetermined,
		delegate:   NopDelegate{},
		clock:      clock,
		logger:     logger,
	}
}

func (m *Monitor) SetDelegate(d Delegate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegate = d
}

// SetRegionTrigger registers the receiver of boundary crossings, usually the
// notification center.
func (m *Monitor) SetRegionTrigger(t RegionTrigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = t
}

// StartMonitoring watches region, replacing any region with the same id.
// Failures are reported through HandleMonitoringFailure and returned.
func (m *Monitor) StartMonitoring(region model.Region) error {
	m.mu.Lock()
	delegate := m.delegate

	if region.ID == "" || !(region.Radius > 0) {
		m.mu.Unlock()
		delegate.HandleMonitoringFailure(region.ID, ErrInvalidRegion)
		return ErrInvalidRegion
	}

	_, replacing := m.regions[region.ID]
	if !replacing && m.maxRegions > 0 && len(m.regions) >= m.maxRegions {
		m.mu.Unlock()
		delegate.HandleMonitoringFailure(region.ID, ErrRegionLimit)
		return ErrRegionLimit
	}

	m.regions[region.ID] = region
	delete(m.inside, region.ID)
	if m.last != nil {
		m.inside[region.ID] = contains(region, *m.last)
	}
	m.mu.Unlock()

	m.logger.Debug("monitoring region", "id", region.ID, "radius", region.Radius)
	return nil
}

// StopMonitoring forgets the region with the given id. Unknown ids are ignored.
func (m *Monitor) StopMonitoring(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regions, id)
	delete(m.inside, id)
}

// MonitoredRegions returns the watched regions ordered by id.
func (m *Monitor) MonitoredRegions() []model.Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRegions()
}

func (m *Monitor) sortedRegions() []model.Region {
	regions := make([]model.Region, 0, len(m.regions))
	for _, r := range m.regions {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions
}

// RequestWhenInUseAuthorization shows the when-in-use prompt if the user has
// not answered yet.
func (m *Monitor) RequestWhenInUseAuthorization() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == model.AuthorizationNotDetermined {
		m.prompt = PromptWhenInUse
	}
}

// RequestAlwaysAuthorization shows the always prompt unless the user already
// granted it or refused location access.
func (m *Monitor) RequestAlwaysAuthorization() {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case model.AuthorizationNotDetermined, model.AuthorizationWhenInUse:
		m.prompt = PromptAlways
	}
}

func (m *Monitor) AuthorizationStatus() model.AuthorizationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetAuthorization records the device's answer and notifies the delegate.
func (m *Monitor) SetAuthorization(status model.AuthorizationStatus) {
	m.mu.Lock()
	m.status = status
	m.prompt = PromptNone
	if !status.Authorized() {
		m.updating = false
	}
	delegate := m.delegate
	m.mu.Unlock()

	delegate.HandleAuthorizationChange(status)
}

// StartUpdatingLocation enables location update callbacks.
func (m *Monitor) StartUpdatingLocation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.status.Authorized() {
		return ErrNotAuthorized
	}
	m.updating = true
	return nil
}

// ReportLocation feeds a location fix. Crossing a region boundary dispatches
// a region event to the delegate and the region trigger. Out of range fixes
// are rejected with ErrInvalidLocation and leave the monitor untouched.
func (m *Monitor) ReportLocation(c model.Coordinate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	m.mu.Lock()
	if !m.status.Authorized() {
		m.mu.Unlock()
		return ErrNotAuthorized
	}

	fix := c
	m.last = &fix
	updating := m.updating
	delegate := m.delegate
	trigger := m.trigger

	type crossing struct {
		region model.Region
		kind   model.RegionEventKind
	}
	var crossings []crossing
	if m.status == model.AuthorizationAlways {
		for _, region := range m.sortedRegions() {
			in := contains(region, c)
			if in == m.inside[region.ID] {
				continue
			}
			m.inside[region.ID] = in
			if in {
				crossings = append(crossings, crossing{region, model.RegionEnter})
			} else {
				crossings = append(crossings, crossing{region, model.RegionExit})
			}
		}
	}
	now := m.clock.Now()
	m.mu.Unlock()

	if updating {
		delegate.HandleLocationUpdate(c)
	}
	for _, x := range crossings {
		if x.kind == model.RegionEnter && !x.region.NotifyOnEntry {
			continue
		}
		if x.kind == model.RegionExit && !x.region.NotifyOnExit {
			continue
		}
		delegate.HandleRegionEvent(model.RegionEvent{Kind: x.kind, RegionID: x.region.ID, At: now})
		if trigger != nil {
			trigger.RegionTransition(x.region, x.kind)
		}
	}
	return nil
}

// State returns a snapshot for diagnostics.
func (m *Monitor) State() DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := DeviceState{
		Authorization:    m.status,
		PendingPrompt:    m.prompt,
		UpdatingLocation: m.updating,
		MonitoredRegions: m.sortedRegions(),
	}
	if m.last != nil {
		last := *m.last
		st.LastLocation = &last
	}
	return st
}

func contains(region model.Region, c model.Coordinate) bool {
	return util.DistanceMeters(region.Latitude, region.Longitude, c.Latitude, c.Longitude) <= region.Radius
}
