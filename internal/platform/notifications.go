package platform

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/jonboulle/clockwork"
)

const deliveredHistory = 100

type pendingRequest struct {
	req   model.NotificationRequest
	timer clockwork.Timer
}

// Notifications is a local notification center. Requests wait until their
// trigger fires, then they are presented to the delegate and every sink.
type Notifications struct {
	mu        sync.Mutex
	granted   bool
	pending   map[string]*pendingRequest
	delivered []model.DeliveredNotification

	delegate Delegate
	sinks    []Sink
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewNotifications creates a center whose permission prompt is answered with granted.
func NewNotifications(granted bool, clock clockwork.Clock, logger *slog.Logger, sinks ...Sink) *Notifications {
	return &Notifications{
		granted:  granted,
		pending:  make(map[string]*pendingRequest),
		delegate: NopDelegate{},
		sinks:    sinks,
		clock:    clock,
		logger:   logger,
	}
}

func (n *Notifications) SetDelegate(d Delegate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delegate = d
}

func (n *Notifications) AddSink(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, s)
}

// RequestAuthorization asks for permission to alert with sound.
func (n *Notifications) RequestAuthorization(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.granted, nil
}

// Add schedules req, replacing any pending request with the same id.
func (n *Notifications) Add(ctx context.Context, req model.NotificationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hasRegion := req.Trigger.Region != nil
	hasInterval := req.Trigger.Interval > 0
	if hasRegion == hasInterval {
		return ErrInvalidTrigger
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.granted {
		return ErrNotAuthorized
	}

	if prev, ok := n.pending[req.ID]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	p := &pendingRequest{req: req}
	if hasInterval {
		id := req.ID
		p.timer = n.clock.AfterFunc(req.Trigger.Interval, func() { n.fire(id, p) })
	}
	n.pending[req.ID] = p
	return nil
}

// Remove cancels the pending requests with the given ids.
func (n *Notifications) Remove(ids ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range ids {
		if p, ok := n.pending[id]; ok {
			if p.timer != nil {
				p.timer.Stop()
			}
			delete(n.pending, id)
		}
	}
}

// Pending returns the waiting requests ordered by id.
func (n *Notifications) Pending() []model.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	reqs := make([]model.NotificationRequest, 0, len(n.pending))
	for _, p := range n.pending {
		reqs = append(reqs, p.req)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	return reqs
}

// Delivered returns the most recent deliveries, oldest first.
func (n *Notifications) Delivered() []model.DeliveredNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.DeliveredNotification, len(n.delivered))
	copy(out, n.delivered)
	return out
}

// RegionTransition fires every pending request bound to region. Requests
// that do not repeat are removed once delivered.
func (n *Notifications) RegionTransition(region model.Region, kind model.RegionEventKind) {
	n.mu.Lock()
	var due []model.NotificationRequest
	for id, p := range n.pending {
		r := p.req.Trigger.Region
		if r == nil || r.ID != region.ID {
			continue
		}
		if kind == model.RegionEnter && !r.NotifyOnEntry {
			continue
		}
		if kind == model.RegionExit && !r.NotifyOnExit {
			continue
		}
		due = append(due, p.req)
		if !p.req.Trigger.Repeats {
			delete(n.pending, id)
		}
	}
	n.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	for _, req := range due {
		n.deliver(req, region.ID, string(kind))
	}
}

func (n *Notifications) fire(id string, p *pendingRequest) {
	n.mu.Lock()
	current, ok := n.pending[id]
	if !ok || current != p {
		n.mu.Unlock()
		return
	}
	if p.req.Trigger.Repeats {
		p.timer = n.clock.AfterFunc(p.req.Trigger.Interval, func() { n.fire(id, p) })
	} else {
		delete(n.pending, id)
	}
	req := p.req
	n.mu.Unlock()

	n.deliver(req, "", "")
}

func (n *Notifications) deliver(req model.NotificationRequest, regionID, event string) {
	d := model.DeliveredNotification{
		ID:          req.ID,
		Title:       req.Title,
		Body:        req.Body,
		RegionID:    regionID,
		Event:       event,
		DeliveredAt: n.clock.Now(),
	}

	n.mu.Lock()
	n.delivered = append(n.delivered, d)
	if len(n.delivered) > deliveredHistory {
		n.delivered = n.delivered[len(n.delivered)-deliveredHistory:]
	}
	delegate := n.delegate
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.Unlock()

	delegate.HandleNotificationPresented(d)
	for _, s := range sinks {
		if err := s.Deliver(context.Background(), d); err != nil {
			n.logger.Error("notification sink failed", "id", d.ID, "error", err)
		}
	}
}
