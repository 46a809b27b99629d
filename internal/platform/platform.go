// Package platform provides the device services a geofence app depends on:
// region monitoring with location authorization, and a local notification
// center. Device reports (location fixes, permission answers) are fed in
// through the exported methods and surface as Delegate callbacks.
package platform

import (
	"context"
	"errors"

	"github.com/bwise1/geofence_reminders/internal/model"
)

var (
	ErrRegionLimit     = errors.New("maximum number of monitored regions reached")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrInvalidTrigger  = errors.New("notification trigger needs exactly one of region or interval")
	ErrInvalidRegion   = errors.New("region must have an identifier and a positive radius")
	ErrInvalidLocation = errors.New("invalid location fix")
)

// Delegate receives monitor and notification callbacks. Implementations must
// return quickly and must not call back into the platform synchronously.
type Delegate interface {
	HandleAuthorizationChange(status model.AuthorizationStatus)
	HandleRegionEvent(ev model.RegionEvent)
	HandleMonitoringFailure(regionID string, err error)
	HandleLocationUpdate(c model.Coordinate)
	HandleNotificationPresented(n model.DeliveredNotification)
}

// Sink receives every delivered notification.
type Sink interface {
	Deliver(ctx context.Context, n model.DeliveredNotification) error
}

// AuthorizationPrompt is a permission dialog waiting for the device's answer.
type AuthorizationPrompt string

const (
	PromptNone      AuthorizationPrompt = ""
	PromptWhenInUse AuthorizationPrompt = "when_in_use"
	PromptAlways    AuthorizationPrompt = "always"
)

// NopDelegate ignores every callback.
type NopDelegate struct{}

func (NopDelegate) HandleAuthorizationChange(model.AuthorizationStatus) {}
func (NopDelegate) HandleRegionEvent(model.RegionEvent) {}
func (NopDelegate) HandleMonitoringFailure(string, error) {}
func (NopDelegate) HandleLocationUpdate(model.Coordinate) {}
func (NopDelegate) HandleNotificationPresented(model.DeliveredNotification) {}
