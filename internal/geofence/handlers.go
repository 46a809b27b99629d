package geofence

import (
	"fmt"

	"github.com/bwise1/geofence_reminders/internal/model"
)

// The handlers below are the platform.Delegate implementation. They may be
// called from any goroutine and only queue work for the Run loop.

func (c *Controller) HandleAuthorizationChange(status model.AuthorizationStatus) {
	c.async(func() {
		c.state.Authorization = status

		var msg string
		switch status {
		case model.AuthorizationAlways:
			msg = "Always authorization granted"
			if err := c.monitor.StartUpdatingLocation(); err != nil {
				c.logger.Warn("unable to start location updates", "error", err)
			}
		case model.AuthorizationWhenInUse:
			msg = "When in use authorization granted"
			c.logger.Debug("requesting always authorization again")
			c.monitor.RequestAlwaysAuthorization()
		case model.AuthorizationDenied:
			msg = "Location access denied"
			c.state.ShowPermissionAlert = true
		case model.AuthorizationRestricted:
			msg = "Location access restricted"
			c.state.ShowPermissionAlert = true
		case model.AuthorizationNotDetermined:
			msg = "Authorization not determined"
		default:
			msg = "Unknown authorization status"
		}

		c.events.Append(fmt.Sprintf("Authorization status: %s", msg))
		c.publishState()
	})
}

func (c *Controller) HandleRegionEvent(ev model.RegionEvent) {
	c.metrics.RegionEvents.WithLabelValues(string(ev.Kind)).Inc()
	c.async(func() {
		switch ev.Kind {
		case model.RegionEnter:
			c.events.Append(fmt.Sprintf("Entered geofence: %s", ev.RegionID))
		case model.RegionExit:
			c.events.Append(fmt.Sprintf("Exited geofence: %s", ev.RegionID))
		}
	})
}

func (c *Controller) HandleMonitoringFailure(regionID string, err error) {
	c.metrics.RegionEvents.WithLabelValues("failure").Inc()
	if regionID == "" {
		regionID = "unknown"
	}
	c.async(func() {
		c.events.Append(fmt.Sprintf("Geofence monitoring failed for %s: %v", regionID, err))
	})
}

func (c *Controller) HandleLocationUpdate(loc model.Coordinate) {
	c.logger.Debug("location update", "latitude", loc.Latitude, "longitude", loc.Longitude)
}

func (c *Controller) HandleNotificationPresented(n model.DeliveredNotification) {
	c.metrics.NotificationsDelivered.Inc()
	c.async(func() {
		c.events.Append(fmt.Sprintf("Notification will present: %s", n.ID))
	})
}
