package geofence

import (
	"context"
	"fmt"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/util"
)

func newID() string {
	return util.GenerateUUID().String()
}

// register starts monitoring r and schedules its recurring alert. Reminders
// without an id or with invalid geometry are logged and skipped. It runs on
// the Run goroutine.
func (c *Controller) register(r model.Reminder) {
	name := r.DisplayName("unknown")

	if r.ID == "" {
		c.metrics.Registrations.WithLabelValues("rejected_id").Inc()
		c.events.Append(fmt.Sprintf("Error: Reminder ID is empty for %s", name))
		return
	}

	if err := r.ValidateGeometry(); err != nil {
		c.metrics.Registrations.WithLabelValues("rejected_geometry").Inc()
		c.logger.Debug("geofence rejected", "id", r.ID, "error", err)
		c.events.Append(fmt.Sprintf("Error: Invalid geofence parameters for %s - lat: %v, lon: %v, radius: %v",
			name, r.Latitude, r.Longitude, r.Radius))
		return
	}

	region := r.Region()
	monitorErr := c.monitor.StartMonitoring(region)
	c.metrics.MonitoredRegions.Set(float64(len(c.monitor.MonitoredRegions())))
	c.events.Append(fmt.Sprintf("Started monitoring geofence: ID=%s, Name=%s, Center=(%v, %v), Radius=%vm",
		r.ID, name, r.Latitude, r.Longitude, r.Radius))

	// HandleMonitoringFailure logs the failure; an unmonitored region gets no trigger.
	if monitorErr != nil {
		c.metrics.Registrations.WithLabelValues("monitor_failed").Inc()
		return
	}
	c.metrics.Registrations.WithLabelValues("registered").Inc()

	err := c.notifications.Add(context.Background(), model.NotificationRequest{
		ID:      r.ID,
		Title:   model.GeofenceAlertTitle,
		Body:    fmt.Sprintf("You have entered/exited %s", r.DisplayName("a location")),
		Sound:   true,
		Trigger: model.Trigger{Region: &region, Repeats: true},
	})
	c.async(func() {
		if err != nil {
			c.events.Append(fmt.Sprintf("Failed to schedule notification for %s: %v", r.ID, err))
			return
		}
		c.events.Append(fmt.Sprintf("Notification scheduled for %s: %s", r.ID, name))
	})
}
