package deps

import (
	"context"
	"log"
	"log/slog"

	"github.com/bwise1/geofence_reminders/config"
	"github.com/bwise1/geofence_reminders/internal/geofence"
	"github.com/bwise1/geofence_reminders/internal/http/overpass"
	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/bwise1/geofence_reminders/internal/observability"
	"github.com/bwise1/geofence_reminders/internal/platform"
	"github.com/bwise1/geofence_reminders/internal/store"
	"github.com/bwise1/geofence_reminders/internal/stream"
	"github.com/bwise1/geofence_reminders/util/websockets"
	"github.com/jonboulle/clockwork"
)

type Dependencies struct {
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	Clock         clockwork.Clock
	Store         store.Repository
	Gateway       *store.Gateway
	Overpass      *overpass.Client
	Monitor       *platform.Monitor
	Notifications *platform.Notifications
	WebSocket     *websockets.WebSocketManager
	Kafka         *stream.NotificationWriter
	Controller    *geofence.Controller
}

// New opens the configured store and wires every service.
func New(ctx context.Context, cfg *config.Config) *Dependencies {
	logger := observability.NewLogger(cfg)

	repo, err := store.Open(ctx, cfg)
	if err != nil {
		log.Panicf("failed to open %s reminder store: %v", cfg.StoreDriver, err)
	}

	return Wire(cfg, repo, logger, observability.NewMetrics(), clockwork.NewRealClock())
}

// Wire builds the dependency graph around an already opened store.
func Wire(cfg *config.Config, repo store.Repository, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Dependencies {
	hub := websockets.NewWebSocketManager()

	notifications := platform.NewNotifications(cfg.NotificationsGranted, clock, logger, hub)
	var kafka *stream.NotificationWriter
	if cfg.KafkaEnabled() {
		kafka = stream.NewNotificationWriter(cfg, logger)
		notifications.AddSink(kafka)
	}

	monitor := platform.NewMonitor(cfg.MaxMonitoredRegions, clock, logger)
	monitor.SetRegionTrigger(notifications)

	gateway := store.NewGateway(repo, logger)
	client := overpass.NewClient(cfg.OverpassURL, cfg.OverpassTimeout, cfg.OverpassRatePerSec)

	controller := geofence.NewController(geofence.Params{
		Gateway:       gateway,
		Fetcher:       client,
		Monitor:       monitor,
		Notifications: notifications,
		Publisher:     hub,
		Metrics:       metrics,
		Clock:         clock,
		Logger:        logger,
		Options:       geofence.OptionsFromConfig(cfg),
	})

	hub.OnLocation = func(latitude, longitude float64) error {
		return monitor.ReportLocation(model.Coordinate{Latitude: latitude, Longitude: longitude})
	}

	return &Dependencies{
		Logger:        logger,
		Metrics:       metrics,
		Clock:         clock,
		Store:         repo,
		Gateway:       gateway,
		Overpass:      client,
		Monitor:       monitor,
		Notifications: notifications,
		WebSocket:     hub,
		Kafka:         kafka,
		Controller:    controller,
	}
}

// Close releases the store and the Kafka producer.
func (d *Dependencies) Close() {
	if d.Kafka != nil {
		if err := d.Kafka.Close(); err != nil {
			log.Printf("failed to close kafka writer: %v", err)
		}
	}
	if err := d.Store.Close(); err != nil {
		log.Printf("failed to close reminder store: %v", err)
	}
}
