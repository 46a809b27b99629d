package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	Dsn         string `env:"DSN" envDefault:"postgres://localhost:5432/geofence_reminders"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"geofence_reminders.db"`

	OverpassURL        string        `env:"OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`
	OverpassTimeout    time.Duration `env:"OVERPASS_TIMEOUT" envDefault:"30s"`
	OverpassRatePerSec float64       `env:"OVERPASS_RATE_PER_SEC" envDefault:"1"`
	POITagKey          string        `env:"POI_TAG_KEY" envDefault:"tourism"`
	POITagValue        string        `env:"POI_TAG_VALUE" envDefault:"attraction"`
	POICenterLat       float64       `env:"POI_CENTER_LAT" envDefault:"40.785091"`
	POICenterLon       float64       `env:"POI_CENTER_LON" envDefault:"-73.968285"`
	POIRadiusMeters    int           `env:"POI_RADIUS_M" envDefault:"5000"`

	EventLogSize           int           `env:"EVENT_LOG_SIZE" envDefault:"500"`
	MaxMonitoredRegions    int           `env:"MAX_MONITORED_REGIONS" envDefault:"20"`
	NotificationsGranted   bool          `env:"NOTIFICATIONS_GRANTED" envDefault:"true"`
	TestNotificationOnSave bool          `env:"TEST_NOTIFICATION_ON_SAVE" envDefault:"true"`
	TestNotificationDelay  time.Duration `env:"TEST_NOTIFICATION_DELAY" envDefault:"5s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"geofence-notifications"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	cfg, parseErr := Parse()
	if parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return cfg
}

// Parse reads the environment into a Config without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// KafkaEnabled reports whether delivered notifications are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}
