package store

import (
	"context"
	"fmt"

	"github.com/bwise1/geofence_reminders/config"
	"github.com/bwise1/geofence_reminders/internal/db"
)

// Open connects the backend selected by cfg.StoreDriver and creates the
// reminders table when it does not exist yet.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	var repo Repository

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo = s
	case config.StorePostgres:
		database, err := db.New(ctx, cfg.Dsn)
		if err != nil {
			return nil, err
		}
		repo = NewPostgres(database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
