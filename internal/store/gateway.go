package store

import (
	"context"
	"log/slog"

	"github.com/bwise1/geofence_reminders/internal/model"
)

// Gateway is the reminder persistence handle shared by the view-models.
// Only Save reports failures; reads degrade to an empty result and deletes
// are fire-and-forget.
type Gateway struct {
	repo   Repository
	logger *slog.Logger
}

func NewGateway(repo Repository, logger *slog.Logger) *Gateway {
	return &Gateway{repo: repo, logger: logger}
}

// Save stores r and returns the created record. Nothing is written when the
// id is empty.
func (g *Gateway) Save(ctx context.Context, r model.Reminder) (model.Reminder, error) {
	if r.ID == "" {
		g.logger.Error("refusing to save reminder without id", "name", r.Name)
		return model.Reminder{}, ErrEmptyID
	}

	if err := g.repo.Insert(ctx, r); err != nil {
		g.logger.Error("failed to save reminder", "id", r.ID, "error", err)
		return model.Reminder{}, err
	}

	g.logger.Debug("reminder saved", "id", r.ID)
	return r, nil
}

// FetchAll returns every stored reminder, or an empty slice when the read fails.
func (g *Gateway) FetchAll(ctx context.Context) []model.Reminder {
	reminders, err := g.repo.List(ctx)
	if err != nil {
		g.logger.Error("failed to fetch reminders", "error", err)
		return []model.Reminder{}
	}
	if reminders == nil {
		return []model.Reminder{}
	}
	return reminders
}

// Delete removes the reminder with the given id. Errors are logged only.
func (g *Gateway) Delete(ctx context.Context, id string) {
	if err := g.repo.Remove(ctx, id); err != nil {
		g.logger.Error("failed to delete reminder", "id", id, "error", err)
	}
}
