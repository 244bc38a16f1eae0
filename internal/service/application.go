package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/faults"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// Applications owns the application catalog. Applications are registered
// independently of tenants and must exist before they can be assigned.
type Applications struct {
	applications store.ApplicationStore
	assignments  store.AssignmentStore
}

func NewApplications(applications store.ApplicationStore, assignments store.AssignmentStore) *Applications {
	return &Applications{applications: applications, assignments: assignments}
}

func (s *Applications) Create(ctx context.Context, app *models.Application) error {
	if err := app.Validate(); err != nil {
		return faults.BadRequest("invalid application definition: %v", err)
	}

	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, store.ErrApplicationAlreadyExists) {
			return faults.Conflict("application %s already exists", app.Name)
		}
		return faults.Internal(err, "failed to record application %s", app.Name)
	}

	log.Info().
		Str("application", app.Name).
		Msg("Application registered")

	return nil
}

func (s *Applications) Find(ctx context.Context, name string) (*models.Application, error) {
	app, err := s.applications.Get(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			return nil, faults.NotFound("application %s not found", name)
		}
		return nil, faults.Internal(err, "failed to load application %s", name)
	}
	return app, nil
}

func (s *Applications) FetchAll(ctx context.Context) ([]*models.Application, error) {
	apps, err := s.applications.List(ctx)
	if err != nil {
		return nil, faults.Internal(err, "failed to list applications")
	}
	return apps, nil
}

// Delete deregisters an application and removes it from every tenant's
// assignment set.
func (s *Applications) Delete(ctx context.Context, name string) error {
	if err := s.applications.Delete(ctx, name); err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			return faults.NotFound("application %s not found", name)
		}
		return faults.Internal(err, "failed to delete application %s", name)
	}

	if err := s.assignments.RemoveApplication(ctx, name); err != nil {
		return faults.Internal(err, "failed to remove application %s from assignments", name)
	}

	log.Info().
		Str("application", name).
		Msg("Application deregistered")

	return nil
}
