package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/provisioner/internal/models"
	"github.com/wolfeidau/provisioner/internal/store"
)

// ApplicationStore implements store.ApplicationStore against the admin
// keyspace.
type ApplicationStore struct {
	session *gocql.Session
}

func NewApplicationStore(session *gocql.Session) *ApplicationStore {
	return &ApplicationStore{session: session}
}

func (s *ApplicationStore) Create(ctx context.Context, app *models.Application) error {
	existing, err := s.Get(ctx, app.Name)
	if err != nil && !errors.Is(err, store.ErrApplicationNotFound) {
		return err
	}
	if existing != nil {
		return store.ErrApplicationAlreadyExists
	}

	err = s.session.Query(`
		INSERT INTO applications (name, description, vendor, homepage)
		VALUES (?, ?, ?, ?)`,
		app.Name, app.Description, app.Vendor, app.Homepage).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	log.Debug().
		Str("application", app.Name).
		Msg("Created application")

	return nil
}

func (s *ApplicationStore) Get(ctx context.Context, name string) (*models.Application, error) {
	var app models.Application
	err := s.session.Query(`
		SELECT name, description, vendor, homepage
		FROM applications WHERE name = ?`, name).
		WithContext(ctx).
		Scan(&app.Name, &app.Description, &app.Vendor, &app.Homepage)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, store.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &app, nil
}

func (s *ApplicationStore) List(ctx context.Context) ([]*models.Application, error) {
	iter := s.session.Query(`
		SELECT name, description, vendor, homepage
		FROM applications`).
		WithContext(ctx).
		Iter()

	var apps []*models.Application
	for {
		var app models.Application
		if !iter.Scan(&app.Name, &app.Description, &app.Vendor, &app.Homepage) {
			break
		}
		apps = append(apps, &app)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

func (s *ApplicationStore) Delete(ctx context.Context, name string) error {
	if _, err := s.Get(ctx, name); err != nil {
		return err
	}

	err := s.session.Query(`DELETE FROM applications WHERE name = ?`, name).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	log.Info().
		Str("application", name).
		Msg("Deleted application")

	return nil
}
