// Package store persists contact records. Handlers write through the async
// Writer so a slow or failing database never blocks a user-visible result.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrNotFound is returned when a delete targets an id that does not exist.
var ErrNotFound = eris.New("store: contact not found")

// Store defines the persistence interface for contact records.
// SaveContacts upserts by work email or id: records whose unique keys
// collide with existing rows are silently skipped, never an error.
type Store interface {
	SaveContacts(ctx context.Context, contacts []model.ContactRecord) (inserted int, err error)
	ListContacts(ctx context.Context) ([]model.ContactRecord, error)
	DeleteContact(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
