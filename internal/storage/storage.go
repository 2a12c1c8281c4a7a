// Package storage implements the Deal Store: a JSON file, SQLite, Postgres
// and Firestore backend behind one interface.
package storage

import (
	"context"
	"fmt"

	"github.com/pauljones0/korting/internal/models"
)

// Store persists canonical deals.
type Store interface {
	List(ctx context.Context, f models.Filter) ([]models.Deal, error)
	// Get returns models.ErrDealNotFound for an unknown id.
	Get(ctx context.Context, id string) (models.Deal, error)
	Exists(ctx context.Context, id string) (bool, error)
	// InsertAll stores every deal whose id is not yet present and returns
	// how many were stored.
	InsertAll(ctx context.Context, deals []models.Deal) (int, error)
	// Update replaces the deal with id, keeping its provenance.
	Update(ctx context.Context, id string, d models.Deal) error
	Delete(ctx context.Context, ids ...string) (int, error)
	Count(ctx context.Context, f models.Filter) (int, error)
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON      Backend = "json"
	BackendSQLite    Backend = "sqlite"
	BackendPostgres  Backend = "postgres"
	BackendFirestore Backend = "firestore"
)

// Options selects and configures a backend.
type Options struct {
	Backend     Backend
	DealsFile   string
	SQLitePath  string
	DatabaseURL string
	ProjectID   string
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendJSON, "":
		return NewJSONStore(opts.DealsFile), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendFirestore:
		return NewFirestoreStore(ctx, opts.ProjectID)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}

// Insert stores one deal, returning models.ErrDealExists when its id is taken.
func Insert(ctx context.Context, s Store, d models.Deal) error {
	n, err := s.InsertAll(ctx, []models.Deal{d})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("insert %s: %w", d.ID, models.ErrDealExists)
	}
	return nil
}
