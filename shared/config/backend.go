package config

import (
	"context"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
)

// OpenBackend selects the relational backend when a database is configured
// and migrates its schema once; otherwise it serves from DataDir
func OpenBackend(ctx context.Context, cfg *AppConfig) (*storage.Backend, error) {
	if !cfg.UsesDatabase() {
		return storage.NewFileBackend(cfg.DataDir, storage.FileRecordStoreOptions{
			AtomicRewrite: cfg.AtomicRewrite,
		}), nil
	}

	db, err := ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return storage.NewRelationalBackend(db), nil
}
