package tenant

import (
	"context"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// Record is the uniform shape returned by every Registry implementation
type Record struct {
	Found  bool
	Active bool

	// ResolvedID is the id record stores are keyed by: the slug itself for
	// the file backend, the surrogate integer (decimal) for the relational one.
	ResolvedID string

	// Config is the descriptive payload when the backend loads it as part of
	// the lookup. It may be nil.
	Config *models.TenantConfig
}

// Registry looks tenants up by identifier in a persistent source
type Registry interface {
	Lookup(ctx context.Context, slug string) (*Record, error)
}
