package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/tenant"
)

// FileRegistry treats the presence of config.json as tenant existence and
// its isActive field as the activity flag
type FileRegistry struct {
	root string
	log  *logrus.Entry
}

// NewFileRegistry creates a registry rooted at root
func NewFileRegistry(root string) *FileRegistry {
	return &FileRegistry{
		root: root,
		log:  logrus.WithField("component", "file-registry"),
	}
}

// Lookup reads the tenant's config.json. The resolved id is the slug.
// A config.json that cannot be decoded is an authoring defect, not an
// outage: the tenant is reported as found but inactive and logged at Error.
func (r *FileRegistry) Lookup(ctx context.Context, slug string) (*tenant.Record, error) {
	cfg, err := readConfigFile(ctx, r.root, slug)
	if errors.Is(err, ErrConfigNotFound) {
		return &tenant.Record{Found: false}, nil
	}
	if IsMalformedConfig(err) {
		r.log.WithError(err).WithField("tenant", slug).Error("Tenant configuration is malformed")
		return &tenant.Record{Found: true, Active: false, ResolvedID: slug}, nil
	}
	if err != nil {
		return nil, err
	}

	return &tenant.Record{
		Found:      true,
		Active:     cfg.IsActive,
		ResolvedID: slug,
		Config:     cfg,
	}, nil
}

// RelationalRegistry looks tenants up by slug in the tenants table
type RelationalRegistry struct {
	db *gorm.DB
}

// NewRelationalRegistry creates a registry on db
func NewRelationalRegistry(db *gorm.DB) *RelationalRegistry {
	return &RelationalRegistry{db: db}
}

// Lookup fetches the tenants row with slug. The resolved id is its
// surrogate key.
func (r *RelationalRegistry) Lookup(ctx context.Context, slug string) (*tenant.Record, error) {
	var row models.Tenant
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &tenant.Record{Found: false}, nil
	}
	if err != nil {
		return nil, ioError("query tenant", err)
	}

	return &tenant.Record{
		Found:      true,
		Active:     row.IsActive,
		ResolvedID: strconv.FormatUint(uint64(row.ID), 10),
		Config:     row.ToConfig(),
	}, nil
}
