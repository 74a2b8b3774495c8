package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// ErrConfigMismatch means the stored id differs from the key it was found under
var ErrConfigMismatch = errors.New("invalid configuration: identifier does not match lookup key")

// IsMalformedConfig reports whether err means the tenant's configuration
// exists but cannot be used
func IsMalformedConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidConfigFormat) ||
		errors.Is(err, ErrConfigMismatch)
}

// ConfigStore reads a tenant's descriptive configuration
type ConfigStore interface {
	Get(ctx context.Context, slug string) (*models.TenantConfig, error)
}

func checkConfig(cfg *models.TenantConfig, slug string) error {
	if missing := cfg.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if cfg.ID != slug {
		return fmt.Errorf("%w: found %q under %q", ErrConfigMismatch, cfg.ID, slug)
	}
	return nil
}

// readConfigFile loads <root>/<slug>/config.json without checking fields.
// A missing file yields ErrConfigNotFound.
func readConfigFile(ctx context.Context, root, slug string) (*models.TenantConfig, error) {
	dir, err := tenantDir(root, slug)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, slug)
	}
	if err != nil {
		return nil, ioError("read config", err)
	}

	var cfg models.TenantConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return &cfg, nil
}

// FileConfigStore reads <root>/<slug>/config.json
type FileConfigStore struct {
	root string
}

// NewFileConfigStore creates a config store rooted at root
func NewFileConfigStore(root string) *FileConfigStore {
	return &FileConfigStore{root: root}
}

// Get loads and checks the tenant's configuration
func (s *FileConfigStore) Get(ctx context.Context, slug string) (*models.TenantConfig, error) {
	cfg, err := readConfigFile(ctx, s.root, slug)
	if err != nil {
		return nil, err
	}
	if err := checkConfig(cfg, slug); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RelationalConfigStore reads configuration from the tenants table
type RelationalConfigStore struct {
	db *gorm.DB
}

// NewRelationalConfigStore creates a config store on db
func NewRelationalConfigStore(db *gorm.DB) *RelationalConfigStore {
	return &RelationalConfigStore{db: db}
}

// Get loads the tenants row with slug and checks it
func (s *RelationalConfigStore) Get(ctx context.Context, slug string) (*models.TenantConfig, error) {
	var row models.Tenant
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, slug)
	}
	if err != nil {
		return nil, ioError("query tenant", err)
	}

	cfg := row.ToConfig()
	if err := checkConfig(cfg, slug); err != nil {
		return nil, err
	}
	return cfg, nil
}
