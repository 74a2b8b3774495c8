package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// ErrTenantExists is returned when provisioning a slug already in use
var ErrTenantExists = errors.New("tenant already exists")

// Provisioner creates tenants and toggles their activity flag. It is the
// only writer of tenant configuration.
type Provisioner interface {
	Create(ctx context.Context, cfg *models.TenantConfig) error
	SetActive(ctx context.Context, slug string, active bool) error
}

func checkNewConfig(cfg *models.TenantConfig) error {
	if _, err := tenantDir("", cfg.ID); err != nil {
		return err
	}
	if missing := cfg.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// FileProvisioner writes config.json files
type FileProvisioner struct {
	root string
}

// NewFileProvisioner creates a provisioner rooted at root
func NewFileProvisioner(root string) *FileProvisioner {
	return &FileProvisioner{root: root}
}

// Create writes a new config.json. It refuses to overwrite.
func (p *FileProvisioner) Create(ctx context.Context, cfg *models.TenantConfig) error {
	if err := checkNewConfig(cfg); err != nil {
		return err
	}
	dir, _ := tenantDir(p.root, cfg.ID)
	path := filepath.Join(dir, configFileName)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrTenantExists, cfg.ID)
	}

	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioError("create tenant directory", err)
	}
	return p.write(path, cfg)
}

// SetActive flips isActive in an existing config.json
func (p *FileProvisioner) SetActive(ctx context.Context, slug string, active bool) error {
	cfg, err := readConfigFile(ctx, p.root, slug)
	if err != nil {
		return err
	}
	dir, _ := tenantDir(p.root, slug)

	cfg.IsActive = active
	cfg.UpdatedAt = time.Now().UTC()
	return p.write(filepath.Join(dir, configFileName), cfg)
}

func (p *FileProvisioner) write(path string, cfg *models.TenantConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ioError("write config", err)
	}
	return nil
}

// RelationalProvisioner writes rows of the tenants table
type RelationalProvisioner struct {
	db *gorm.DB
}

// NewRelationalProvisioner creates a provisioner on db
func NewRelationalProvisioner(db *gorm.DB) *RelationalProvisioner {
	return &RelationalProvisioner{db: db}
}

// Create inserts a tenants row and fills in nothing but timestamps
func (p *RelationalProvisioner) Create(ctx context.Context, cfg *models.TenantConfig) error {
	if err := checkNewConfig(cfg); err != nil {
		return err
	}

	var existing models.Tenant
	err := p.db.WithContext(ctx).Where("slug = ?", cfg.ID).First(&existing).Error
	if err == nil {
		return fmt.Errorf("%w: %s", ErrTenantExists, cfg.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ioError("query tenant", err)
	}

	row := models.TenantFromConfig(cfg)
	if err := p.db.WithContext(ctx).Create(row).Error; err != nil {
		return ioError("insert tenant", err)
	}
	cfg.CreatedAt = row.CreatedAt
	cfg.UpdatedAt = row.UpdatedAt
	return nil
}

// SetActive updates is_active of the row with slug
func (p *RelationalProvisioner) SetActive(ctx context.Context, slug string, active bool) error {
	result := p.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("slug = ?", slug).
		Update("is_active", active)
	if result.Error != nil {
		return ioError("update tenant", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, slug)
	}
	return nil
}
