package storage

import (
	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/tenant"
)

// Backend bundles the stores of one storage flavor. A deployment picks one
// at startup; call sites only see the interfaces.
type Backend struct {
	Name        string
	Registry    tenant.Registry
	Configs     ConfigStore
	Records     RecordStore
	Provisioner Provisioner
}

// NewFileBackend serves everything from per-tenant directories under root
func NewFileBackend(root string, opts FileRecordStoreOptions) *Backend {
	return &Backend{
		Name:        "file",
		Registry:    NewFileRegistry(root),
		Configs:     NewFileConfigStore(root),
		Records:     NewFileRecordStore(root, opts),
		Provisioner: NewFileProvisioner(root),
	}
}

// NewRelationalBackend serves everything from the tenants and guests tables
func NewRelationalBackend(db *gorm.DB) *Backend {
	return &Backend{
		Name:        "relational",
		Registry:    NewRelationalRegistry(db),
		Configs:     NewRelationalConfigStore(db),
		Records:     NewRelationalRecordStore(db),
		Provisioner: NewRelationalProvisioner(db),
	}
}
