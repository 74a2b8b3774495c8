package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// RelationalRecordStore keeps guest records in the guests table. The
// tenantID is the tenants.id surrogate key in decimal form.
//
// Every query goes through scoped, which adds the tenant_id predicate.
type RelationalRecordStore struct {
	db *gorm.DB
}

// NewRelationalRecordStore creates a store on db. Call Migrate first.
func NewRelationalRecordStore(db *gorm.DB) *RelationalRecordStore {
	return &RelationalRecordStore{db: db}
}

func parseTenantID(tenantID string) (uint, error) {
	n, err := strconv.ParseUint(tenantID, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q is not a tenant key", ErrInvalidTenant, tenantID)
	}
	return uint(n), nil
}

func parseGuestID(id string) (uint, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// scoped returns a guests query restricted to one tenant
func (s *RelationalRecordStore) scoped(ctx context.Context, tenantID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Guest{}).Where("tenant_id = ?", tenantID)
}

// ReadAll returns the tenant's records in id order
func (s *RelationalRecordStore) ReadAll(ctx context.Context, tenantID string) ([]models.GuestRecord, error) {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	var rows []models.Guest
	if err := s.scoped(ctx, tid).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, ioError("query guests", err)
	}

	records := make([]models.GuestRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToRecord())
	}
	return records, nil
}

// NextID returns one more than the tenant's highest guest id. The database
// assigns the real id on Append, so this is only a hint.
func (s *RelationalRecordStore) NextID(ctx context.Context, tenantID string) (string, error) {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return "", err
	}

	var maxID int64
	if err := s.scoped(ctx, tid).Select("COALESCE(MAX(id), 0)").Row().Scan(&maxID); err != nil {
		return "", ioError("query max guest id", err)
	}
	return strconv.FormatInt(maxID+1, 10), nil
}

// Append inserts the record and sets rec.ID to the generated id. Any id
// the caller supplied is ignored.
func (s *RelationalRecordStore) Append(ctx context.Context, tenantID string, rec *models.GuestRecord) error {
	if err := validateRecord(rec, false); err != nil {
		return err
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return err
	}

	row := models.Guest{
		TenantID:     tid,
		Name:         rec.Name,
		Relationship: rec.Relationship,
		Attendance:   string(rec.Attendance),
		Message:      rec.Message,
		CreatedAt:    rec.SubmittedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ioError("insert guest", err)
	}

	rec.ID = strconv.FormatUint(uint64(row.ID), 10)
	return nil
}

// FindByID returns the tenant's record with id, or nil
func (s *RelationalRecordStore) FindByID(ctx context.Context, tenantID, id string) (*models.GuestRecord, error) {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return nil, err
	}
	gid, ok := parseGuestID(id)
	if !ok {
		return nil, nil
	}

	var row models.Guest
	err = s.scoped(ctx, tid).Where("id = ?", gid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("query guest", err)
	}

	rec := row.ToRecord()
	return &rec, nil
}

// Update issues UPDATE ... WHERE tenant_id = ? AND id = ?
func (s *RelationalRecordStore) Update(ctx context.Context, tenantID string, rec *models.GuestRecord) error {
	if err := validateRecord(rec, true); err != nil {
		return err
	}
	rec.SubmittedAt = rec.SubmittedAt.UTC()
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return err
	}
	gid, ok := parseGuestID(rec.ID)
	if !ok {
		return fmt.Errorf("%w: id %s", ErrRecordNotFound, rec.ID)
	}

	result := s.scoped(ctx, tid).Where("id = ?", gid).Updates(map[string]interface{}{
		"name":         rec.Name,
		"relationship": rec.Relationship,
		"attendance":   string(rec.Attendance),
		"message":      rec.Message,
		"created_at":   rec.SubmittedAt,
	})
	if result.Error != nil {
		return ioError("update guest", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %s", ErrRecordNotFound, rec.ID)
	}
	return nil
}
