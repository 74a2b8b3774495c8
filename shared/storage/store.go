package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// RecordStore reads and writes guest records scoped to one tenant. The
// tenantID is the ResolvedID produced by tenant validation.
type RecordStore interface {
	// ReadAll returns every record of the tenant, or an empty slice when the
	// tenant never recorded anything
	ReadAll(ctx context.Context, tenantID string) ([]models.GuestRecord, error)
	// NextID returns the id the next appended record should carry
	NextID(ctx context.Context, tenantID string) (string, error)
	// Append validates and stores a new record. rec.SubmittedAt is
	// normalised to UTC.
	Append(ctx context.Context, tenantID string, rec *models.GuestRecord) error
	// FindByID returns the record with id, or nil when absent
	FindByID(ctx context.Context, tenantID, id string) (*models.GuestRecord, error)
	// Update replaces the record carrying rec.ID in place
	Update(ctx context.Context, tenantID string, rec *models.GuestRecord) error
}

// validateRecord rejects incomplete records before anything is written
func validateRecord(rec *models.GuestRecord, requireID bool) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrMissingFields)
	}
	if missing := rec.MissingFields(requireID); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	if !rec.Attendance.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAttendance, rec.Attendance)
	}
	return nil
}
