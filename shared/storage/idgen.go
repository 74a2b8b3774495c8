package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

type recordReader interface {
	ReadAll(ctx context.Context, tenantID string) ([]models.GuestRecord, error)
}

// IDGenerator derives the next record id of a tenant from its existing
// records. Two concurrent callers can compute the same id; hold a tenant
// Locker around NextID and Append if that matters.
type IDGenerator struct {
	// Now is used for the fallback id. Defaults to time.Now.
	Now func() time.Time
	log *logrus.Entry
}

// NewIDGenerator creates an IDGenerator using the wall clock
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		Now: time.Now,
		log: logrus.WithField("component", "id-generator"),
	}
}

// Next returns max(numeric ids)+1. If the scan fails it returns a Unix
// millisecond timestamp instead so a guest's write can still go through;
// such ids may collide under concurrent faults.
func (g *IDGenerator) Next(ctx context.Context, src recordReader, tenantID string) string {
	records, err := src.ReadAll(ctx, tenantID)
	if err != nil {
		id := strconv.FormatInt(g.now().UnixMilli(), 10)
		g.logger().WithError(err).WithFields(logrus.Fields{
			"tenant":      tenantID,
			"fallback_id": id,
		}).Warn("Record scan failed, using timestamp id")
		return id
	}
	return NextSequentialID(records)
}

func (g *IDGenerator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *IDGenerator) logger() *logrus.Entry {
	if g.log == nil {
		return logrus.WithField("component", "id-generator")
	}
	return g.log
}

// NextSequentialID returns one more than the largest integer id in records.
// Ids that do not parse as integers are ignored.
func NextSequentialID(records []models.GuestRecord) string {
	var max int64
	for _, r := range records {
		n, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
		if err == nil && n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10)
}
