package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/middleware"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/storage"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/tenant"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/utils"
)

// SubmitRSVPRequest represents a guest response submission
type SubmitRSVPRequest struct {
	Name         string            `json:"name"`
	Relationship string            `json:"relationship"`
	Attendance   models.Attendance `json:"attendance"`
	Message      string            `json:"message"`
}

// UpdateRSVPRequest represents a partial update of a guest response
type UpdateRSVPRequest struct {
	Name         *string            `json:"name"`
	Relationship *string            `json:"relationship"`
	Attendance   *models.Attendance `json:"attendance"`
	Message      *string            `json:"message"`
}

// Deps carries what the handlers need
type Deps struct {
	Backend *storage.Backend
	Locker  storage.Locker
	Events  EventPublisher
	Now     func() time.Time

	// LockWait bounds how long a write waits for the tenant lock
	LockWait time.Duration

	AccessLog bool
	Metrics   *middleware.Metrics
}

func (d *Deps) lock(ctx context.Context, tenantID string) (func(), error) {
	wait := d.LockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return d.Locker.Lock(lockCtx, tenantID)
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// NewRouter wires the RSVP routes
func NewRouter(deps *Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if deps.AccessLog {
		router.Use(gin.Logger())
	}
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "RSVP service is healthy", gin.H{"backend": deps.Backend.Name})
	})

	scoped := router.Group("/:tenant")
	scoped.Use(middleware.TenantResolver(tenant.NewValidator(deps.Backend.Registry)))
	{
		scoped.GET("/config", handleGetConfig(deps))
		scoped.GET("/rsvps", handleListRSVPs(deps))
		scoped.GET("/rsvps/summary", handleSummary(deps))
		scoped.GET("/rsvps/:id", handleGetRSVP(deps))
		scoped.POST("/rsvps", handleSubmitRSVP(deps))
		scoped.PUT("/rsvps/:id", handleUpdateRSVP(deps))
	}

	return router
}

// respondStorageError maps storage failures onto API responses
func respondStorageError(c *gin.Context, err error, action string) {
	slug, _ := middleware.GetTenantFromContext(c)
	entry := logrus.WithFields(logrus.Fields{"tenant": slug, "action": action})

	switch {
	case errors.Is(err, storage.ErrMissingFields), errors.Is(err, storage.ErrInvalidAttendance):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, storage.ErrRecordNotFound):
		utils.NotFoundResponse(c, "RSVP not found")
	case errors.Is(err, storage.ErrConfigNotFound):
		utils.NotFoundResponse(c, "Configuration not found")
	case storage.IsMalformedConfig(err):
		entry.WithError(err).Error("Tenant configuration is malformed")
		utils.InternalServerErrorResponse(c, "Tenant configuration is invalid")
	case storage.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		entry.WithError(err).Warn("Storage temporarily unavailable")
		utils.ServiceUnavailableResponse(c, "Storage temporarily unavailable, please retry")
	default:
		entry.WithError(err).Error("Unexpected storage failure")
		utils.InternalServerErrorResponse(c, fmt.Sprintf("Failed to %s", action))
	}
}

func publish(deps *Deps, eventType, slug, tenantID string, rec models.GuestRecord) {
	if err := deps.Events.Publish(newRSVPEvent(eventType, slug, tenantID, rec)); err != nil {
		logrus.WithFields(logrus.Fields{
			"tenant":    slug,
			"record_id": rec.ID,
		}).Warnf("Failed to queue %s event: %v", eventType, err)
	}
}

// handleGetConfig returns the tenant's descriptive configuration
func handleGetConfig(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug, _ := middleware.GetTenantFromContext(c)

		cfg, err := deps.Backend.Configs.Get(c.Request.Context(), slug)
		if err != nil {
			respondStorageError(c, err, "read configuration")
			return
		}

		utils.OKResponse(c, "Configuration retrieved successfully", cfg)
	}
}

// handleListRSVPs returns every guest record in storage order
func handleListRSVPs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID := middleware.GetTenantFromContext(c)

		records, err := deps.Backend.Records.ReadAll(c.Request.Context(), tenantID)
		if err != nil {
			respondStorageError(c, err, "read RSVPs")
			return
		}

		utils.OKResponse(c, "RSVPs retrieved successfully", records)
	}
}

func handleSummary(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID := middleware.GetTenantFromContext(c)

		records, err := deps.Backend.Records.ReadAll(c.Request.Context(), tenantID)
		if err != nil {
			respondStorageError(c, err, "read RSVPs")
			return
		}

		utils.OKResponse(c, "RSVP summary retrieved successfully", models.Summarize(records))
	}
}

func handleGetRSVP(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID := middleware.GetTenantFromContext(c)

		rec, err := deps.Backend.Records.FindByID(c.Request.Context(), tenantID, c.Param("id"))
		if err != nil {
			respondStorageError(c, err, "read RSVP")
			return
		}
		if rec == nil {
			utils.NotFoundResponse(c, "RSVP not found")
			return
		}

		utils.OKResponse(c, "RSVP retrieved successfully", rec)
	}
}

// handleSubmitRSVP assigns the next id and appends the record while
// holding the tenant lock
func handleSubmitRSVP(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug, tenantID := middleware.GetTenantFromContext(c)
		ctx := c.Request.Context()

		var req SubmitRSVPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		unlock, err := deps.lock(ctx, tenantID)
		if err != nil {
			respondStorageError(c, err, "submit RSVP")
			return
		}
		defer unlock()

		id, err := deps.Backend.Records.NextID(ctx, tenantID)
		if err != nil {
			respondStorageError(c, err, "submit RSVP")
			return
		}

		rec := models.GuestRecord{
			ID:           id,
			Name:         req.Name,
			Relationship: req.Relationship,
			Attendance:   req.Attendance,
			Message:      req.Message,
			SubmittedAt:  deps.now(),
		}
		if err := deps.Backend.Records.Append(ctx, tenantID, &rec); err != nil {
			respondStorageError(c, err, "submit RSVP")
			return
		}

		publish(deps, EventSubmitted, slug, tenantID, rec)
		utils.CreatedResponse(c, "RSVP submitted successfully", rec)
	}
}

// handleUpdateRSVP merges the request into the stored record and rewrites it
func handleUpdateRSVP(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug, tenantID := middleware.GetTenantFromContext(c)
		ctx := c.Request.Context()
		id := c.Param("id")

		var req UpdateRSVPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		unlock, err := deps.lock(ctx, tenantID)
		if err != nil {
			respondStorageError(c, err, "update RSVP")
			return
		}
		defer unlock()

		rec, err := deps.Backend.Records.FindByID(ctx, tenantID, id)
		if err != nil {
			respondStorageError(c, err, "update RSVP")
			return
		}
		if rec == nil {
			utils.NotFoundResponse(c, "RSVP not found")
			return
		}

		if req.Name != nil {
			rec.Name = *req.Name
		}
		if req.Relationship != nil {
			rec.Relationship = *req.Relationship
		}
		if req.Attendance != nil {
			rec.Attendance = *req.Attendance
		}
		if req.Message != nil {
			rec.Message = *req.Message
		}

		if err := deps.Backend.Records.Update(ctx, tenantID, rec); err != nil {
			respondStorageError(c, err, "update RSVP")
			return
		}

		publish(deps, EventUpdated, slug, tenantID, *rec)
		utils.OKResponse(c, "RSVP updated successfully", rec)
	}
}
