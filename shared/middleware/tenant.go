package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/tenant"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/utils"
)

// Context keys set by TenantResolver
const (
	TenantSlugKey         = "tenant_slug"
	TenantIDKey           = "tenant_id"
	TenantRejectReasonKey = "tenant_reject_reason"
)

// TenantValidator is satisfied by *tenant.Validator
type TenantValidator interface {
	Validate(ctx context.Context, identifier string) tenant.Result
}

// TenantResolver takes the tenant from the first path segment and rejects
// requests whose tenant is malformed, unknown or inactive
func TenantResolver(validator TenantValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug, _ := tenant.ExtractFromPath(c.Request.URL.Path)
		if slug == "" {
			// Let the validator classify the raw segment
			slug = c.Param("tenant")
		}

		result := validator.Validate(c.Request.Context(), slug)
		if !result.Valid {
			status := http.StatusNotFound
			if result.Reason == tenant.ReasonLookupFailed {
				status = http.StatusServiceUnavailable
			}
			c.Set(TenantRejectReasonKey, string(result.Reason))
			utils.AbortWithReason(c, status, result.Error, string(result.Reason))
			return
		}

		c.Set(TenantSlugKey, result.Identifier)
		c.Set(TenantIDKey, result.ResolvedID)
		c.Next()
	}
}

// GetTenantFromContext returns the slug and resolved id set by TenantResolver
func GetTenantFromContext(c *gin.Context) (slug, resolvedID string) {
	return c.GetString(TenantSlugKey), c.GetString(TenantIDKey)
}
