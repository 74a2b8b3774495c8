package tenant

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Reason classifies why a validation failed
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMissing      Reason = "missing"
	ReasonFormat       Reason = "invalid_format"
	ReasonNotFound     Reason = "not_found"
	ReasonLookupFailed Reason = "lookup_failed"
)

// Result is the structured outcome of Validate. Failures are reported here
// rather than as errors so callers can always render a response.
type Result struct {
	Valid      bool   `json:"valid"`
	Identifier string `json:"identifier,omitempty"`
	ResolvedID string `json:"resolved_id,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Validator checks identifiers against the slug rules and the registry.
// It does not cache: every call hits the registry.
type Validator struct {
	registry Registry
	log      *logrus.Entry
}

// NewValidator creates a validator backed by registry
func NewValidator(registry Registry) *Validator {
	return &Validator{
		registry: registry,
		log:      logrus.WithField("component", "tenant-validator"),
	}
}

// Validate resolves identifier to an active tenant
func (v *Validator) Validate(ctx context.Context, identifier string) Result {
	if identifier == "" {
		return v.fail(identifier, ReasonMissing, "no identifier provided")
	}

	if err := ValidateSlug(identifier); err != nil {
		return v.fail(identifier, ReasonFormat, fmt.Sprintf("invalid format: %v", err))
	}

	rec, err := v.registry.Lookup(ctx, identifier)
	if err != nil {
		return v.fail(identifier, ReasonLookupFailed, fmt.Sprintf("error validating tenant: %v", err))
	}

	if rec == nil || !rec.Found || !rec.Active {
		return v.fail(identifier, ReasonNotFound, fmt.Sprintf("tenant '%s' not found or inactive", identifier))
	}

	return Result{
		Valid:      true,
		Identifier: identifier,
		ResolvedID: rec.ResolvedID,
	}
}

func (v *Validator) fail(identifier string, reason Reason, msg string) Result {
	entry := v.log.WithFields(logrus.Fields{
		"tenant": identifier,
		"reason": reason,
	})
	switch reason {
	case ReasonLookupFailed:
		entry.Error(msg)
	case ReasonNotFound:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}

	return Result{
		Valid:      false,
		Identifier: identifier,
		Reason:     reason,
		Error:      msg,
	}
}
