package tenant

import (
	"errors"
	"regexp"
)

const (
	// MinSlugLength is the shortest accepted tenant identifier
	MinSlugLength = 2
	// MaxSlugLength is the longest accepted tenant identifier
	MaxSlugLength = 50
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	// ErrSlugEmpty is returned for an empty identifier
	ErrSlugEmpty = errors.New("tenant identifier is empty")
	// ErrSlugInvalidChars is returned when the identifier has characters outside [A-Za-z0-9_-]
	ErrSlugInvalidChars = errors.New("tenant identifier contains invalid characters (allowed: letters, digits, '-' and '_')")
	// ErrSlugTooShort is returned for identifiers shorter than MinSlugLength
	ErrSlugTooShort = errors.New("tenant identifier is too short (minimum 2 characters)")
	// ErrSlugTooLong is returned for identifiers longer than MaxSlugLength
	ErrSlugTooLong = errors.New("tenant identifier is too long (maximum 50 characters)")
)

// ValidateSlug checks a tenant identifier against the format rules.
// Checks run in order: non-empty, character class, length.
func ValidateSlug(slug string) error {
	if slug == "" {
		return ErrSlugEmpty
	}
	if !slugPattern.MatchString(slug) {
		return ErrSlugInvalidChars
	}
	if len(slug) < MinSlugLength {
		return ErrSlugTooShort
	}
	if len(slug) > MaxSlugLength {
		return ErrSlugTooLong
	}
	return nil
}

// IsValidSlug reports whether slug passes ValidateSlug
func IsValidSlug(slug string) bool {
	return ValidateSlug(slug) == nil
}
