package httpapi

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/planboard/planboard/internal/errors"
)

// parseDate accepts "2006-01-02" or RFC 3339; empty yields nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return &t, nil
}

// errType buckets a domain error for metric labels.
func errType(err error) string {
	switch {
	case err == nil:
		return "none"
	case apperrors.IsPersistence(err):
		return "persistence"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperrors.ErrConstraint):
		return "constraint"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperrors.ErrCorruptHierarchy):
		return "corrupt_hierarchy"
	default:
		return "internal"
	}
}
