package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/apperrors"
)

// Common validation errors
var (
	ErrInvalidUUID = apperrors.ErrInvalidUUID
	ErrInvalidDate = fmt.Errorf("invalid date")
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ParseDate accepts a plain YYYY-MM-DD date or an RFC 3339 timestamp and
// returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q, expected YYYY-MM-DD", ErrInvalidDate, s)
}
