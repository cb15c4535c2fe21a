// Package validation checks fetched offer records at the boundary, so the
// pipeline can assume well-formed data and treat anything missing as a
// caller bug rather than a recoverable condition.
package validation

import (
	"fmt"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/calendar"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateOffer validates a single offer record from the feed.
func ValidateOffer(offer models.Offer) error {
	if offer.ID <= 0 {
		return &ValidationError{
			Field:   "id",
			Message: "must be a positive integer",
		}
	}

	if !offer.Category.Valid() {
		return &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category id %d", int(offer.Category)),
		}
	}

	if offer.ValidTo == "" {
		return &ValidationError{
			Field:   "valid_to",
			Message: "is required",
		}
	}

	if !calendar.IsValid(offer.ValidTo) {
		return &ValidationError{
			Field:   "valid_to",
			Message: fmt.Sprintf("%q is not a valid date", offer.ValidTo),
		}
	}

	if len(offer.Merchants.List) == 0 {
		return &ValidationError{
			Field:   "merchants",
			Message: "must contain at least one merchant",
		}
	}

	for i, m := range offer.Merchants.List {
		if m.Distance < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("merchants[%d].distance", i),
				Message: "must be non-negative",
			}
		}
	}

	return nil
}

// ValidateOffers validates every offer in a payload, reporting the index
// of the first bad record.
func ValidateOffers(offers []models.Offer) error {
	for i, offer := range offers {
		if err := ValidateOffer(offer); err != nil {
			return fmt.Errorf("invalid offer at index %d: %w", i, err)
		}
	}
	return nil
}

// ValidateCheckinDate validates a guest checkin date string.
func ValidateCheckinDate(s string) error {
	if !calendar.IsValid(s) {
		return &ValidationError{
			Field:   "checkin_date",
			Message: fmt.Sprintf("%q is not a valid date", s),
		}
	}
	return nil
}
