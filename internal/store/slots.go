package store

import (
	"context"

	"github.com/Viper-Industries/earnedshine/internal/domain"
)

// SlotRepository persists availability records keyed by (date, slot). Dates
// are "YYYY-MM-DD" keys and slots are "HH:MM" labels or domain.AllDaySlot.
type SlotRepository interface {
	// Get returns ErrNotFound when no record exists for the key.
	Get(ctx context.Context, date, slot string) (domain.AvailabilityRecord, error)
	Put(ctx context.Context, rec domain.AvailabilityRecord) error
	// Delete removes the record. Deleting an absent key is not an error.
	Delete(ctx context.Context, date, slot string) error
	ListByDate(ctx context.Context, date string) ([]domain.AvailabilityRecord, error)
	ListByBookingRef(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error)

	// Claim writes rec as BOOKED only if the key is absent, AVAILABLE, or
	// already booked by rec.BookingRef, and the date carries no BLOCKED
	// ALL_DAY record. Otherwise it returns ErrConflict.
	Claim(ctx context.Context, rec domain.AvailabilityRecord) error
}
