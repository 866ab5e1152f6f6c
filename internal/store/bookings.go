package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Viper-Industries/earnedshine/internal/domain"
)

type BookingFilter struct {
	Statuses []domain.BookingStatus
	// Before keeps bookings whose appointment time is strictly earlier.
	Before        *time.Time
	IncludeHidden bool
}

type BookingRepository interface {
	// Create inserts b and reports inserted=true. When a booking with the same
	// id already exists and matches b it is returned unchanged with
	// inserted=false; a mismatch is ErrIdempotencyConflict.
	Create(ctx context.Context, b domain.Booking) (created domain.Booking, inserted bool, err error)
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	Update(ctx context.Context, b domain.Booking) (domain.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
}

// SameRequest reports whether stored and requested describe the same booking
// request, ignoring server-assigned fields.
func SameRequest(stored, requested domain.Booking) bool {
	if stored.Name != requested.Name ||
		stored.Email != requested.Email ||
		stored.Phone != requested.Phone ||
		stored.Address != requested.Address ||
		stored.VehicleType != requested.VehicleType ||
		stored.ServiceType != requested.ServiceType ||
		stored.PaymentMethod != requested.PaymentMethod ||
		!stored.AppointmentTime.Equal(requested.AppointmentTime) ||
		len(stored.Addons) != len(requested.Addons) {
		return false
	}
	for i := range stored.Addons {
		if stored.Addons[i] != requested.Addons[i] {
			return false
		}
	}
	return true
}

// Matches reports whether b passes f.
func (f BookingFilter) Matches(b domain.Booking) bool {
	if b.Hidden && !f.IncludeHidden {
		return false
	}
	if f.Before != nil && !b.AppointmentTime.Before(*f.Before) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if b.Status == s {
			return true
		}
	}
	return false
}
