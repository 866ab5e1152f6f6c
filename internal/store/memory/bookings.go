package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type BookingRepo struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	now      func() time.Time
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{
		bookings: make(map[uuid.UUID]domain.Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, false, err
		}
		b.ID = id
	}
	if existing, ok := r.bookings[b.ID]; ok {
		if !store.SameRequest(existing, b) {
			return domain.Booking{}, false, store.ErrIdempotencyConflict
		}
		return clone(existing), false, nil
	}

	now := r.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b = clone(b)
	r.bookings[b.ID] = b
	return clone(b), true, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return clone(b), nil
}

func (r *BookingRepo) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.bookings[b.ID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.now()
	b = clone(b)
	r.bookings[b.ID] = b
	return clone(b), nil
}

func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *BookingRepo) List(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if f.Matches(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentTime.Equal(out[j].AppointmentTime) {
			return out[i].AppointmentTime.Before(out[j].AppointmentTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func clone(b domain.Booking) domain.Booking {
	if b.Addons != nil {
		b.Addons = append([]string(nil), b.Addons...)
	}
	return b
}
