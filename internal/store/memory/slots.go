// Package memory holds process-local repositories used by tests and by
// single-instance deployments configured with store=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type slotKey struct {
	date string
	slot string
}

type SlotRepo struct {
	mu      sync.RWMutex
	records map[slotKey]domain.AvailabilityRecord
}

func NewSlotRepo() *SlotRepo {
	return &SlotRepo{records: make(map[slotKey]domain.AvailabilityRecord)}
}

func (r *SlotRepo) Get(ctx context.Context, date, slot string) (domain.AvailabilityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[slotKey{date, slot}]
	if !ok {
		return domain.AvailabilityRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *SlotRepo) Put(ctx context.Context, rec domain.AvailabilityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[slotKey{rec.Date, rec.Slot}] = rec
	return nil
}

func (r *SlotRepo) Delete(ctx context.Context, date, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, slotKey{date, slot})
	return nil
}

func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]domain.AvailabilityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.AvailabilityRecord
	for k, rec := range r.records {
		if k.date == date {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *SlotRepo) ListByBookingRef(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.AvailabilityRecord
	for _, rec := range r.records {
		if rec.BookingRef == ref {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *SlotRepo) Claim(ctx context.Context, rec domain.AvailabilityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if day, ok := r.records[slotKey{rec.Date, domain.AllDaySlot}]; ok && day.Status == domain.AvailabilityBlocked {
		return store.ErrConflict
	}
	if cur, ok := r.records[slotKey{rec.Date, rec.Slot}]; ok && !cur.FreeFor(rec.BookingRef) {
		return store.ErrConflict
	}
	rec.Status = domain.AvailabilityBooked
	r.records[slotKey{rec.Date, rec.Slot}] = rec
	return nil
}

func sortRecords(recs []domain.AvailabilityRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date < recs[j].Date
		}
		return recs[i].Slot < recs[j].Slot
	})
}
