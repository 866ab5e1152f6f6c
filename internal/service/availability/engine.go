// Package availability reserves, releases and queries slot ranges on the
// working calendar.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/service/pricing"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

// maxWriteAttempts bounds per-slot retries of store writes that fail for
// reasons other than a conflict.
const maxWriteAttempts = 3

type Engine struct {
	slots   store.SlotRepository
	pricing pricing.Lookup
	logger  *slog.Logger
}

func NewEngine(slots store.SlotRepository, lookup pricing.Lookup, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{slots: slots, pricing: lookup, logger: logger}
}

type dayState struct {
	blocked bool
	records map[string]domain.AvailabilityRecord
}

func (d dayState) free(slot, excludeRef string) bool {
	if d.blocked {
		return false
	}
	rec, ok := d.records[slot]
	if !ok {
		return true
	}
	return rec.FreeFor(excludeRef)
}

func (e *Engine) loadDay(ctx context.Context, dateKey string) (dayState, error) {
	recs, err := e.slots.ListByDate(ctx, dateKey)
	if err != nil {
		return dayState{}, fmt.Errorf("list availability for %s: %w", dateKey, err)
	}
	st := dayState{records: make(map[string]domain.AvailabilityRecord, len(recs))}
	for _, r := range recs {
		if r.IsAllDay() {
			st.blocked = r.Status == domain.AvailabilityBlocked
			continue
		}
		st.records[r.Slot] = r
	}
	return st, nil
}

// ServiceSlots returns the slots a service starting at startSlot occupies,
// truncated at the end of the working day.
func (e *Engine) ServiceSlots(startSlot, serviceType string) ([]string, error) {
	slots, _, err := domain.SlotRange(startSlot, domain.SlotsNeeded(e.pricing.DurationMinutes(serviceType)))
	return slots, err
}

func (e *Engine) IsSlotAvailable(ctx context.Context, date time.Time, slot, excludeRef string) (bool, error) {
	if _, err := domain.ParseSlot(slot); err != nil {
		return false, err
	}
	st, err := e.loadDay(ctx, domain.DateKey(date))
	if err != nil {
		return false, err
	}
	return st.free(slot, excludeRef), nil
}

// AreServiceSlotsAvailable reports false, not an error, when the start slot
// is unknown or the service would run past the last working slot.
func (e *Engine) AreServiceSlotsAvailable(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
	slots, complete, err := domain.SlotRange(startSlot, domain.SlotsNeeded(e.pricing.DurationMinutes(serviceType)))
	if err != nil || !complete {
		return false, nil
	}
	st, err := e.loadDay(ctx, domain.DateKey(date))
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if !st.free(s, excludeRef) {
			return false, nil
		}
	}
	return true, nil
}

// FindStartSlots lists, in calendar order, every start slot from which the
// whole service fits on free slots.
func (e *Engine) FindStartSlots(ctx context.Context, date time.Time, serviceType, excludeRef string) ([]string, error) {
	st, err := e.loadDay(ctx, domain.DateKey(date))
	if err != nil {
		return nil, err
	}
	out := []string{}
	if st.blocked {
		return out, nil
	}

	needed := domain.SlotsNeeded(e.pricing.DurationMinutes(serviceType))
	for i := 0; i+needed <= len(domain.WorkingHours); i++ {
		fits := true
		for _, s := range domain.WorkingHours[i : i+needed] {
			if !st.free(s, excludeRef) {
				fits = false
				break
			}
		}
		if fits {
			out = append(out, domain.WorkingHours[i])
		}
	}
	return out, nil
}

func (e *Engine) ReserveServiceSlots(ctx context.Context, date time.Time, startSlot, serviceType, ref string) error {
	slots, err := e.ServiceSlots(startSlot, serviceType)
	if err != nil {
		return err
	}
	err = e.ReserveSlots(ctx, date, slots, ref)
	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		capErr.ServiceType = serviceType
	}
	return err
}

// ReleaseServiceSlots clears every slot in the service's range regardless of
// which booking holds it.
func (e *Engine) ReleaseServiceSlots(ctx context.Context, date time.Time, startSlot, serviceType, ref string) error {
	slots, err := e.ServiceSlots(startSlot, serviceType)
	if err != nil {
		return err
	}
	return e.ReleaseSlots(ctx, date, slots, ref)
}

// ReserveSlots books every slot for ref or none of them. A slot taken by
// someone else, or a blocked day, yields *domain.CapacityError after the
// slots claimed by this call have been released again.
func (e *Engine) ReserveSlots(ctx context.Context, date time.Time, slots []string, ref string) error {
	if ref == "" {
		return domain.Invalid("booking reference is required")
	}
	dateKey := domain.DateKey(date)

	st, err := e.loadDay(ctx, dateKey)
	if err != nil {
		return err
	}
	if st.blocked {
		return &domain.CapacityError{Date: dateKey, Slot: domain.AllDaySlot}
	}

	claimed := make([]string, 0, len(slots))
	for _, slot := range slots {
		if _, err := domain.ParseSlot(slot); err != nil {
			e.rollback(ctx, dateKey, claimed, ref)
			return err
		}
		held := false
		if rec, ok := st.records[slot]; ok && rec.Status == domain.AvailabilityBooked && rec.BookingRef == ref {
			held = true
		}

		err := e.claim(ctx, domain.AvailabilityRecord{
			Date:       dateKey,
			Slot:       slot,
			Status:     domain.AvailabilityBooked,
			Reason:     domain.ReasonCustomerBooking,
			BookingRef: ref,
		})
		if err != nil {
			e.rollback(ctx, dateKey, claimed, ref)
			if errors.Is(err, store.ErrConflict) {
				return &domain.CapacityError{Date: dateKey, Slot: slot}
			}
			return fmt.Errorf("reserve slot %s %s: %w", dateKey, slot, err)
		}
		if !held {
			claimed = append(claimed, slot)
		}
	}
	return nil
}

// ReleaseSlots deletes every slot record, attempting all of them before
// reporting the failures.
func (e *Engine) ReleaseSlots(ctx context.Context, date time.Time, slots []string, ref string) error {
	dateKey := domain.DateKey(date)
	var errs []error
	for _, slot := range slots {
		if err := e.delete(ctx, dateKey, slot); err != nil {
			errs = append(errs, fmt.Errorf("release slot %s %s: %w", dateKey, slot, err))
		}
	}
	if len(errs) > 0 {
		e.logger.Error("release incomplete",
			slog.String("date", dateKey),
			slog.String("booking_ref", ref),
			slog.Any("err", errors.Join(errs...)),
		)
	}
	return errors.Join(errs...)
}

func (e *Engine) claim(ctx context.Context, rec domain.AvailabilityRecord) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = e.slots.Claim(ctx, rec)
		if err == nil || errors.Is(err, store.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (e *Engine) delete(ctx context.Context, dateKey, slot string) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if err = e.slots.Delete(ctx, dateKey, slot); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// rollback runs on a context detached from cancellation so a canceled
// request still cleans up the slots it claimed.
func (e *Engine) rollback(ctx context.Context, dateKey string, claimed []string, ref string) {
	ctx = context.WithoutCancel(ctx)
	for _, slot := range claimed {
		if err := e.delete(ctx, dateKey, slot); err != nil {
			e.logger.Error("rollback slot failed",
				slog.String("date", dateKey),
				slog.String("slot", slot),
				slog.String("booking_ref", ref),
				slog.Any("err", err),
			)
		}
	}
}

func (e *Engine) BlockDay(ctx context.Context, date time.Time, reason string) error {
	return e.slots.Put(ctx, domain.AvailabilityRecord{
		Date:   domain.DateKey(date),
		Slot:   domain.AllDaySlot,
		Status: domain.AvailabilityBlocked,
		Reason: reason,
	})
}

func (e *Engine) UnblockDay(ctx context.Context, date time.Time) error {
	return e.slots.Delete(ctx, domain.DateKey(date), domain.AllDaySlot)
}

// BlockSlot overwrites the slot record. An existing booking in the slot is
// not canceled; its record is replaced by the block.
func (e *Engine) BlockSlot(ctx context.Context, date time.Time, slot, reason string) error {
	if _, err := domain.ParseSlot(slot); err != nil {
		return err
	}
	return e.slots.Put(ctx, domain.AvailabilityRecord{
		Date:   domain.DateKey(date),
		Slot:   slot,
		Status: domain.AvailabilityBlocked,
		Reason: reason,
	})
}

func (e *Engine) UnblockSlot(ctx context.Context, date time.Time, slot string) error {
	if _, err := domain.ParseSlot(slot); err != nil {
		return err
	}
	return e.slots.Delete(ctx, domain.DateKey(date), slot)
}

func (e *Engine) IsDayBlocked(ctx context.Context, date time.Time) (bool, error) {
	rec, err := e.slots.Get(ctx, domain.DateKey(date), domain.AllDaySlot)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Status == domain.AvailabilityBlocked, nil
}

// DayRecords returns the explicit records of a date, day sentinel included.
func (e *Engine) DayRecords(ctx context.Context, date time.Time) ([]domain.AvailabilityRecord, error) {
	return e.slots.ListByDate(ctx, domain.DateKey(date))
}

// CurrentSlots returns the records a booking holds.
func (e *Engine) CurrentSlots(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error) {
	return e.slots.ListByBookingRef(ctx, ref)
}

// Record returns the explicit record for a slot, store.ErrNotFound if none.
func (e *Engine) Record(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error) {
	if _, err := domain.ParseSlot(slot); err != nil {
		return domain.AvailabilityRecord{}, err
	}
	return e.slots.Get(ctx, domain.DateKey(date), slot)
}
