package bookings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Viper-Industries/earnedshine/internal/domain"
)

// transition persists updated and moves old's slot reservations to match.
// New slots are reserved first and old ones released second, so a relocated
// booking always holds at least one of the two ranges. If persisting fails
// the slot changes are undone.
func (s *Service) transition(ctx context.Context, old, updated domain.Booking) (domain.Booking, error) {
	plan := planTransition(old, updated)
	ref := old.Ref()

	var oldSlots, newSlots []string
	var err error
	if plan.action == actionRelease || plan.action == actionRelocate {
		if oldSlots, err = s.occupied(old); err != nil {
			return domain.Booking{}, err
		}
	}
	if plan.action == actionReserve || plan.action == actionRelocate {
		if newSlots, err = s.occupied(updated); err != nil {
			return domain.Booking{}, err
		}
	}

	if plan.verify {
		start, err := updated.StartSlot()
		if err != nil {
			return domain.Booking{}, err
		}
		ok, err := s.slots.AreServiceSlotsAvailable(ctx, updated.AppointmentTime, start, updated.ServiceType, ref)
		if err != nil {
			return domain.Booking{}, err
		}
		if !ok {
			return domain.Booking{}, &domain.CapacityError{Date: updated.Date(), Slot: start, ServiceType: updated.ServiceType}
		}
	}

	toReserve, toRelease := newSlots, oldSlots
	if plan.action == actionRelocate && old.Date() == updated.Date() {
		toReserve = without(newSlots, oldSlots)
		toRelease = without(oldSlots, newSlots)
	}

	if len(toReserve) > 0 {
		if err := s.slots.ReserveSlots(ctx, updated.AppointmentTime, toReserve, ref); err != nil {
			var capErr *domain.CapacityError
			if errors.As(err, &capErr) {
				capErr.ServiceType = updated.ServiceType
			}
			return domain.Booking{}, err
		}
	}
	if len(toRelease) > 0 {
		if err := s.slots.ReleaseSlots(ctx, old.AppointmentTime, toRelease, ref); err != nil {
			s.restore(ctx, old, updated, toReserve, toRelease)
			return domain.Booking{}, err
		}
	}

	persisted, err := s.bookings.Update(ctx, updated)
	if err != nil {
		s.restore(ctx, old, updated, toReserve, toRelease)
		return domain.Booking{}, err
	}

	if plan.action != actionNone || old.Status != updated.Status {
		s.logger.Info("booking updated",
			slog.String("booking_id", ref),
			slog.String("from", string(old.Status)),
			slog.String("to", string(updated.Status)),
			slog.String("slots", plan.action.String()),
		)
	}
	return persisted, nil
}

// restore puts back the reservations old held before a failed transition.
func (s *Service) restore(ctx context.Context, old, updated domain.Booking, reserved, released []string) {
	ctx = context.WithoutCancel(ctx)
	ref := old.Ref()
	if len(released) > 0 {
		if err := s.slots.ReserveSlots(ctx, old.AppointmentTime, released, ref); err != nil {
			s.logger.Error("restore released slots failed", slog.String("booking_id", ref), slog.Any("err", err))
		}
	}
	if len(reserved) > 0 {
		if err := s.slots.ReleaseSlots(ctx, updated.AppointmentTime, reserved, ref); err != nil {
			s.logger.Error("undo reserved slots failed", slog.String("booking_id", ref), slog.Any("err", err))
		}
	}
}

func (s *Service) occupied(b domain.Booking) ([]string, error) {
	start, err := b.StartSlot()
	if err != nil {
		return nil, err
	}
	return s.slots.ServiceSlots(start, b.ServiceType)
}

func without(slots, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, s := range remove {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
