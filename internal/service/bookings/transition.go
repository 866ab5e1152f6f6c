package bookings

import "github.com/Viper-Industries/earnedshine/internal/domain"

type slotAction int

const (
	actionNone slotAction = iota
	actionReserve
	actionRelease
	actionRelocate
)

func (a slotAction) String() string {
	switch a {
	case actionReserve:
		return "reserve"
	case actionRelease:
		return "release"
	case actionRelocate:
		return "relocate"
	default:
		return "none"
	}
}

type transition struct {
	action slotAction
	// verify means the target slots must be free, excluding the booking
	// itself, before anything is written.
	verify bool
}

// planTransition decides how slot reservations follow a booking from old to
// updated. Rules are evaluated in order; the first match wins.
func planTransition(old, updated domain.Booking) transition {
	scheduleChanged := !old.SameSchedule(updated)

	switch {
	case scheduleChanged && updated.Status.IsActive():
		if old.Status.IsActive() {
			return transition{action: actionRelocate, verify: true}
		}
		return transition{action: actionReserve, verify: true}

	case scheduleChanged:
		if old.Status.IsActive() {
			return transition{action: actionRelease}
		}
		return transition{action: actionNone}

	case old.Status.IsActive() && !updated.Status.IsActive():
		return transition{action: actionRelease}

	case !old.Status.IsActive() && updated.Status.IsActive():
		return transition{action: actionReserve, verify: true}
	}
	return transition{action: actionNone}
}
