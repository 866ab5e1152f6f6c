package domain

import "github.com/uptrace/bun"

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBlocked   AvailabilityStatus = "BLOCKED"
	AvailabilityBooked    AvailabilityStatus = "BOOKED"
)

const ReasonCustomerBooking = "customer_booking"

// AvailabilityRecord is the state of one (date, slot) key. A missing record
// means the slot is available.
type AvailabilityRecord struct {
	bun.BaseModel `bun:"table:availability,alias:a"`

	Date       string             `bun:"date,pk"`
	Slot       string             `bun:"slot,pk"`
	Status     AvailabilityStatus `bun:"status,notnull"`
	Reason     string             `bun:"reason,notnull,default:''"`
	BookingRef string             `bun:"booking_ref,nullzero"`
}

func (r AvailabilityRecord) IsAllDay() bool {
	return r.Slot == AllDaySlot
}

// FreeFor reports whether the slot may be taken by excludeRef: available,
// or booked by excludeRef itself.
func (r AvailabilityRecord) FreeFor(excludeRef string) bool {
	switch r.Status {
	case AvailabilityAvailable:
		return true
	case AvailabilityBooked:
		return excludeRef != "" && r.BookingRef == excludeRef
	default:
		return false
	}
}
