package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	StatusPendingPayment  BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed       BookingStatus = "CONFIRMED"
	StatusCompleted       BookingStatus = "COMPLETED"
	StatusCanceledByUser  BookingStatus = "CANCELED_BY_USER"
	StatusCanceledByAdmin BookingStatus = "CANCELED_BY_ADMIN"
)

var AllStatuses = []BookingStatus{
	StatusPendingPayment,
	StatusConfirmed,
	StatusCompleted,
	StatusCanceledByUser,
	StatusCanceledByAdmin,
}

// IsActive reports whether a booking in this status holds slot reservations.
func (s BookingStatus) IsActive() bool {
	return s == StatusPendingPayment || s == StatusConfirmed
}

func (s BookingStatus) IsCanceled() bool {
	return s == StatusCanceledByUser || s == StatusCanceledByAdmin
}

func (s BookingStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", validationError(fmt.Sprintf("invalid booking status %q", s))
	}
	return status, nil
}

type PaymentMethod string

const (
	PaymentOnline   PaymentMethod = "ONLINE"
	PaymentInPerson PaymentMethod = "IN_PERSON"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentOnline, PaymentInPerson:
		return m, nil
	default:
		return "", validationError(fmt.Sprintf("invalid payment method %q", s))
	}
}

// Booking is a customer appointment. AppointmentTime is a wall-clock time in
// the business time zone, carried with a UTC location.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid"`
	Name            string        `bun:"name,notnull"`
	Email           string        `bun:"email,notnull"`
	Phone           string        `bun:"phone,notnull"`
	Address         string        `bun:"address"`
	VehicleType     string        `bun:"vehicle_type"`
	ServiceType     string        `bun:"service_type,notnull"`
	Addons          []string      `bun:"addons,array"`
	AppointmentTime time.Time     `bun:"appointment_time,notnull,type:timestamp"`
	PaymentMethod   PaymentMethod `bun:"payment_method,notnull"`
	Status          BookingStatus `bun:"status,notnull"`
	Hidden          bool          `bun:"hidden,notnull,default:false"`
	CreatedAt       time.Time     `bun:"created_at,notnull"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// Ref is the identifier availability records use to point at this booking.
func (b Booking) Ref() string {
	return b.ID.String()
}

func (b Booking) Date() string {
	return DateKey(b.AppointmentTime)
}

// StartSlot returns the slot label of the appointment time.
func (b Booking) StartSlot() (string, error) {
	return SlotOf(b.AppointmentTime)
}

// SameSchedule reports whether two snapshots occupy the same time and service.
func (b Booking) SameSchedule(other Booking) bool {
	return b.AppointmentTime.Equal(other.AppointmentTime) && b.ServiceType == other.ServiceType
}
