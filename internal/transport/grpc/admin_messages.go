package grpc

import "time"

type Empty struct{}

type Booking struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address,omitempty"`
	VehicleType     string    `json:"vehicle_type,omitempty"`
	ServiceType     string    `json:"service_type"`
	Addons          []string  `json:"addons"`
	AppointmentTime string    `json:"appointment_time"`
	PaymentMethod   string    `json:"payment_method"`
	Status          string    `json:"status"`
	Hidden          bool      `json:"hidden"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AvailabilityRecord struct {
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
}

type GetStatsResponse struct {
	Total           int    `json:"total"`
	PendingPayment  int    `json:"pending_payment"`
	Confirmed       int    `json:"confirmed"`
	Completed       int    `json:"completed"`
	CanceledByUser  int    `json:"canceled_by_user"`
	CanceledByAdmin int    `json:"canceled_by_admin"`
	Revenue         string `json:"revenue"`
}

type ListBookingsRequest struct {
	IncludeHidden bool `json:"include_hidden"`
}

type ListBookingsResponse struct {
	Bookings []Booking `json:"bookings"`
}

type BookingRequest struct {
	BookingID string `json:"booking_id"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

// UpdateBookingRequest leaves fields that are absent from the message unchanged.
type UpdateBookingRequest struct {
	BookingID       string    `json:"booking_id"`
	Name            *string   `json:"name,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Address         *string   `json:"address,omitempty"`
	VehicleType     *string   `json:"vehicle_type,omitempty"`
	ServiceType     *string   `json:"service_type,omitempty"`
	Addons          *[]string `json:"addons,omitempty"`
	AppointmentTime *string   `json:"appointment_time,omitempty"`
	PaymentMethod   *string   `json:"payment_method,omitempty"`
	Status          *string   `json:"status,omitempty"`
	Hidden          *bool     `json:"hidden,omitempty"`
}

type SetBookingHiddenRequest struct {
	BookingID string `json:"booking_id"`
	Hidden    bool   `json:"hidden"`
}

type CleanupBookingsRequest struct {
	IncludeCompleted bool `json:"include_completed"`
}

type CleanupBookingsResponse struct {
	Hidden int `json:"hidden"`
}

type DayRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type SlotRequest struct {
	Date   string `json:"date"`
	Slot   string `json:"slot"`
	Reason string `json:"reason,omitempty"`
}

type GetDayAvailabilityResponse struct {
	Date    string               `json:"date"`
	Blocked bool                 `json:"blocked"`
	Records []AvailabilityRecord `json:"records"`
}
