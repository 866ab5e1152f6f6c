package httpapi

import (
	"time"

	"github.com/Viper-Industries/earnedshine/internal/domain"
)

type bookingResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address,omitempty"`
	VehicleType     string    `json:"vehicleType,omitempty"`
	ServiceType     string    `json:"serviceType"`
	ServiceName     string    `json:"serviceName,omitempty"`
	Addons          []string  `json:"addons"`
	AppointmentTime string    `json:"appointmentTime"`
	PaymentMethod   string    `json:"paymentMethod"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"durationMinutes"`
}

type recordResponse struct {
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
}

func (h *Handler) toBooking(b domain.Booking) bookingResponse {
	addons := b.Addons
	if addons == nil {
		addons = []string{}
	}
	out := bookingResponse{
		ID:              b.ID.String(),
		Name:            b.Name,
		Email:           b.Email,
		Phone:           b.Phone,
		Address:         b.Address,
		VehicleType:     b.VehicleType,
		ServiceType:     b.ServiceType,
		Addons:          addons,
		AppointmentTime: domain.FormatAppointmentTime(b.AppointmentTime),
		PaymentMethod:   string(b.PaymentMethod),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
	}
	if s, ok := h.catalog.Service(b.ServiceType); ok {
		out.ServiceName = s.Name
	}
	return out
}

func toRecords(recs []domain.AvailabilityRecord) []recordResponse {
	out := make([]recordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordResponse{
			Date:      r.Date,
			Slot:      r.Slot,
			Status:    string(r.Status),
			Reason:    r.Reason,
			BookingID: r.BookingRef,
		})
	}
	return out
}
