package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/service/bookings"
	"github.com/Viper-Industries/earnedshine/internal/service/pricing"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type bookingsService interface {
	Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor bookings.CancelActor) (domain.Booking, error)
	BookingAt(ctx context.Context, date time.Time, slot string) (domain.Booking, error)
}

type calendarService interface {
	FindStartSlots(ctx context.Context, date time.Time, serviceType, excludeRef string) ([]string, error)
	IsDayBlocked(ctx context.Context, date time.Time) (bool, error)
	DayRecords(ctx context.Context, date time.Time) ([]domain.AvailabilityRecord, error)
	CurrentSlots(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error)
}

type catalogService interface {
	Services() []pricing.Service
	Service(id string) (pricing.Service, bool)
}

type Handler struct {
	bookings bookingsService
	calendar calendarService
	catalog  catalogService
	log      *slog.Logger
}

func NewHandler(b bookingsService, c calendarService, catalog catalogService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		bookings: b,
		calendar: c,
		catalog:  catalog,
		log:      log.With(slog.String("component", "http")),
	}
}

// writeError maps service errors onto HTTP statuses with a JSON body.
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	var vErr *domain.ValidationError
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{"error": "The selected time slot is not available for the requested service duration."})
	case errors.Is(err, store.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key was already used with a different request"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.log.Error(op+" failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) dateParam(c *gin.Context) (time.Time, bool) {
	d, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}
	return d, true
}

func bookingIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

type createBookingRequest struct {
	Name            string   `json:"name" binding:"required"`
	Email           string   `json:"email" binding:"required,email"`
	Phone           string   `json:"phone" binding:"required"`
	Address         string   `json:"address"`
	VehicleType     string   `json:"vehicleType"`
	ServiceType     string   `json:"serviceType" binding:"required"`
	Addons          []string `json:"addons"`
	AppointmentTime string   `json:"appointmentTime" binding:"required"`
	PaymentMethod   string   `json:"paymentMethod" binding:"required"`
}

// CreateBooking handles POST /api/bookings. An Idempotency-Key header makes
// retries return the booking created by the first request.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	when, err := domain.ParseAppointmentTime(req.AppointmentTime)
	if err != nil {
		h.writeError(c, "create booking", err)
		return
	}

	b, err := h.bookings.Create(c.Request.Context(), bookings.CreateInput{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Address:         req.Address,
		VehicleType:     req.VehicleType,
		ServiceType:     req.ServiceType,
		Addons:          req.Addons,
		AppointmentTime: when,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.writeError(c, "create booking", err)
		return
	}
	c.JSON(http.StatusCreated, h.toBooking(b))
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingIDParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get booking", err)
		return
	}
	c.JSON(http.StatusOK, h.toBooking(b))
}

// CancelBooking handles DELETE /api/bookings/:id, a cancellation by the customer.
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := bookingIDParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, bookings.CanceledByUser)
	if err != nil {
		h.writeError(c, "cancel booking", err)
		return
	}
	c.JSON(http.StatusOK, h.toBooking(b))
}

func (h *Handler) ListServices(c *gin.Context) {
	services := h.catalog.Services()
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, serviceResponse{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			Price:           s.Price.StringFixed(2),
			DurationMinutes: s.DurationMinutes,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListStartSlots handles GET /api/availability/slots/:date. excludeBookingId
// lets an edit see the slots its own booking holds as free.
func (h *Handler) ListStartSlots(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	serviceType := strings.TrimSpace(c.Query("serviceType"))
	if serviceType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serviceType is required"})
		return
	}
	if _, ok := h.catalog.Service(serviceType); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown serviceType"})
		return
	}
	exclude := strings.TrimSpace(c.Query("excludeBookingId"))
	if exclude != "" {
		if _, err := uuid.Parse(exclude); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "excludeBookingId must be a UUID"})
			return
		}
	}

	slots, err := h.calendar.FindStartSlots(c.Request.Context(), date, serviceType, exclude)
	if err != nil {
		h.writeError(c, "find start slots", err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        domain.DateKey(date),
		"serviceType": serviceType,
		"slots":       slots,
	})
}

func (h *Handler) GetDayAvailability(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	blocked, err := h.calendar.IsDayBlocked(ctx, date)
	if err != nil {
		h.writeError(c, "day availability", err)
		return
	}
	recs, err := h.calendar.DayRecords(ctx, date)
	if err != nil {
		h.writeError(c, "day availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    domain.DateKey(date),
		"blocked": blocked,
		"records": toRecords(recs),
	})
}

func (h *Handler) CurrentSlots(c *gin.Context) {
	id, ok := bookingIDParam(c, "bookingId")
	if !ok {
		return
	}
	recs, err := h.calendar.CurrentSlots(c.Request.Context(), id.String())
	if err != nil {
		h.writeError(c, "current slots", err)
		return
	}
	c.JSON(http.StatusOK, toRecords(recs))
}

// BookingDetails returns the booking holding a slot, or 404 when the slot
// is not booked.
func (h *Handler) BookingDetails(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	slot, err := domain.ParseSlot(c.Param("slot"))
	if err != nil {
		h.writeError(c, "booking details", err)
		return
	}
	b, err := h.bookings.BookingAt(c.Request.Context(), date, slot)
	if err != nil {
		h.writeError(c, "booking details", err)
		return
	}
	c.JSON(http.StatusOK, h.toBooking(b))
}
