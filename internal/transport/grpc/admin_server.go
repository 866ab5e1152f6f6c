package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/service/bookings"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type AdminServer struct {
	bookings bookingsService
	calendar calendarService
	log      *slog.Logger
}

type bookingsService interface {
	Stats(ctx context.Context) (bookings.Stats, error)
	List(ctx context.Context, includeHidden bool) ([]domain.Booking, error)
	Update(ctx context.Context, id uuid.UUID, in bookings.UpdateInput) (domain.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor bookings.CancelActor) (domain.Booking, error)
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) (domain.Booking, error)
	HideFinished(ctx context.Context, includeCompleted bool) (int, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type calendarService interface {
	BlockDay(ctx context.Context, date time.Time, reason string) error
	UnblockDay(ctx context.Context, date time.Time) error
	BlockSlot(ctx context.Context, date time.Time, slot, reason string) error
	UnblockSlot(ctx context.Context, date time.Time, slot string) error
	IsDayBlocked(ctx context.Context, date time.Time) (bool, error)
	DayRecords(ctx context.Context, date time.Time) ([]domain.AvailabilityRecord, error)
}

func NewAdminServer(b bookingsService, c calendarService, log *slog.Logger) *AdminServer {
	if log == nil {
		log = slog.Default()
	}
	return &AdminServer{
		bookings: b,
		calendar: c,
		log:      log.With(slog.String("component", "grpc.admin")),
	}
}

// statusError maps service errors to gRPC status codes, logging each class
// at the level it deserves.
func statusError(log *slog.Logger, err error, args ...any) error {
	var vErr *domain.ValidationError
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", append([]any{slog.Any("err", err)}, args...)...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &capErr):
		log.Info("slots unavailable", append([]any{slog.Any("err", err)}, args...)...)
		return status.Error(codes.FailedPrecondition, "The selected time slot is not available for the requested service duration.")
	case errors.Is(err, store.ErrNotFound):
		log.Info("booking not found", args...)
		return status.Error(codes.NotFound, "booking not found")
	default:
		log.Error("request failed", append([]any{slog.Any("err", err)}, args...)...)
		return status.Error(codes.Internal, "internal error")
	}
}

func parseBookingID(log *slog.Logger, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return uuid.Nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	return id, nil
}

func parseDate(log *slog.Logger, raw string) (time.Time, error) {
	d, err := domain.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_date"), slog.String("date", raw))
		return time.Time{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return d, nil
}

func (s *AdminServer) GetStats(ctx context.Context, req *Empty) (*GetStatsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetStats"))

	st, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, statusError(log, err)
	}

	return &GetStatsResponse{
		Total:           st.Total,
		PendingPayment:  st.ByState[domain.StatusPendingPayment],
		Confirmed:       st.ByState[domain.StatusConfirmed],
		Completed:       st.ByState[domain.StatusCompleted],
		CanceledByUser:  st.ByState[domain.StatusCanceledByUser],
		CanceledByAdmin: st.ByState[domain.StatusCanceledByAdmin],
		Revenue:         st.Revenue.StringFixed(2),
	}, nil
}

func (s *AdminServer) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookings"))
	if req == nil {
		req = &ListBookingsRequest{}
	}

	rows, err := s.bookings.List(ctx, req.IncludeHidden)
	if err != nil {
		return nil, statusError(log, err)
	}

	out := make([]Booking, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBooking(b))
	}
	log.Debug("bookings listed", slog.Int("count", len(out)), slog.Bool("include_hidden", req.IncludeHidden))
	return &ListBookingsResponse{Bookings: out}, nil
}

func (s *AdminServer) UpdateBooking(ctx context.Context, req *UpdateBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	in := bookings.UpdateInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		VehicleType:   req.VehicleType,
		ServiceType:   req.ServiceType,
		Addons:        req.Addons,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Hidden:        req.Hidden,
	}
	if req.AppointmentTime != nil {
		t, err := domain.ParseAppointmentTime(*req.AppointmentTime)
		if err != nil {
			return nil, statusError(log, err, slog.String("booking_id", id.String()))
		}
		in.AppointmentTime = &t
	}

	b, err := s.bookings.Update(ctx, id, in)
	if err != nil {
		return nil, statusError(log, err, slog.String("booking_id", id.String()))
	}

	log.Info("booking updated", slog.String("booking_id", id.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toBooking(b)}, nil
}

func (s *AdminServer) CancelBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.Cancel(ctx, id, bookings.CanceledByAdmin)
	if err != nil {
		return nil, statusError(log, err, slog.String("booking_id", id.String()))
	}

	log.Info("booking canceled", slog.String("booking_id", id.String()))
	return &BookingResponse{Booking: toBooking(b)}, nil
}

func (s *AdminServer) SetBookingHidden(ctx context.Context, req *SetBookingHiddenRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "SetBookingHidden"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.SetHidden(ctx, id, req.Hidden)
	if err != nil {
		return nil, statusError(log, err, slog.String("booking_id", id.String()))
	}
	return &BookingResponse{Booking: toBooking(b)}, nil
}

func (s *AdminServer) CleanupBookings(ctx context.Context, req *CleanupBookingsRequest) (*CleanupBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "CleanupBookings"))
	if req == nil {
		req = &CleanupBookingsRequest{}
	}

	n, err := s.bookings.HideFinished(ctx, req.IncludeCompleted)
	if err != nil {
		return nil, statusError(log, err)
	}

	log.Info("bookings cleaned up", slog.Int("hidden", n), slog.Bool("include_completed", req.IncludeCompleted))
	return &CleanupBookingsResponse{Hidden: n}, nil
}

func (s *AdminServer) ConfirmPayment(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "ConfirmPayment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseBookingID(log, req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.ConfirmPayment(ctx, id)
	if err != nil {
		return nil, statusError(log, err, slog.String("booking_id", id.String()))
	}

	log.Info("payment confirmed", slog.String("booking_id", id.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toBooking(b)}, nil
}

func (s *AdminServer) BlockDay(ctx context.Context, req *DayRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "BlockDay"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := parseDate(log, req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.BlockDay(ctx, date, strings.TrimSpace(req.Reason)); err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date))
	}

	log.Info("day blocked", slog.String("date", domain.DateKey(date)))
	return &Empty{}, nil
}

func (s *AdminServer) UnblockDay(ctx context.Context, req *DayRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "UnblockDay"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := parseDate(log, req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.UnblockDay(ctx, date); err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date))
	}

	log.Info("day unblocked", slog.String("date", domain.DateKey(date)))
	return &Empty{}, nil
}

func (s *AdminServer) BlockSlot(ctx context.Context, req *SlotRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "BlockSlot"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := parseDate(log, req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.BlockSlot(ctx, date, strings.TrimSpace(req.Slot), strings.TrimSpace(req.Reason)); err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date), slog.String("slot", req.Slot))
	}

	log.Info("slot blocked", slog.String("date", domain.DateKey(date)), slog.String("slot", req.Slot))
	return &Empty{}, nil
}

func (s *AdminServer) UnblockSlot(ctx context.Context, req *SlotRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "UnblockSlot"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := parseDate(log, req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.UnblockSlot(ctx, date, strings.TrimSpace(req.Slot)); err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date), slog.String("slot", req.Slot))
	}

	log.Info("slot unblocked", slog.String("date", domain.DateKey(date)), slog.String("slot", req.Slot))
	return &Empty{}, nil
}

func (s *AdminServer) GetDayAvailability(ctx context.Context, req *DayRequest) (*GetDayAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "GetDayAvailability"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := parseDate(log, req.Date)
	if err != nil {
		return nil, err
	}

	blocked, err := s.calendar.IsDayBlocked(ctx, date)
	if err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date))
	}
	recs, err := s.calendar.DayRecords(ctx, date)
	if err != nil {
		return nil, statusError(log, err, slog.String("date", req.Date))
	}

	out := make([]AvailabilityRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, AvailabilityRecord{
			Date:      r.Date,
			Slot:      r.Slot,
			Status:    string(r.Status),
			Reason:    r.Reason,
			BookingID: r.BookingRef,
		})
	}
	return &GetDayAvailabilityResponse{Date: domain.DateKey(date), Blocked: blocked, Records: out}, nil
}

func toBooking(b domain.Booking) Booking {
	addons := b.Addons
	if addons == nil {
		addons = []string{}
	}
	return Booking{
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
		Hidden:          b.Hidden,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
