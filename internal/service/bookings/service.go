// Package bookings runs the booking lifecycle and keeps each booking's slot
// reservations in step with its status, time and service.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/service/pricing"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

// Slots is the part of the availability engine the lifecycle drives.
type Slots interface {
	ServiceSlots(startSlot, serviceType string) ([]string, error)
	AreServiceSlotsAvailable(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error)
	ReserveSlots(ctx context.Context, date time.Time, slots []string, ref string) error
	ReleaseSlots(ctx context.Context, date time.Time, slots []string, ref string) error
	Record(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error)
}

type Options struct {
	// Location is the business time zone appointment times are expressed in.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type Service struct {
	bookings store.BookingRepository
	slots    Slots
	catalog  *pricing.Catalog
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(bookings store.BookingRepository, slots Slots, catalog *pricing.Catalog, opts Options) *Service {
	s := &Service{
		bookings: bookings,
		slots:    slots,
		catalog:  catalog,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// wallNow is the current time on the business clock, comparable with
// appointment times.
func (s *Service) wallNow() time.Time {
	return domain.WallClock(s.now().In(s.loc))
}

type CreateInput struct {
	Name            string
	Email           string
	Phone           string
	Address         string
	VehicleType     string
	ServiceType     string
	Addons          []string
	AppointmentTime time.Time
	PaymentMethod   string
	IdempotencyKey  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	b := domain.Booking{
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		Address:         strings.TrimSpace(in.Address),
		VehicleType:     strings.TrimSpace(in.VehicleType),
		ServiceType:     strings.TrimSpace(in.ServiceType),
		AppointmentTime: domain.WallClock(in.AppointmentTime),
		Status:          domain.StatusPendingPayment,
	}
	if b.Name == "" {
		return domain.Booking{}, domain.Invalid("name is required")
	}
	if b.Email == "" {
		return domain.Booking{}, domain.Invalid("email is required")
	}
	if b.Phone == "" {
		return domain.Booking{}, domain.Invalid("phone is required")
	}
	if _, ok := s.catalog.Service(b.ServiceType); !ok {
		return domain.Booking{}, domain.Invalid(fmt.Sprintf("unknown service type %q", in.ServiceType))
	}
	addons, err := s.normalizeAddons(in.Addons)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Addons = addons

	method, err := domain.ParsePaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if err != nil {
		return domain.Booking{}, err
	}
	b.PaymentMethod = method

	startSlot, err := b.StartSlot()
	if err != nil {
		return domain.Booking{}, err
	}

	excludeRef := ""
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Booking{}, domain.Invalid("idempotency_key too long")
		}
		b.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("earnedshine:create_booking:"+key))
		excludeRef = b.Ref()

		stored, err := s.bookings.Get(ctx, b.ID)
		switch {
		case err == nil:
			if !store.SameRequest(stored, b) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return s.replay(ctx, stored)
		case !errors.Is(err, store.ErrNotFound):
			return domain.Booking{}, err
		}
	}

	if !b.AppointmentTime.After(s.wallNow()) {
		return domain.Booking{}, domain.Invalid("appointment_time must be in the future")
	}
	ok, err := s.slots.AreServiceSlotsAvailable(ctx, b.AppointmentTime, startSlot, b.ServiceType, excludeRef)
	if err != nil {
		return domain.Booking{}, err
	}
	if !ok {
		return domain.Booking{}, &domain.CapacityError{Date: b.Date(), Slot: startSlot, ServiceType: b.ServiceType}
	}

	created, inserted, err := s.bookings.Create(ctx, b)
	if err != nil {
		return domain.Booking{}, err
	}
	if !inserted {
		// A concurrent request with the same key inserted first.
		return s.replay(ctx, created)
	}

	slots, err := s.slots.ServiceSlots(startSlot, created.ServiceType)
	if err != nil {
		s.discard(ctx, created.ID)
		return domain.Booking{}, err
	}
	if err := s.slots.ReserveSlots(ctx, created.AppointmentTime, slots, created.Ref()); err != nil {
		s.discard(ctx, created.ID)
		var capErr *domain.CapacityError
		if errors.As(err, &capErr) {
			capErr.ServiceType = created.ServiceType
			return domain.Booking{}, capErr
		}
		return domain.Booking{}, fmt.Errorf("reserve slots for booking %s: %w", created.ID, err)
	}

	s.logger.Info("booking created",
		slog.String("booking_id", created.Ref()),
		slog.String("service_type", created.ServiceType),
		slog.String("date", created.Date()),
		slog.String("slot", startSlot),
	)
	return created, nil
}

// replay answers a repeated create with the stored booking. The stored row is
// never deleted here. An upcoming active booking that holds none of its slots
// (its first request failed between insert and reserve) is reserved again.
func (s *Service) replay(ctx context.Context, stored domain.Booking) (domain.Booking, error) {
	if !stored.Status.IsActive() || !stored.AppointmentTime.After(s.wallNow()) {
		return stored, nil
	}
	slots, err := s.occupied(stored)
	if err != nil {
		return domain.Booking{}, err
	}
	for _, slot := range slots {
		rec, err := s.slots.Record(ctx, stored.AppointmentTime, slot)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return domain.Booking{}, err
		}
		if rec.Status == domain.AvailabilityBooked && rec.BookingRef == stored.Ref() {
			return stored, nil
		}
	}

	if err := s.slots.ReserveSlots(ctx, stored.AppointmentTime, slots, stored.Ref()); err != nil {
		var capErr *domain.CapacityError
		if errors.As(err, &capErr) {
			capErr.ServiceType = stored.ServiceType
			return domain.Booking{}, capErr
		}
		return domain.Booking{}, fmt.Errorf("reserve slots for booking %s: %w", stored.ID, err)
	}
	s.logger.Warn("booking reservation recovered on replay", slog.String("booking_id", stored.Ref()))
	return stored, nil
}

// discard removes a freshly inserted booking whose slots could not be reserved.
func (s *Service) discard(ctx context.Context, id uuid.UUID) {
	if err := s.bookings.Delete(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("discard booking failed", slog.String("booking_id", id.String()), slog.Any("err", err))
	}
}

func (s *Service) normalizeAddons(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if !s.catalog.HasAddon(id) {
			return nil, domain.Invalid(fmt.Sprintf("unknown addon %q", id))
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.Invalid("booking_id is required")
	}
	return s.bookings.Get(ctx, id)
}

// UpdateInput carries an admin edit. Nil fields keep their current value.
type UpdateInput struct {
	Name            *string
	Phone           *string
	Address         *string
	VehicleType     *string
	ServiceType     *string
	Addons          *[]string
	PaymentMethod   *string
	Status          *string
	AppointmentTime *time.Time
	Hidden          *bool
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (domain.Booking, error) {
	old, err := s.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	updated := old
	updated.Addons = append([]string(nil), old.Addons...)
	if in.Name != nil {
		if updated.Name = strings.TrimSpace(*in.Name); updated.Name == "" {
			return domain.Booking{}, domain.Invalid("name is required")
		}
	}
	if in.Phone != nil {
		if updated.Phone = strings.TrimSpace(*in.Phone); updated.Phone == "" {
			return domain.Booking{}, domain.Invalid("phone is required")
		}
	}
	if in.Address != nil {
		updated.Address = strings.TrimSpace(*in.Address)
	}
	if in.VehicleType != nil {
		updated.VehicleType = strings.TrimSpace(*in.VehicleType)
	}
	if in.ServiceType != nil {
		updated.ServiceType = strings.TrimSpace(*in.ServiceType)
		if _, ok := s.catalog.Service(updated.ServiceType); !ok {
			return domain.Booking{}, domain.Invalid(fmt.Sprintf("unknown service type %q", *in.ServiceType))
		}
	}
	if in.Addons != nil {
		if updated.Addons, err = s.normalizeAddons(*in.Addons); err != nil {
			return domain.Booking{}, err
		}
	}
	if in.PaymentMethod != nil {
		if updated.PaymentMethod, err = domain.ParsePaymentMethod(strings.TrimSpace(*in.PaymentMethod)); err != nil {
			return domain.Booking{}, err
		}
	}
	if in.Status != nil {
		if updated.Status, err = domain.ParseBookingStatus(strings.TrimSpace(*in.Status)); err != nil {
			return domain.Booking{}, err
		}
	}
	if in.AppointmentTime != nil {
		updated.AppointmentTime = domain.WallClock(*in.AppointmentTime)
		if _, err := updated.StartSlot(); err != nil {
			return domain.Booking{}, err
		}
	}
	if in.Hidden != nil {
		updated.Hidden = *in.Hidden
	}

	return s.transition(ctx, old, updated)
}

type CancelActor string

const (
	CanceledByUser  CancelActor = "user"
	CanceledByAdmin CancelActor = "admin"
)

// Cancel moves a booking to the canceled status of actor and frees its slots
// if it held any.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor CancelActor) (domain.Booking, error) {
	old, err := s.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	updated := old
	switch actor {
	case CanceledByUser:
		updated.Status = domain.StatusCanceledByUser
	case CanceledByAdmin:
		updated.Status = domain.StatusCanceledByAdmin
	default:
		return domain.Booking{}, domain.Invalid(fmt.Sprintf("unknown cancel actor %q", actor))
	}
	return s.transition(ctx, old, updated)
}

// ConfirmPayment confirms a booking awaiting payment. Bookings in any other
// status are returned unchanged.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	old, err := s.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if old.Status != domain.StatusPendingPayment {
		return old, nil
	}
	updated := old
	updated.Status = domain.StatusConfirmed
	return s.transition(ctx, old, updated)
}

func (s *Service) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) (domain.Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Hidden == hidden {
		return b, nil
	}
	b.Hidden = hidden
	return s.bookings.Update(ctx, b)
}

// HideFinished hides visible canceled bookings, and completed ones too when
// includeCompleted is set. It returns how many bookings were hidden.
func (s *Service) HideFinished(ctx context.Context, includeCompleted bool) (int, error) {
	if _, err := s.SweepPastAppointments(ctx); err != nil {
		return 0, err
	}

	var statuses []domain.BookingStatus
	for _, st := range domain.AllStatuses {
		if st.IsCanceled() || (includeCompleted && st == domain.StatusCompleted) {
			statuses = append(statuses, st)
		}
	}
	rows, err := s.bookings.List(ctx, store.BookingFilter{Statuses: statuses})
	if err != nil {
		return 0, err
	}

	hidden := 0
	for _, b := range rows {
		b.Hidden = true
		if _, err := s.bookings.Update(ctx, b); err != nil {
			return hidden, fmt.Errorf("hide booking %s: %w", b.ID, err)
		}
		hidden++
	}
	return hidden, nil
}

func (s *Service) List(ctx context.Context, includeHidden bool) ([]domain.Booking, error) {
	if _, err := s.SweepPastAppointments(ctx); err != nil {
		return nil, err
	}
	return s.bookings.List(ctx, store.BookingFilter{IncludeHidden: includeHidden})
}

type Stats struct {
	Total   int
	ByState map[domain.BookingStatus]int
	Revenue decimal.Decimal
}

// Stats counts every booking, hidden ones included, and sums the revenue of
// confirmed and completed bookings.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if _, err := s.SweepPastAppointments(ctx); err != nil {
		return Stats{}, err
	}
	rows, err := s.bookings.List(ctx, store.BookingFilter{IncludeHidden: true})
	if err != nil {
		return Stats{}, err
	}

	out := Stats{
		Total:   len(rows),
		ByState: make(map[domain.BookingStatus]int, len(domain.AllStatuses)),
		Revenue: decimal.Zero,
	}
	for _, st := range domain.AllStatuses {
		out.ByState[st] = 0
	}
	for _, b := range rows {
		out.ByState[b.Status]++
		if b.Status == domain.StatusConfirmed || b.Status == domain.StatusCompleted {
			out.Revenue = out.Revenue.Add(s.catalog.TotalPrice(b.ServiceType, b.Addons))
		}
	}
	return out, nil
}

// BookingAt returns the booking holding a slot, store.ErrNotFound if the
// slot is not booked.
func (s *Service) BookingAt(ctx context.Context, date time.Time, slot string) (domain.Booking, error) {
	rec, err := s.slots.Record(ctx, date, slot)
	if err != nil {
		return domain.Booking{}, err
	}
	if rec.Status != domain.AvailabilityBooked || rec.BookingRef == "" {
		return domain.Booking{}, store.ErrNotFound
	}
	id, err := uuid.Parse(rec.BookingRef)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("slot %s %s: malformed booking reference %q: %w", rec.Date, rec.Slot, rec.BookingRef, err)
	}
	return s.bookings.Get(ctx, id)
}

// SweepPastAppointments completes every active booking whose appointment
// time has passed and releases its slots. Failures on one booking do not
// stop the others.
func (s *Service) SweepPastAppointments(ctx context.Context) (int, error) {
	now := s.wallNow()
	rows, err := s.bookings.List(ctx, store.BookingFilter{
		Statuses:      []domain.BookingStatus{domain.StatusPendingPayment, domain.StatusConfirmed},
		Before:        &now,
		IncludeHidden: true,
	})
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error
	for _, old := range rows {
		updated := old
		updated.Status = domain.StatusCompleted
		if _, err := s.transition(ctx, old, updated); err != nil {
			errs = append(errs, fmt.Errorf("complete booking %s: %w", old.ID, err))
			continue
		}
		completed++
	}
	if completed > 0 {
		s.logger.Info("past appointments completed", slog.Int("count", completed))
	}
	return completed, errors.Join(errs...)
}
