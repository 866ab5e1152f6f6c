package bookings

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/service/availability"
	"github.com/Viper-Industries/earnedshine/internal/service/pricing"
	"github.com/Viper-Industries/earnedshine/internal/store"
	"github.com/Viper-Industries/earnedshine/internal/store/memory"
)

type fixture struct {
	svc      *Service
	engine   *availability.Engine
	slots    *memory.SlotRepo
	bookings *memory.BookingRepo
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		slots:    memory.NewSlotRepo(),
		bookings: memory.NewBookingRepo(),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	catalog := pricing.DefaultCatalog()
	f.engine = availability.NewEngine(f.slots, catalog, nil)
	f.svc = NewService(f.bookings, f.engine, catalog, Options{
		Now: func() time.Time { return f.now },
	})
	return f
}

func at(hour int) time.Time {
	return time.Date(2024, 6, 1, hour, 0, 0, 0, time.UTC)
}

func validInput(when time.Time, service string) CreateInput {
	return CreateInput{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Phone:           "555-0100",
		Address:         "1 Analytical Way",
		VehicleType:     "sedan",
		ServiceType:     service,
		AppointmentTime: when,
		PaymentMethod:   "ONLINE",
	}
}

func (f *fixture) heldSlots(t *testing.T, b domain.Booking) []string {
	t.Helper()
	recs, err := f.slots.ListByBookingRef(context.Background(), b.Ref())
	if err != nil {
		t.Fatalf("ListByBookingRef error: %v", err)
	}
	out := []string{}
	for _, r := range recs {
		out = append(out, r.Slot)
	}
	return out
}

func assertHeld(t *testing.T, f *fixture, b domain.Booking, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if got := f.heldSlots(t, b); !reflect.DeepEqual(got, want) {
		t.Fatalf("held slots = %v, want %v", got, want)
	}
}

func TestServiceScenario_FullInteriorCancelAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if b.Status != domain.StatusPendingPayment {
		t.Fatalf("status = %s, want %s", b.Status, domain.StatusPendingPayment)
	}
	assertHeld(t, f, b, "10:00", "11:00")

	canceled, err := f.svc.Cancel(ctx, b.ID, CanceledByAdmin)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if canceled.Status != domain.StatusCanceledByAdmin {
		t.Fatalf("status = %s", canceled.Status)
	}
	assertHeld(t, f, b)

	confirmed := string(domain.StatusConfirmed)
	restored, err := f.svc.Update(ctx, b.ID, UpdateInput{Status: &confirmed})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if restored.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s", restored.Status)
	}
	assertHeld(t, f, b, "10:00", "11:00")

	if _, err := f.svc.Cancel(ctx, b.ID, CanceledByAdmin); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if err := f.engine.BlockSlot(ctx, at(0), "11:00", "maintenance"); err != nil {
		t.Fatalf("BlockSlot error: %v", err)
	}
	_, err = f.svc.Update(ctx, b.ID, UpdateInput{Status: &confirmed})
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *domain.CapacityError", err)
	}
	stored, _ := f.bookings.Get(ctx, b.ID)
	if stored.Status != domain.StatusCanceledByAdmin {
		t.Fatalf("rejected update changed status to %s", stored.Status)
	}
	assertHeld(t, f, b)
}

func TestServiceCreate_SecondBookingOnSameRangeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, validInput(at(10), "full_interior")); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	_, err := f.svc.Create(ctx, validInput(at(11), "basic_shine"))
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *domain.CapacityError", err)
	}

	rows, _ := f.bookings.List(ctx, store.BookingFilter{IncludeHidden: true})
	if len(rows) != 1 {
		t.Fatalf("len(bookings) = %d, want 1", len(rows))
	}
}

func TestServiceCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(in *CreateInput)
	}{
		{name: "missing name", mutate: func(in *CreateInput) { in.Name = "  " }},
		{name: "missing email", mutate: func(in *CreateInput) { in.Email = "" }},
		{name: "missing phone", mutate: func(in *CreateInput) { in.Phone = "" }},
		{name: "unknown service", mutate: func(in *CreateInput) { in.ServiceType = "mystery_wash" }},
		{name: "unknown addon", mutate: func(in *CreateInput) { in.Addons = []string{"gold_plating"} }},
		{name: "bad payment method", mutate: func(in *CreateInput) { in.PaymentMethod = "CASH" }},
		{name: "off the hour", mutate: func(in *CreateInput) { in.AppointmentTime = at(10).Add(30 * time.Minute) }},
		{name: "outside working hours", mutate: func(in *CreateInput) { in.AppointmentTime = at(20) }},
		{name: "in the past", mutate: func(in *CreateInput) { in.AppointmentTime = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validInput(at(10), "basic_shine")
			c.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T (%v), want *domain.ValidationError", err, err)
			}
		})
	}
}

func TestServiceCreate_NormalizesAddons(t *testing.T) {
	f := newFixture(t)

	in := validInput(at(9), "basic_shine")
	in.Addons = []string{"stain_extraction", " pet_hair_removal ", "stain_extraction", ""}
	b, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	want := []string{"stain_extraction", "pet_hair_removal"}
	if !reflect.DeepEqual(b.Addons, want) {
		t.Fatalf("addons = %v, want %v", b.Addons, want)
	}
}

func TestServiceCreate_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput(at(14), "full_interior")
	in.IdempotencyKey = "req-1"

	first, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	want := uuid.NewSHA1(uuid.NameSpaceOID, []byte("earnedshine:create_booking:req-1"))
	if first.ID != want {
		t.Fatalf("id = %s, want %s", first.ID, want)
	}

	second, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay id = %s, want %s", second.ID, first.ID)
	}
	assertHeld(t, f, first, "14:00", "15:00")

	in.Name = "Someone Else"
	if _, err := f.svc.Create(ctx, in); !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("err = %v, want %v", err, store.ErrIdempotencyConflict)
	}
}

func TestServiceCreate_ReplayKeepsConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput(at(10), "full_interior")
	in.IdempotencyKey = "k1"
	b, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, b.ID); err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if err := f.engine.BlockSlot(ctx, at(0), "11:00", "maintenance"); err != nil {
		t.Fatalf("BlockSlot error: %v", err)
	}

	replay, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if replay.ID != b.ID || replay.Status != domain.StatusConfirmed {
		t.Fatalf("replay = %s %s, want %s %s", replay.ID, replay.Status, b.ID, domain.StatusConfirmed)
	}
	if _, err := f.bookings.Get(ctx, b.ID); err != nil {
		t.Fatalf("stored booking lookup error: %v", err)
	}
	assertHeld(t, f, b, "10:00")
}

func TestServiceCreate_ReplayIgnoresLaterCalendarChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput(at(14), "basic_shine")
	in.IdempotencyKey = "retry-me"
	b, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := f.engine.BlockDay(ctx, at(0), "closed"); err != nil {
		t.Fatalf("BlockDay error: %v", err)
	}
	if got, err := f.svc.Create(ctx, in); err != nil || got.ID != b.ID {
		t.Fatalf("replay after block = %s, %v; want %s", got.ID, err, b.ID)
	}

	f.now = time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	if got, err := f.svc.Create(ctx, in); err != nil || got.ID != b.ID {
		t.Fatalf("replay after appointment = %s, %v; want %s", got.ID, err, b.ID)
	}

	fresh := validInput(at(15), "basic_shine")
	fresh.IdempotencyKey = "new-key"
	var vErr *domain.ValidationError
	if _, err := f.svc.Create(ctx, fresh); !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *domain.ValidationError", err)
	}
}

// lookupMiss hides stored bookings from Get, as when a concurrent request
// with the same key inserts between the lookup and the insert.
type lookupMiss struct {
	*memory.BookingRepo
}

func (l lookupMiss) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return domain.Booking{}, store.ErrNotFound
}

func TestServiceCreate_ConcurrentReplayNeverDiscards(t *testing.T) {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("earnedshine:create_booking:dup"))
	seed := func(t *testing.T) *memory.BookingRepo {
		t.Helper()
		repo := memory.NewBookingRepo()
		_, _, err := repo.Create(context.Background(), domain.Booking{
			ID:              id,
			Name:            "Ada Lovelace",
			Email:           "ada@example.com",
			Phone:           "555-0100",
			Address:         "1 Analytical Way",
			VehicleType:     "sedan",
			ServiceType:     "basic_shine",
			AppointmentTime: at(10),
			PaymentMethod:   domain.PaymentOnline,
			Status:          domain.StatusConfirmed,
		})
		if err != nil {
			t.Fatalf("seed error: %v", err)
		}
		return repo
	}
	in := validInput(at(10), "basic_shine")
	in.IdempotencyKey = "dup"
	opts := Options{Now: func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }}

	t.Run("slots already held", func(t *testing.T) {
		repo := seed(t)
		slots := &fakeSlots{
			serviceSlotsFn: func(startSlot, serviceType string) ([]string, error) {
				return []string{startSlot}, nil
			},
			availableFn: func(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
				return true, nil
			},
			recordFn: func(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error) {
				return domain.AvailabilityRecord{Slot: slot, Status: domain.AvailabilityBooked, BookingRef: id.String()}, nil
			},
		}
		svc := NewService(lookupMiss{repo}, slots, pricing.DefaultCatalog(), opts)

		got, err := svc.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if got.ID != id || got.Status != domain.StatusConfirmed {
			t.Fatalf("got %s %s, want stored booking", got.ID, got.Status)
		}
	})

	t.Run("reservation lost", func(t *testing.T) {
		repo := seed(t)
		slots := &fakeSlots{
			serviceSlotsFn: func(startSlot, serviceType string) ([]string, error) {
				return []string{startSlot}, nil
			},
			availableFn: func(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
				return true, nil
			},
			recordFn: func(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error) {
				return domain.AvailabilityRecord{}, store.ErrNotFound
			},
			reserveFn: func(ctx context.Context, date time.Time, slots []string, ref string) error {
				return &domain.CapacityError{Date: domain.DateKey(date), Slot: slots[0]}
			},
		}
		svc := NewService(lookupMiss{repo}, slots, pricing.DefaultCatalog(), opts)

		_, err := svc.Create(context.Background(), in)
		var capErr *domain.CapacityError
		if !errors.As(err, &capErr) {
			t.Fatalf("error type = %T, want *domain.CapacityError", err)
		}
		stored, err := repo.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("stored booking was removed: %v", err)
		}
		if stored.Status != domain.StatusConfirmed {
			t.Fatalf("status = %s, want %s", stored.Status, domain.StatusConfirmed)
		}
	})
}

func TestServiceUpdate_RelocatesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	overlap := at(11)
	if _, err := f.svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &overlap}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	assertHeld(t, f, b, "11:00", "12:00")
	ok, _ := f.engine.IsSlotAvailable(ctx, at(0), "10:00", "")
	if !ok {
		t.Fatalf("10:00 still reserved after relocation")
	}

	nextDay := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	signature := "earned_signature"
	moved, err := f.svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &nextDay, ServiceType: &signature})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if moved.ServiceType != signature || !moved.AppointmentTime.Equal(nextDay) {
		t.Fatalf("moved = %+v", moved)
	}
	recs, _ := f.slots.ListByBookingRef(ctx, b.Ref())
	if len(recs) != 3 {
		t.Fatalf("held = %+v, want 3 slots on 2024-06-02", recs)
	}
	for _, r := range recs {
		if r.Date != "2024-06-02" {
			t.Fatalf("held slot on %s", r.Date)
		}
	}
}

func TestServiceUpdate_RelocationConflictKeepsOldSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.Create(ctx, validInput(at(14), "basic_shine")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	target := at(13)
	_, err = f.svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &target})
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *domain.CapacityError", err)
	}
	assertHeld(t, f, b, "10:00", "11:00")

	stored, _ := f.bookings.Get(ctx, b.ID)
	if !stored.AppointmentTime.Equal(at(10)) {
		t.Fatalf("rejected update persisted time %v", stored.AppointmentTime)
	}
}

func TestServiceUpdate_CancelWhileMovingReleasesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	target := at(15)
	status := string(domain.StatusCanceledByAdmin)
	if _, err := f.svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &target, Status: &status}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	assertHeld(t, f, b)
}

func TestServiceUpdate_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	bad := "LOST"
	_, err = f.svc.Update(ctx, b.ID, UpdateInput{Status: &bad})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *domain.ValidationError", err)
	}

	if _, err := f.svc.Update(ctx, uuid.New(), UpdateInput{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

type failingUpdates struct {
	*memory.BookingRepo
	err error
	// only limits the failure to one booking when set.
	only uuid.UUID
}

func (f *failingUpdates) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if f.only != uuid.Nil && b.ID != f.only {
		return f.BookingRepo.Update(ctx, b)
	}
	return domain.Booking{}, f.err
}

func TestServiceUpdate_PersistFailureRestoresSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	boom := errors.New("boom")
	f.svc.bookings = &failingUpdates{BookingRepo: f.bookings, err: boom}

	target := at(15)
	if _, err := f.svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &target}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	assertHeld(t, f, b, "10:00", "11:00")

	if _, err := f.svc.Cancel(ctx, b.ID, CanceledByUser); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	assertHeld(t, f, b, "10:00", "11:00")
}

type fakeSlots struct {
	serviceSlotsFn func(startSlot, serviceType string) ([]string, error)
	availableFn    func(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error)
	reserveFn      func(ctx context.Context, date time.Time, slots []string, ref string) error
	releaseFn      func(ctx context.Context, date time.Time, slots []string, ref string) error
	recordFn       func(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error)
}

func (f *fakeSlots) ServiceSlots(startSlot, serviceType string) ([]string, error) {
	if f.serviceSlotsFn == nil {
		panic("ServiceSlots not configured")
	}
	return f.serviceSlotsFn(startSlot, serviceType)
}

func (f *fakeSlots) AreServiceSlotsAvailable(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
	if f.availableFn == nil {
		panic("AreServiceSlotsAvailable not configured")
	}
	return f.availableFn(ctx, date, startSlot, serviceType, excludeRef)
}

func (f *fakeSlots) ReserveSlots(ctx context.Context, date time.Time, slots []string, ref string) error {
	if f.reserveFn == nil {
		panic("ReserveSlots not configured")
	}
	return f.reserveFn(ctx, date, slots, ref)
}

func (f *fakeSlots) ReleaseSlots(ctx context.Context, date time.Time, slots []string, ref string) error {
	if f.releaseFn == nil {
		panic("ReleaseSlots not configured")
	}
	return f.releaseFn(ctx, date, slots, ref)
}

func (f *fakeSlots) Record(ctx context.Context, date time.Time, slot string) (domain.AvailabilityRecord, error) {
	if f.recordFn == nil {
		panic("Record not configured")
	}
	return f.recordFn(ctx, date, slot)
}

func TestServiceCreate_LostRaceDiscardsBooking(t *testing.T) {
	repo := memory.NewBookingRepo()
	slots := &fakeSlots{
		serviceSlotsFn: func(startSlot, serviceType string) ([]string, error) {
			return []string{startSlot}, nil
		},
		availableFn: func(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
			return true, nil
		},
		reserveFn: func(ctx context.Context, date time.Time, slots []string, ref string) error {
			return &domain.CapacityError{Date: domain.DateKey(date), Slot: slots[0]}
		},
	}
	svc := NewService(repo, slots, pricing.DefaultCatalog(), Options{
		Now: func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})

	_, err := svc.Create(context.Background(), validInput(at(10), "basic_shine"))
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error type = %T, want *domain.CapacityError", err)
	}
	if capErr.ServiceType != "basic_shine" {
		t.Fatalf("service type = %q", capErr.ServiceType)
	}

	rows, _ := repo.List(context.Background(), store.BookingFilter{IncludeHidden: true})
	if len(rows) != 0 {
		t.Fatalf("len(bookings) = %d, want 0", len(rows))
	}
}

func TestServiceSweepCompletesPastAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past, err := f.svc.Create(ctx, validInput(at(9), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	future, err := f.svc.Create(ctx, validInput(at(15), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	canceled, err := f.svc.Create(ctx, validInput(at(12), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, canceled.ID, CanceledByUser); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	f.now = at(13)
	rows, err := f.svc.List(ctx, false)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	byID := map[uuid.UUID]domain.Booking{}
	for _, b := range rows {
		byID[b.ID] = b
	}
	if byID[past.ID].Status != domain.StatusCompleted {
		t.Fatalf("past status = %s, want %s", byID[past.ID].Status, domain.StatusCompleted)
	}
	if byID[future.ID].Status != domain.StatusPendingPayment {
		t.Fatalf("future status = %s", byID[future.ID].Status)
	}
	if byID[canceled.ID].Status != domain.StatusCanceledByUser {
		t.Fatalf("canceled status = %s", byID[canceled.ID].Status)
	}
	assertHeld(t, f, past)
	assertHeld(t, f, future, "15:00")
}

func TestServiceSweepUsesBusinessTimeZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := time.FixedZone("EDT", -4*3600)
	f.svc.loc = loc

	b, err := f.svc.Create(ctx, validInput(at(10), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// 13:00 UTC is 09:00 in the business zone, before the appointment.
	f.now = time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	if n, err := f.svc.SweepPastAppointments(ctx); err != nil || n != 0 {
		t.Fatalf("sweep = %d, %v; want 0", n, err)
	}

	f.now = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	if n, err := f.svc.SweepPastAppointments(ctx); err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v; want 1", n, err)
	}
	assertHeld(t, f, b)
}

func TestServiceStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput(at(8), "full_interior")
	in.Addons = []string{"pet_hair_removal"}
	confirmed, err := f.svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, confirmed.ID); err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if _, err := f.svc.Create(ctx, validInput(at(12), "earned_signature")); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	canceled, err := f.svc.Create(ctx, validInput(at(16), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, canceled.ID); err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, canceled.ID, CanceledByUser); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if _, err := f.svc.SetHidden(ctx, canceled.ID, true); err != nil {
		t.Fatalf("SetHidden error: %v", err)
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total = %d, want 3", stats.Total)
	}
	if stats.ByState[domain.StatusConfirmed] != 1 || stats.ByState[domain.StatusPendingPayment] != 1 || stats.ByState[domain.StatusCanceledByUser] != 1 {
		t.Fatalf("by state = %v", stats.ByState)
	}
	if want := decimal.RequireFromString("110"); !stats.Revenue.Equal(want) {
		t.Fatalf("revenue = %s, want %s", stats.Revenue, want)
	}
}

func TestServiceConfirmPaymentOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "basic_shine"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, b.ID, CanceledByUser); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	got, err := f.svc.ConfirmPayment(ctx, b.ID)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if got.Status != domain.StatusCanceledByUser {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusCanceledByUser)
	}
	assertHeld(t, f, b)
}

func TestServiceHideFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	canceled, _ := f.svc.Create(ctx, validInput(at(8), "basic_shine"))
	completed, _ := f.svc.Create(ctx, validInput(at(9), "basic_shine"))
	active, _ := f.svc.Create(ctx, validInput(at(16), "basic_shine"))
	if _, err := f.svc.Cancel(ctx, canceled.ID, CanceledByAdmin); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	completedStatus := string(domain.StatusCompleted)
	if _, err := f.svc.Update(ctx, completed.ID, UpdateInput{Status: &completedStatus}); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	n, err := f.svc.HideFinished(ctx, false)
	if err != nil || n != 1 {
		t.Fatalf("HideFinished = %d, %v; want 1", n, err)
	}
	n, err = f.svc.HideFinished(ctx, true)
	if err != nil || n != 1 {
		t.Fatalf("HideFinished(includeCompleted) = %d, %v; want 1", n, err)
	}

	visible, err := f.svc.List(ctx, false)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != active.ID {
		t.Fatalf("visible = %+v", visible)
	}
	all, _ := f.svc.List(ctx, true)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
}

func TestServiceBookingAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, validInput(at(10), "full_interior"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := f.svc.BookingAt(ctx, at(0), "11:00")
	if err != nil {
		t.Fatalf("BookingAt error: %v", err)
	}
	if got.ID != b.ID {
		t.Fatalf("id = %s, want %s", got.ID, b.ID)
	}

	if _, err := f.svc.BookingAt(ctx, at(0), "12:00"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	if err := f.engine.BlockSlot(ctx, at(0), "13:00", "x"); err != nil {
		t.Fatalf("BlockSlot error: %v", err)
	}
	if _, err := f.svc.BookingAt(ctx, at(0), "13:00"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestServiceUpdate_ReleaseFailureRestoresSlots(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepo()
	b, _, err := repo.Create(ctx, domain.Booking{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Phone:           "555-0100",
		ServiceType:     "basic_shine",
		AppointmentTime: at(10),
		PaymentMethod:   domain.PaymentOnline,
		Status:          domain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	boom := errors.New("boom")
	var reserved, released []string
	slots := &fakeSlots{
		serviceSlotsFn: func(startSlot, serviceType string) ([]string, error) {
			return []string{startSlot}, nil
		},
		availableFn: func(ctx context.Context, date time.Time, startSlot, serviceType, excludeRef string) (bool, error) {
			return true, nil
		},
		reserveFn: func(ctx context.Context, date time.Time, slots []string, ref string) error {
			reserved = append(reserved, slots...)
			return nil
		},
		releaseFn: func(ctx context.Context, date time.Time, slots []string, ref string) error {
			released = append(released, slots...)
			if len(released) == 1 {
				return boom
			}
			return nil
		},
	}
	svc := NewService(repo, slots, pricing.DefaultCatalog(), Options{
		Now: func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})

	target := at(15)
	if _, err := svc.Update(ctx, b.ID, UpdateInput{AppointmentTime: &target}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if want := []string{"15:00", "10:00"}; !reflect.DeepEqual(reserved, want) {
		t.Fatalf("reserved = %v, want %v", reserved, want)
	}
	if want := []string{"10:00", "15:00"}; !reflect.DeepEqual(released, want) {
		t.Fatalf("released = %v, want %v", released, want)
	}
	stored, _ := repo.Get(ctx, b.ID)
	if !stored.AppointmentTime.Equal(at(10)) {
		t.Fatalf("appointment moved to %v", stored.AppointmentTime)
	}
}

func TestServiceSweep_ContinuesPastFailingBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []domain.Booking
	for _, hour := range []int{9, 12, 15} {
		b, err := f.svc.Create(ctx, validInput(at(hour), "basic_shine"))
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		created = append(created, b)
	}
	stuck := created[1]

	boom := errors.New("boom")
	f.svc.bookings = &failingUpdates{BookingRepo: f.bookings, err: boom, only: stuck.ID}
	f.now = time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	completed, err := f.svc.SweepPastAppointments(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}

	for _, b := range created {
		stored, err := f.bookings.Get(ctx, b.ID)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if b.ID == stuck.ID {
			if stored.Status != domain.StatusPendingPayment {
				t.Fatalf("failing booking status = %s", stored.Status)
			}
			assertHeld(t, f, b, "12:00")
			continue
		}
		if stored.Status != domain.StatusCompleted {
			t.Fatalf("booking %s status = %s, want %s", b.ID, stored.Status, domain.StatusCompleted)
		}
		assertHeld(t, f, b)
	}
}
