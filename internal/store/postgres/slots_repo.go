package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type SlotRepo struct {
	db *bun.DB
}

func NewSlotRepo(db *bun.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

func (r *SlotRepo) Get(ctx context.Context, date, slot string) (domain.AvailabilityRecord, error) {
	var rec domain.AvailabilityRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("a.date = ?", date).
		Where("a.slot = ?", slot).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AvailabilityRecord{}, store.ErrNotFound
		}
		return domain.AvailabilityRecord{}, err
	}
	return rec, nil
}

func (r *SlotRepo) Put(ctx context.Context, rec domain.AvailabilityRecord) error {
	_, err := r.db.NewInsert().
		Model(&rec).
		On("CONFLICT (date, slot) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("reason = EXCLUDED.reason").
		Set("booking_ref = EXCLUDED.booking_ref").
		Exec(ctx)
	return err
}

func (r *SlotRepo) Delete(ctx context.Context, date, slot string) error {
	_, err := r.db.NewDelete().
		Model((*domain.AvailabilityRecord)(nil)).
		Where("date = ?", date).
		Where("slot = ?", slot).
		Exec(ctx)
	return err
}

func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]domain.AvailabilityRecord, error) {
	var rows []domain.AvailabilityRecord
	err := r.db.NewSelect().
		Model(&rows).
		Where("a.date = ?", date).
		OrderExpr("a.slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SlotRepo) ListByBookingRef(ctx context.Context, ref string) ([]domain.AvailabilityRecord, error) {
	var rows []domain.AvailabilityRecord
	err := r.db.NewSelect().
		Model(&rows).
		Where("a.booking_ref = ?", ref).
		OrderExpr("a.date ASC, a.slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Claim serializes writers on the same date with an advisory lock so the day
// sentinel check and the conditional upsert observe one consistent state.
func (r *SlotRepo) Claim(ctx context.Context, rec domain.AvailabilityRecord) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendarDay(ctx, tx, rec.Date); err != nil {
			return err
		}
		return claimSlot(ctx, tx, rec)
	})
}

func lockCalendarDay(ctx context.Context, tx bun.Tx, date string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "availability:"+date).Exec(ctx)
	return err
}

func claimSlot(ctx context.Context, db bun.IDB, rec domain.AvailabilityRecord) error {
	blocked, err := db.NewSelect().
		Model((*domain.AvailabilityRecord)(nil)).
		Where("a.date = ?", rec.Date).
		Where("a.slot = ?", domain.AllDaySlot).
		Where("a.status = ?", domain.AvailabilityBlocked).
		Exists(ctx)
	if err != nil {
		return err
	}
	if blocked {
		return store.ErrConflict
	}

	m := rec
	m.Status = domain.AvailabilityBooked
	res, err := db.NewInsert().
		Model(&m).
		On("CONFLICT (date, slot) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("reason = EXCLUDED.reason").
		Set("booking_ref = EXCLUDED.booking_ref").
		Where("a.status = ? OR a.booking_ref = EXCLUDED.booking_ref", domain.AvailabilityAvailable).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}
