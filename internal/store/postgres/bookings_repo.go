package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/Viper-Industries/earnedshine/internal/domain"
	"github.com/Viper-Industries/earnedshine/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, bool, error) {
	m := b
	if m.Addons == nil {
		m.Addons = []string{}
	}

	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, getErr := r.Get(ctx, m.ID)
			if getErr != nil {
				return domain.Booking{}, false, err
			}
			if !store.SameRequest(existing, m) {
				return domain.Booking{}, false, store.ErrIdempotencyConflict
			}
			return existing, false, nil
		}
		return domain.Booking{}, false, err
	}
	return m, true, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	if m.Addons == nil {
		m.Addons = []string{}
	}

	res, err := r.db.NewUpdate().
		Model(&m).
		ExcludeColumn("id", "created_at").
		WherePK().
		Returning("created_at").
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *BookingRepo) List(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().Model(&rows)
	if !f.IncludeHidden {
		q = q.Where("b.hidden = FALSE")
	}
	if len(f.Statuses) > 0 {
		q = q.Where("b.status IN (?)", bun.In(f.Statuses))
	}
	if f.Before != nil {
		q = q.Where("b.appointment_time < ?", *f.Before)
	}
	err := q.OrderExpr("b.appointment_time ASC, b.id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
