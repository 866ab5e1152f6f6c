package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"github.com/Viper-Industries/earnedshine/internal/config"
	"github.com/Viper-Industries/earnedshine/internal/service/availability"
	"github.com/Viper-Industries/earnedshine/internal/service/bookings"
	"github.com/Viper-Industries/earnedshine/internal/service/pricing"
	"github.com/Viper-Industries/earnedshine/internal/store"
	"github.com/Viper-Industries/earnedshine/internal/store/memory"
	"github.com/Viper-Industries/earnedshine/internal/store/postgres"
	"github.com/Viper-Industries/earnedshine/internal/store/redisstore"
)

// app holds the stores and services shared by the commands.
type app struct {
	log      *slog.Logger
	db       *bun.DB
	redis    *redis.Client
	catalog  *pricing.Catalog
	engine   *availability.Engine
	bookings *bookings.Service
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*bun.DB, error) {
	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, err
	}
	return db, nil
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) (*app, error) {
	a := &app{log: log, catalog: pricing.DefaultCatalog()}

	if cfg.NeedsDatabase() {
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("database migrations applied")
		}
	}

	var slots store.SlotRepository
	switch cfg.SlotStore {
	case config.StorePostgres:
		slots = postgres.NewSlotRepo(a.db)
	case config.StoreRedis:
		client, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.redis = client
		slots = redisstore.NewSlotRepo(client, cfg.RedisPrefix)
	default:
		log.Warn("availability records are kept in memory and lost on restart")
		slots = memory.NewSlotRepo()
	}

	var bookingRepo store.BookingRepository
	switch cfg.BookingStore {
	case config.StorePostgres:
		bookingRepo = postgres.NewBookingRepo(a.db)
	default:
		log.Warn("bookings are kept in memory and lost on restart")
		bookingRepo = memory.NewBookingRepo()
	}

	a.engine = availability.NewEngine(slots, a.catalog, log)
	a.bookings = bookings.NewService(bookingRepo, a.engine, a.catalog, bookings.Options{
		Location: cfg.Location,
		Logger:   log,
	})

	log.Info("stores ready",
		slog.String("slots", cfg.SlotStore),
		slog.String("bookings", cfg.BookingStore),
		slog.String("timezone", cfg.Location.String()),
	)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", slog.Any("err", err))
		}
	}
	if err := postgres.Close(a.db); err != nil {
		a.log.Warn("database close failed", slog.Any("err", err))
	}
}
