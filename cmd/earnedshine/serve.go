package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Viper-Industries/earnedshine/internal/config"
	"github.com/Viper-Industries/earnedshine/internal/sweeper"
	grpcTransport "github.com/Viper-Industries/earnedshine/internal/transport/grpc"
	"github.com/Viper-Industries/earnedshine/internal/transport/httpapi"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the public HTTP API, the admin gRPC service and the sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations on startup")
	return cmd
}

func serve(parent context.Context, cfg config.Config, migrate bool) error {
	log := newLogger(cfg.LogLevel)
	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer a.Close()

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcTransport.RegisterAdminServiceServer(grpcServer, grpcTransport.NewAdminServer(a.bookings, a.engine, log))
	healthServer.SetServingStatus(grpcTransport.AdminServiceName, healthpb.HealthCheckResponse_SERVING)

	var sched *sweeper.Scheduler
	if cfg.SweepSchedule != "" {
		sched, err = sweeper.New(cfg.SweepSchedule, cfg.Location, a.bookings, cfg.SweepTimeout, log)
		if err != nil {
			return err
		}
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	if parseLogLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(
		httpapi.NewHandler(a.bookings, a.engine, a.catalog, log),
		httpapi.RouterOptions{
			CORSOrigins:        cfg.CORSOrigins,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			Logger:             log,
		},
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if sched != nil {
		sched.Start()
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("http_addr", cfg.HTTPAddr))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			runErr = err
		}
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}
	shutdown(log, grpcServer, cfg.ShutdownTimeout)
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	return runErr
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}
