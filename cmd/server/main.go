package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/kitchen-ledger/internal/adapter/handler"
	"github.com/rl1809/kitchen-ledger/internal/config"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
	"github.com/rl1809/kitchen-ledger/internal/logger"
	"github.com/rl1809/kitchen-ledger/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "kitchen-ledger"}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "kitchen-ledger",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogOutputFormat(),
	})

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg)
	if err != nil {
		return err
	}
	defer res.Close()
	log.Info(log.WithField(ctx, "backend", cfg.Ledger.Backend), "ledger backend ready")

	metrics := observability.NewMetrics()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithObserver(metrics),
	}
	if res.idempotency != nil {
		opts = append(opts, service.WithIdempotency(res.idempotency))
	}
	ledger := service.NewLedger(res.backend, cfg.Ledger.Timeout)
	inventory := service.NewInventoryService(ledger, opts...)

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventory))

	lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
	if err != nil {
		return err
	}

	// HTTP server
	router := handler.NewHTTPHandler(inventory).Routes(metrics.Middleware)
	router.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(log.WithField(ctx, "addr", cfg.App.GRPCAddr), "gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info(log.WithField(ctx, "addr", cfg.App.HTTPAddr), "HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "HTTP shutdown failed", err)
		}
		log.Info(context.Background(), "HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info(context.Background(), "gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info(context.Background(), "connections closed")
	return nil
}
