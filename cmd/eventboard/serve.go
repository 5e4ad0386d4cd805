package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/eventboard/internal/backup"
	"github.com/alfredjeanlab/eventboard/internal/config"
	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/eventstore"
	"github.com/alfredjeanlab/eventboard/internal/server"
	"github.com/alfredjeanlab/eventboard/internal/service"
	"github.com/alfredjeanlab/eventboard/internal/store"
	"github.com/alfredjeanlab/eventboard/internal/store/memory"
	"github.com/alfredjeanlab/eventboard/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the eventboard HTTP and gRPC server",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx := context.Background()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		bridge, err := openBridge(ctx, cfg)
		if err != nil {
			st.Close()
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		bus := events.NewBus(events.BusConfig{
			Buffer:    cfg.SubscriberBuffer,
			MaxMissed: cfg.SubscriberMaxMissed,
			Bridge:    bridge,
			Metrics:   events.NewMetrics(reg),
		})
		svc := service.New(eventstore.New(st), bus)
		eventServer := server.NewEventServer(svc, bus, server.WithRegistry(reg))
		grpcServer := server.NewGRPCServer(eventServer)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			bus.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           eventServer.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var scheduler *backup.Scheduler
		if cfg.Backup.Interval.Duration > 0 {
			if dests := backupDestinations(ctx, cfg, logger); len(dests) > 0 {
				scheduler = backup.NewScheduler(st, dests, cfg.Backup.Interval.Duration, logger)
				scheduler.Start()
				logger.Info("backup scheduler started", "interval", cfg.Backup.Interval.Duration)
			}
		}

		logger.Info("eventboard server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("backup scheduler stopped")
		}

		// Closing the bus ends every SSE, WebSocket and Watch stream, so the
		// servers below are not held open by long-lived subscribers.
		if err := bus.Close(); err != nil {
			logger.Error("error closing bridge", "err", err)
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("EVENTBOARD_LOG_LEVEL: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openStore connects to Postgres when a database URL is configured and
// falls back to the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("EVENTBOARD_DATABASE_URL not set, events are kept in memory only")
		return memory.New(), nil
	}
	st, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to postgres")
	return st, nil
}

// openBridge returns the broker publisher the bus mirrors onto, or a
// NoopPublisher when no broker is configured.
func openBridge(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	switch {
	case cfg.NATSURL != "":
		pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.BridgePrefix)
		if err != nil {
			return nil, err
		}
		slog.Info("NATS bridge enabled", "nats_url", cfg.NATSURL, "prefix", cfg.BridgePrefix)
		return pub, nil
	case cfg.RedisURL != "":
		pub, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.BridgePrefix)
		if err != nil {
			return nil, err
		}
		slog.Info("Redis bridge enabled", "redis_url", cfg.RedisURL, "prefix", cfg.BridgePrefix)
		return pub, nil
	}
	slog.Info("notification bridge disabled")
	return &events.NoopPublisher{}, nil
}

// backupDestinations builds every configured backup destination. A
// destination that cannot be created is logged and skipped.
func backupDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []backup.Destination {
	var dests []backup.Destination
	b := cfg.Backup
	if b.S3Bucket != "" {
		d, err := backup.NewS3Destination(ctx, backup.S3Options{
			Bucket:   b.S3Bucket,
			Key:      b.S3Key,
			Region:   b.S3Region,
			Endpoint: b.S3Endpoint,
		})
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, d)
			logger.Info("backup destination enabled", "dest", d.Name())
		}
	}
	if b.File != "" {
		d := backup.NewFileDestination(b.File)
		dests = append(dests, d)
		logger.Info("backup destination enabled", "dest", d.Name())
	}
	return dests
}
