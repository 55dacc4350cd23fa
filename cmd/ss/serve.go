package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/secondscreen/internal/config"
	"github.com/alfredjeanlab/secondscreen/internal/events"
	"github.com/alfredjeanlab/secondscreen/internal/logging"
	"github.com/alfredjeanlab/secondscreen/internal/notify"
	"github.com/alfredjeanlab/secondscreen/internal/server"
	"github.com/alfredjeanlab/secondscreen/internal/snapshot"
	"github.com/alfredjeanlab/secondscreen/internal/store"
	"github.com/alfredjeanlab/secondscreen/internal/tracker"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the dashboard server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so no client is created.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

// serve runs the server until ctx is cancelled, then shuts down in order:
// sweeper, observers, HTTP, final save, publisher.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.File != "" {
		logger.Info().Str("file", cfg.File).Msg("config loaded")
	}

	// Restore the last snapshot. A bad snapshot costs state, not startup.
	file := snapshot.NewFile(cfg.SnapshotPath())
	sessions, err := file.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load snapshot, starting empty")
		sessions = nil
	}
	logger.Info().Int("sessions", len(sessions)).Str("path", file.Path).Msg("snapshot loaded")

	tr := tracker.New(store.NewFromSessions(sessions), tracker.Options{
		TaskTTL:    cfg.TaskTTL,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})

	// Snapshot mirror destinations.
	var dests []snapshot.Destination
	if cfg.MirrorS3Bucket != "" {
		s3Dest, err := snapshot.NewS3Destination(ctx,
			cfg.MirrorS3Bucket,
			cfg.MirrorS3Key,
			cfg.MirrorS3Region,
			cfg.MirrorS3Endpoint,
		)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create S3 mirror destination")
		} else {
			dests = append(dests, s3Dest)
			logger.Info().Str("destination", s3Dest.String()).Msg("snapshot mirror enabled")
		}
	}

	if cfg.MirrorGitRepo != "" {
		gitDest := snapshot.NewGitDestination(cfg.MirrorGitRepo, cfg.MirrorGitFile, cfg.MirrorGitBranch, cfg.MirrorGitPush)
		dests = append(dests, gitDest)
		logger.Info().Str("destination", gitDest.String()).Msg("snapshot mirror enabled")
	}

	saver := snapshot.NewSaver(file, tr.List, snapshot.SaverOptions{
		Debounce:     cfg.SaveDebounce,
		Destinations: dests,
		Logger:       logger,
	})

	// Purge what expired while the server was down. Nobody observes yet,
	// so the result is written straight away.
	if tr.Sweep() {
		if err := saver.SaveNow(); err != nil {
			logger.Error().Err(err).Msg("failed to save after startup sweep")
		}
	}

	// Create event publisher.
	var publisher events.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		publisher = pub
		logger.Info().Str("nats_url", cfg.NATSURL).Msg("events enabled")
	} else {
		publisher = &events.NoopPublisher{}
		logger.Info().Msg("events disabled (SS_NATS_URL not set)")
	}

	hub := notify.NewHub(logger)
	srv := server.New(server.Options{
		Tracker:   tr,
		Hub:       hub,
		Publisher: publisher,
		Saver:     saver,
		Logger:    logger,
	})

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		publisher.Close()
		return fmt.Errorf("listening on %s: %w", cfg.HTTPAddr, err)
	}

	var (
		grpcServer *grpc.Server
		grpcHealth *health.Server
	)
	if cfg.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			lis.Close()
			publisher.Close()
			return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer, grpcHealth = server.NewGRPCServer(logger)
		go func() {
			logger.Info().Str("addr", grpcLis.Addr().String()).Msg("gRPC health service listening")
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error().Err(err).Msg("gRPC server error")
			}
		}()
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdErrorLogger(logger),
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	tr.StartSweeper(cfg.SweepInterval)

	logger.Info().
		Str("http_addr", lis.Addr().String()).
		Str("data_dir", cfg.DataDir).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("secondscreen server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received signal, shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			runErr = err
		}
	}

	// Graceful shutdown.
	tr.Stop()
	logger.Info().Msg("sweeper stopped")

	hub.Close()

	if grpcServer != nil {
		grpcHealth.Shutdown()
		stopGRPC(grpcServer, shutdownTimeout)
		logger.Info().Msg("gRPC server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("HTTP server stopped")

	if err := saver.Stop(); err != nil {
		logger.Error().Err(err).Msg("final snapshot save failed")
	}

	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing publisher")
	}

	logger.Info().Msg("shutdown complete")
	return runErr
}

// stopGRPC stops srv gracefully, forcing it after timeout so open health
// Watch streams cannot hold shutdown.
func stopGRPC(srv *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		srv.Stop()
		<-stopped
	}
}
