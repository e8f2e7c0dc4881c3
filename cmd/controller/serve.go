package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afroash/storm-antenna/internal/publish"
	"github.com/afroash/storm-antenna/internal/server"
	"github.com/afroash/storm-antenna/internal/storage"
)

// ServeCmd runs the HTTP controller until SIGINT/SIGTERM
type ServeCmd struct {
	SkipSelftest bool `help:"Skip the startup output test even if configured." name:"skip-selftest"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig()
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version).
		Str("device", cfg.Device.ID).
		Str("variant", cfg.Hardware.Variant).
		Int("port", cfg.Server.Port).
		Msg("Starting storm antenna controller")
	logger.Debug().Msg(cfg.String())

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := a.controller
	memory := server.NewMemoryStore(cfg.Storage.BufferSize)
	ctrl.AddSink(memory)
	ctrl.AddCommandSink(memory)

	var history server.HistoricalStore

	// Setup database
	if cfg.Storage.Database.Enabled {
		dbCfg := cfg.Storage.Database
		sqliteStore, err := openHistory(dbCfg, logger)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		history = sqliteStore

		dbWriter := storage.NewDBWriter(sqliteStore, storage.DBWriterConfig{
			BatchSize:   dbCfg.BatchSize,
			FlushPeriod: dbCfg.FlushPeriod,
			ChannelSize: dbCfg.ChannelSize,
		}, logger)
		defer func() {
			dbWriter.Stop()
			logger.Info().Msg("DBWriter stopped")
		}()
		ctrl.AddSink(dbWriter)
		ctrl.AddCommandSink(dbWriter)

		retentionCleaner, err := storage.NewRetentionCleaner(sqliteStore, storage.RetentionCleanerConfig{
			RetentionDays: dbCfg.RetentionDays,
			Schedule:      dbCfg.CleanupSchedule,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			retentionCleaner.Stop()
			logger.Info().Msg("RetentionCleaner stopped")
		}()
	}

	// Optional broker
	if cfg.MQTT.Enabled {
		publisher, err := publish.NewMQTTPublisher(cfg.MQTT, a.device, logger)
		if err != nil {
			// The controller keeps working without a broker.
			logger.Error().Err(err).Msg("MQTT unavailable, status publishing disabled")
		} else {
			defer publisher.Close()
			ctrl.AddSink(publisher)
			ctrl.AddCommandSink(publisher)
		}
	}

	stream := server.NewStatusStream(a.device, ctrl.Status, logger, cfg.Server.AllowedOrigins...)
	ctrl.AddSink(stream)

	if cfg.SelfTest.RunOnStart && !c.SkipSelftest {
		logger.Info().Msg("Running startup output test")
		if err := ctrl.TestOutputs(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Startup output test failed")
		}
	}

	// Initial cycle so outputs reflect the sensors before the first request
	ctrl.Cycle(context.Background())

	api := server.NewAPIHandler(ctrl, memory, history, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(api, stream, logger.With().Str("component", "http").Logger(), logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", httpServer.Addr).Msg("Failed to listen")
		if ledErr := ctrl.Indicate(false); ledErr != nil {
			logger.Warn().Err(ledErr).Msg("Status LED failed")
		}
		return err
	}
	if err := ctrl.Indicate(true); err != nil {
		logger.Warn().Err(err).Msg("Status LED failed")
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Server listening")
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down controller...")
	case err = <-serveErr:
		logger.Error().Err(err).Msg("Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("Server shutdown error")
	}
	stream.Close()

	logger.Info().Msg("Controller stopped")
	return err
}
