package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afroash/storm-antenna/internal/client"
	"github.com/afroash/storm-antenna/internal/config"
	"github.com/afroash/storm-antenna/internal/logging"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/afroash/storm-antenna/internal/server"
)

// SelftestCmd runs the output test sequence once
type SelftestCmd struct {
	Individual bool `help:"Blink each LED in turn instead of the full output sequence."`
}

func (c *SelftestCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Individual {
		err = a.controller.TestIndividual(ctx)
	} else {
		err = a.controller.TestOutputs(ctx)
	}
	if err != nil {
		return err
	}

	// Leave the outputs in their automatic state
	a.controller.Cycle(ctx)
	logger.Info().Msg("Self-test completed")
	return nil
}

// SnapshotCmd runs one decision cycle and prints the status
type SnapshotCmd struct {
	Compact bool `help:"Print compact JSON."`
}

func (c *SnapshotCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rec := a.controller.Cycle(context.Background())
	status := server.NewStatusResponse(rec, a.device, a.controller.Thresholds())

	enc := json.NewEncoder(os.Stdout)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(status)
}

// WatchCmd follows a controller's status stream and logs each update
type WatchCmd struct {
	URL          string        `arg:"" optional:"" default:"ws://localhost:8080/ws/status" help:"Status stream URL."`
	Reconnect    time.Duration `default:"1s" help:"Initial reconnect delay."`
	MaxReconnect time.Duration `default:"30s" help:"Maximum reconnect delay."`
	LogLevel     string        `default:"info" help:"Log level."`
}

func (c *WatchCmd) Run() error {
	logger := logging.New(config.LoggingConfig{Level: c.LogLevel, Format: "text"})

	conn := client.NewConnection(client.ConnectionConfig{
		URL:                  c.URL,
		ReconnectInterval:    c.Reconnect,
		MaxReconnectInterval: c.MaxReconnect,
	}, func(msg *models.StatusMessage) {
		if msg.Record == nil {
			return
		}
		rec := msg.Record
		logger.Info().
			Str("kind", string(rec.Kind)).
			Bool("presence", rec.Snapshot.Presence).
			Bool("storm", rec.Snapshot.Storm).
			Bool("antenna", rec.AntennaState()).
			Str("weather", rec.Weather.StatusText).
			Str("reason", rec.Plan.Reason).
			Int64("uptime", msg.Uptime).
			Msg("Status")
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := conn.Run(ctx)
	conn.Close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
