package main

import (
	"fmt"

	"github.com/afroash/storm-antenna/internal/config"
	"github.com/afroash/storm-antenna/internal/logging"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

const version = "v0.3.0"

// CLI is the command line grammar
type CLI struct {
	Config  string           `help:"Path to the controller config file." default:"configs/controller.yaml" type:"path" short:"c"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the HTTP controller (default)."`
	Selftest SelftestCmd `cmd:"" help:"Run the output test sequence once and exit."`
	Snapshot SnapshotCmd `cmd:"" help:"Run one decision cycle, print the status JSON and exit."`
	Watch    WatchCmd    `cmd:"" help:"Follow a running controller's status stream."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("storm-antenna"),
		kong.Description("Storm-aware antenna and indicator controller."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// loadConfig loads and validates the config file and builds the logger
func (cli *CLI) loadConfig() (*config.AppConfig, zerolog.Logger, error) {
	cfg, err := config.LoadAppConfig(cli.Config)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config %s: %w", cli.Config, err)
	}
	return cfg, logging.New(cfg.Logging), nil
}
