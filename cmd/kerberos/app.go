package main

import (
	"context"
	"os"

	"github.com/neumerance/kerberos-swarm/internal/cli"
	"github.com/neumerance/kerberos-swarm/internal/compose"
	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/history"
	"github.com/neumerance/kerberos-swarm/internal/logging"
	"github.com/rs/zerolog"
)

// app bundles what a single command invocation needs.
type app struct {
	cfg     *config.Config
	out     *cli.Formatter
	logger  zerolog.Logger
	history *history.DB
}

func newApp() *app {
	a := &app{out: cli.NewFormatter(os.Stdout, outputJSON, noColor)}
	a.setLogger("info")
	return a
}

func (a *app) setLogger(fallback string) {
	level := logLevel
	if level == "" {
		level = fallback
	}
	if noColor {
		a.logger = logging.NewNoColor(os.Stderr, level)
		return
	}
	a.logger = logging.New(os.Stderr, level)
}

// loadConfig reads the deployment document and applies its log level unless
// --log-level was given.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.setLogger(cfg.Log.Level)
	a.logger.Debug().Str("config", cfg.Path).Msg("configuration loaded")
	return cfg, nil
}

// openHistory opens the operation log. Failures only disable recording.
func (a *app) openHistory() *history.DB {
	if historyPath == "" || a.history != nil {
		return a.history
	}
	db, err := history.NewDB(historyPath)
	if err != nil {
		a.logger.Warn().Err(err).Str("path", historyPath).Msg("operation history disabled")
		return nil
	}
	a.history = db
	return db
}

// runner detects the compose CLI and records every call it makes.
func (a *app) runner(ctx context.Context) (*compose.Runner, error) {
	command, err := compose.DetectCommand(ctx)
	if err != nil {
		return nil, err
	}

	var recorder compose.Recorder
	if db := a.openHistory(); db != nil {
		recorder = db
	}
	return compose.NewRunner(command, composeFile, projectName, recorder, a.logger), nil
}

func (a *app) Close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close operation history")
	}
}
