package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/neumerance/kerberos-swarm/internal/capacity"
	"github.com/neumerance/kerberos-swarm/internal/cli"
	"github.com/neumerance/kerberos-swarm/internal/dockerd"
	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/spf13/cobra"
)

// prerequisites gathers the check report. Only the manifest check is optional
// since generate creates it.
func prerequisites(ctx context.Context, a *app) []cli.Check {
	checks := make([]cli.Check, 0, 4)

	if cfg, err := a.loadConfig(); err != nil {
		checks = append(checks, cli.Check{Name: "Configuration", Detail: err.Error()})
	} else if cameras, err := manifest.Cameras(cfg); err != nil {
		checks = append(checks, cli.Check{Name: "Configuration", Detail: err.Error()})
	} else {
		checks = append(checks, cli.Check{
			Name:   "Configuration",
			OK:     true,
			Detail: fmt.Sprintf("%s, %d cameras", cfg.Path, len(cameras)),
		})
	}

	if client, err := dockerd.NewClient(); err != nil {
		checks = append(checks, cli.Check{Name: "Docker engine", Detail: err.Error()})
	} else {
		checks = append(checks, engineCheck(ctx, client))
		client.Close()
	}

	if runner, err := a.runner(ctx); err != nil {
		checks = append(checks, cli.Check{Name: "Docker Compose", Detail: err.Error()})
	} else if version, err := runner.Version(ctx); err != nil {
		checks = append(checks, cli.Check{Name: "Docker Compose", Detail: err.Error()})
	} else {
		checks = append(checks, cli.Check{Name: "Docker Compose", OK: true, Detail: version})
	}

	manifestCheck := cli.Check{Name: "Compose manifest", Optional: true}
	if _, err := os.Stat(composeFile); errors.Is(err, os.ErrNotExist) {
		manifestCheck.Detail = composeFile + " not generated yet"
	} else if project, err := manifest.ReadFile(ctx, composeFile, projectName); err != nil {
		manifestCheck.Detail = err.Error()
	} else {
		manifestCheck.OK = true
		manifestCheck.Detail = fmt.Sprintf("%s, %d services", composeFile, len(project.Services))
	}
	checks = append(checks, manifestCheck)

	return checks
}

// engineProber is the part of the engine client the prerequisite check uses.
type engineProber interface {
	Ping(ctx context.Context) (string, error)
	ServerVersion(ctx context.Context) (*dockerd.EngineInfo, error)
}

// engineCheck pings the daemon before asking for its version so an
// unreachable socket is reported without a second round trip.
func engineCheck(ctx context.Context, engine engineProber) cli.Check {
	check := cli.Check{Name: "Docker engine"}

	if _, err := engine.Ping(ctx); err != nil {
		check.Detail = err.Error()
		return check
	}

	info, err := engine.ServerVersion(ctx)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	check.OK = true
	check.Detail = fmt.Sprintf("%s (API %s)", info.Version, info.APIVersion)
	return check
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that docker, docker compose and the configuration are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		passed, err := cli.Checks(a.out, prerequisites(cmd.Context(), a))
		if err != nil {
			return err
		}
		if !passed {
			return &exitError{code: ExitFailure}
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configuration and the camera port map",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		cfg, err := a.loadConfig()
		if err != nil {
			return err
		}

		cameras, err := manifest.Cameras(cfg)
		if err != nil {
			return err
		}
		return cli.Info(a.out, cfg, composeFile, projectName, cameras)
	},
}

var syscheckCmd = &cobra.Command{
	Use:   "syscheck",
	Short: "Estimate whether this host can run every configured camera",
	Long: `syscheck derives the camera count from the configured IP range, estimates
the memory, CPU and storage the agents need, samples the host, and checks that
every web and RTMP port is free. It exits 0 when the host is ready and 1 when
it is not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		cfg, err := a.loadConfig()
		if err != nil {
			return err
		}

		report, err := capacity.NewEstimator(cfg.Capacity, a.logger).Estimate(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if err := cli.CapacityReport(a.out, cfg, report); err != nil {
			return err
		}
		if !report.OverallReady {
			return &exitError{code: ExitFailure}
		}
		return nil
	},
}
