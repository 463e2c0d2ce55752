package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/neumerance/kerberos-swarm/internal/cli"
	"github.com/neumerance/kerberos-swarm/internal/dockerd"
	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/spf13/cobra"
)

var (
	noDetach      bool
	showEngine    bool
	logService    string
	followLogs    bool
	removeVolumes bool
	skipConfirm   bool
)

// generateManifest writes the compose manifest for the configured range and
// creates the per-camera host directories.
func generateManifest(ctx context.Context, a *app) ([]models.Camera, error) {
	if a.cfg == nil {
		if _, err := a.loadConfig(); err != nil {
			return nil, err
		}
	}

	cameras, err := manifest.Cameras(a.cfg)
	if err != nil {
		return nil, err
	}

	project, err := manifest.Build(a.cfg, projectName)
	if err != nil {
		return nil, err
	}

	data, err := manifest.Marshal(project)
	if err != nil {
		return nil, err
	}
	if _, err := manifest.Validate(ctx, data, projectName, len(cameras)); err != nil {
		return nil, err
	}

	if err := manifest.PrepareDirectories(a.cfg, cameras); err != nil {
		return nil, err
	}
	if err := manifest.Write(composeFile, project); err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("file", composeFile).
		Int("services", len(cameras)).
		Msg("manifest written")
	return cameras, nil
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the docker compose manifest from the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		cameras, err := generateManifest(cmd.Context(), a)
		if err != nil {
			return err
		}
		return cli.Generated(a.out, composeFile, cameras)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start all camera agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		if _, err := a.loadConfig(); err != nil {
			return err
		}

		if _, err := os.Stat(composeFile); errors.Is(err, os.ErrNotExist) {
			a.logger.Info().Str("file", composeFile).Msg("manifest not found, generating")
			if _, err := generateManifest(ctx, a); err != nil {
				return err
			}
		}

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		if noDetach {
			_, err := runner.UpForeground(ctx, os.Stdout, os.Stderr)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		op, err := runner.Up(ctx)
		if err != nil {
			return err
		}

		cameras, err := manifest.Cameras(a.cfg)
		if err != nil {
			return err
		}
		return cli.Started(a.out, op, cameras)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all camera agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		runner, err := a.runner(cmd.Context())
		if err != nil {
			return err
		}

		op, err := runner.Down(cmd.Context(), false)
		if err != nil {
			return err
		}
		return cli.Operation(a.out, op, "All cameras stopped")
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop and start all camera agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		if _, err := runner.Down(ctx, false); err != nil {
			return err
		}
		op, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		return cli.Operation(a.out, op, "All cameras restarted")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the camera agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		if showEngine {
			return engineStatus(ctx, a)
		}

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		op, err := runner.Ps(ctx)
		if err != nil {
			return err
		}
		if a.out.JSONOutput() {
			return a.out.JSON(op)
		}
		a.out.Header("Camera Status")
		a.out.Println(op.Stdout)
		return nil
	},
}

// engineStatus asks the container engine directly instead of the compose CLI.
func engineStatus(ctx context.Context, a *app) error {
	client, err := dockerd.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	engine, err := client.ServerVersion(ctx)
	if err != nil {
		return err
	}

	agents, err := client.ListAgents(ctx, projectName)
	if err != nil {
		return err
	}
	return cli.Agents(a.out, engine, agents)
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show camera agent logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		_, err = runner.Logs(ctx, os.Stdout, os.Stderr, logService, followLogs)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Pull the latest agent image and recreate the agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		a.logger.Info().Msg("pulling latest images")
		if _, err := runner.Pull(ctx); err != nil {
			return err
		}

		a.logger.Info().Msg("recreating agents")
		op, err := runner.Recreate(ctx)
		if err != nil {
			return err
		}
		return cli.Operation(a.out, op, "Cameras updated")
	},
}

// confirm asks a yes/no question on the terminal.
var confirm = func(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func cleanupPrompt(withVolumes bool) string {
	if withVolumes {
		return "Remove all agent containers and their volumes?"
	}
	return "Remove all agent containers?"
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove the agent containers and, optionally, their volumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		if !skipConfirm {
			ok, err := confirm(cleanupPrompt(removeVolumes))
			if err != nil {
				return fmt.Errorf("confirm cleanup: %w", err)
			}
			if !ok {
				a.out.Info("Cleanup cancelled")
				return nil
			}
		}

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		op, err := runner.Down(ctx, removeVolumes)
		if err != nil {
			return err
		}
		return cli.Operation(a.out, op, "Cleanup completed")
	},
}

var redeployCmd = &cobra.Command{
	Use:   "redeploy",
	Short: "Stop the agents, regenerate the manifest and start again",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp()
		defer a.Close()

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		if _, err := os.Stat(composeFile); err == nil {
			if _, err := runner.Down(ctx, false); err != nil {
				return err
			}
		}

		cameras, err := generateManifest(ctx, a)
		if err != nil {
			return err
		}

		op, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		return cli.Started(a.out, op, cameras)
	},
}

func init() {
	startCmd.Flags().BoolVar(&noDetach, "no-detach", false, "Run in the foreground and attach to agent output")
	statusCmd.Flags().BoolVar(&showEngine, "engine", false, "Query the container engine instead of docker compose ps")
	logsCmd.Flags().StringVarP(&logService, "service", "s", "", "Only show logs of this camera service")
	logsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false, "Follow log output")
	cleanupCmd.Flags().BoolVar(&removeVolumes, "volumes", false, "Also remove volumes")
	cleanupCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Do not ask for confirmation")
}
