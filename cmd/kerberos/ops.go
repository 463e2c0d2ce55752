package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/neumerance/kerberos-swarm/internal/cli"
	"github.com/neumerance/kerberos-swarm/internal/discovery"
	"github.com/neumerance/kerberos-swarm/internal/history"
	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyRemote bool
	consulAddr    string
	viewerURL     string
)

var errHistoryDisabled = errors.New("operation history is disabled (--history-db is empty)")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded docker compose operations",
	Long: `history lists operations from the local history database. With --remote it
asks a running viewer instead, resolved from --server, --consul or the default
http://localhost:3001.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		if historyRemote {
			client, err := viewerClient(a)
			if err != nil {
				return err
			}
			ops, err := client.Operations(history.ClampLimit(historyLimit))
			if err != nil {
				return err
			}
			return cli.Operations(a.out, ops)
		}

		if historyPath == "" {
			return errHistoryDisabled
		}
		db, err := history.NewDB(historyPath)
		if err != nil {
			return err
		}
		a.history = db

		ops, err := db.List(cmd.Context(), history.ClampLimit(historyLimit))
		if err != nil {
			return err
		}
		return cli.Operations(a.out, ops)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register every camera agent with Consul",
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

		registry, err := discovery.NewRegistry(consulAddr)
		if err != nil {
			return err
		}
		if err := registry.RegisterCameras(cameras, cfg.Viewer.AgentHost); err != nil {
			return err
		}

		if a.out.JSONOutput() {
			return a.out.JSON(map[string]interface{}{"registered": cameras})
		}
		a.out.Success("Registered %d cameras with Consul", len(cameras))
		return nil
	},
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister",
	Short: "Remove every camera agent from Consul",
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

		registry, err := discovery.NewRegistry(consulAddr)
		if err != nil {
			return err
		}
		if err := registry.DeregisterCameras(cameras); err != nil {
			return err
		}

		if a.out.JSONOutput() {
			return a.out.JSON(map[string]interface{}{"deregistered": cameras})
		}
		a.out.Success("Deregistered %d cameras from Consul", len(cameras))
		return nil
	},
}

// resolveViewer prefers an explicit URL and otherwise asks Consul when one
// is configured.
func resolveViewer(a *app) string {
	if viewerURL != "" {
		return viewerURL
	}
	if consulAddr != "" {
		registry, err := discovery.NewRegistry(consulAddr)
		if err == nil {
			url, err := registry.DiscoverViewer()
			if err == nil {
				return url
			}
			a.logger.Warn().Err(err).Msg("viewer discovery failed")
		}
	}
	return "http://localhost:3001"
}

// viewerClient resolves the viewer and checks its health endpoint first.
func viewerClient(a *app) (*cli.Client, error) {
	server := resolveViewer(a)
	a.logger.Debug().Str("viewer", server).Msg("querying viewer")

	client := cli.NewClient(server)
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("viewer %s is not healthy: %w", server, err)
	}
	return client, nil
}

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Show live agent status from a running viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		defer a.Close()

		client, err := viewerClient(a)
		if err != nil {
			return err
		}

		statuses, err := client.Cameras()
		if err != nil {
			return err
		}
		return cli.CameraStatuses(a.out, statuses)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", history.DefaultLimit, "Number of operations to show")
	historyCmd.Flags().BoolVar(&historyRemote, "remote", false, "Read operations from a running viewer")
	historyCmd.Flags().StringVar(&viewerURL, "server", os.Getenv("VIEWER_URL"), "Viewer URL used with --remote")
	historyCmd.Flags().StringVar(&consulAddr, "consul", os.Getenv("CONSUL_HTTP_ADDR"), "Consul address used to discover the viewer")

	registerCmd.Flags().StringVar(&consulAddr, "consul", os.Getenv("CONSUL_HTTP_ADDR"), "Consul address")
	deregisterCmd.Flags().StringVar(&consulAddr, "consul", os.Getenv("CONSUL_HTTP_ADDR"), "Consul address")
	camerasCmd.Flags().StringVar(&consulAddr, "consul", os.Getenv("CONSUL_HTTP_ADDR"), "Consul address used to discover the viewer")
	camerasCmd.Flags().StringVar(&viewerURL, "server", os.Getenv("VIEWER_URL"), "Viewer URL")
}
