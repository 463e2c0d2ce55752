package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	composeFile string
	projectName string
	historyPath string
	logLevel    string
	outputJSON  bool
	noColor     bool
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !silent(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

var rootCmd = &cobra.Command{
	Use:   "kerberos",
	Short: "Manage a fleet of Kerberos.io camera agents",
	Long: `kerberos generates a docker compose manifest with one Kerberos agent per
camera in a configured IP range, drives its lifecycle through docker compose,
and estimates whether the host can carry the deployment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kerberos-swarm", "history.db")
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "config.yml", "Configuration file")
	flags.StringVar(&composeFile, "compose-file", "docker-compose.yml", "Generated compose manifest")
	flags.StringVar(&projectName, "project", manifest.DefaultProject, "Compose project name")
	flags.StringVar(&historyPath, "history-db", defaultHistoryPath(), "Operation history database (empty disables)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to log.level from the config")
	flags.BoolVarP(&outputJSON, "json", "j", false, "Output as JSON")
	flags.BoolVar(&noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(redeployCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(syscheckCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(deregisterCmd)
	rootCmd.AddCommand(camerasCmd)
}
