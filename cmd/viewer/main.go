package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/discovery"
	"github.com/neumerance/kerberos-swarm/internal/history"
	"github.com/neumerance/kerberos-swarm/internal/logging"
	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/neumerance/kerberos-swarm/internal/viewer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

const (
	defaultConfigPath      = "config.yml"
	defaultCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kerberos-viewer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(getEnv("CONFIG_PATH", defaultConfigPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stderr, getEnv("LOG_LEVEL", cfg.Log.Level)).
		With().Str("component", "viewer").Logger()

	cameras, err := manifest.Cameras(cfg)
	if err != nil {
		return fmt.Errorf("derive cameras: %w", err)
	}

	var lister viewer.OperationLister
	db := openHistory(logger)
	if db != nil {
		defer db.Close()
		lister = db
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := viewer.NewMetrics(registry)

	checker := viewer.NewStatusChecker(cameras, cfg.Viewer.AgentHost, cfg.Viewer.StatusTTL, cfg.Viewer.ProbeTimeout, metrics, logger)
	checker.MaxConcurrent = cfg.Viewer.MaxConcurrentProbes
	reporter := viewer.NewHealthReporter()
	api := viewer.NewAPI(cfg, checker, lister, registry, logger)

	lis, err := net.Listen("tcp", cfg.Viewer.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	reporter.Register(grpcServer)

	httpServer := &http.Server{
		Addr:              cfg.Viewer.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := viewer.NewMonitor(checker, reporter, cfg.Viewer.RefreshInterval, logger)
	go monitor.Run(ctx)

	if db != nil {
		go startMaintenanceTasks(ctx, db, cfg.Viewer.HistoryRetention, logger)
	}

	consulAddr := getEnv("CONSUL_HTTP_ADDR", "")
	if consulAddr != "" {
		if err := registerConsul(consulAddr, cfg.Viewer.Addr, cfg.Viewer.GRPCAddr); err != nil {
			logger.Warn().Err(err).Msg("failed to register with consul")
		} else {
			defer deregisterConsul(consulAddr, logger)
		}
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
		errChan <- grpcServer.Serve(lis)
	}()

	go func() {
		logger.Info().Str("addr", cfg.Viewer.Addr).Int("cameras", len(cameras)).Msg("HTTP API server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		reporter.Shutdown()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// openHistory shares the CLI's operation log. A missing or broken store only
// disables /api/v1/operations.
func openHistory(logger zerolog.Logger) *history.DB {
	path := os.Getenv("HISTORY_DB")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".kerberos-swarm", "history.db")
	}
	if path == "off" {
		return nil
	}

	db, err := history.NewDB(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("operation history disabled")
		return nil
	}
	return db
}

func startMaintenanceTasks(ctx context.Context, db *history.DB, retention time.Duration, logger zerolog.Logger) {
	cleanupTicker := time.NewTicker(defaultCleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			removed, err := db.Cleanup(ctx, retention)
			if err != nil {
				logger.Error().Err(err).Msg("error cleaning up old operations")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("cleaned up old operations")
			}
		}
	}
}

func registerConsul(consulAddr, httpAddr, grpcAddr string) error {
	registry, err := discovery.NewRegistry(consulAddr)
	if err != nil {
		return err
	}

	nodeIP := getEnv("NOMAD_IP_http", "")
	if nodeIP == "" {
		nodeIP = getLocalIP()
	}

	return registry.RegisterViewer(nodeIP, portOf(httpAddr), portOf(grpcAddr))
}

func deregisterConsul(consulAddr string, logger zerolog.Logger) {
	registry, err := discovery.NewRegistry(consulAddr)
	if err != nil {
		logger.Error().Err(err).Msg("error creating consul client for deregistration")
		return
	}
	if err := registry.DeregisterViewer(); err != nil {
		logger.Error().Err(err).Msg("error deregistering viewer")
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// portOf extracts the port from a listen address such as ":3001".
func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return p
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "127.0.0.1"
}
