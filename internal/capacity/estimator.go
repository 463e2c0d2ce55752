// Package capacity estimates whether the local host can run the configured
// camera agents. The estimate is advisory and never changes system state.
package capacity

import (
	"context"

	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/rs/zerolog"
)

type Estimator struct {
	Model      CostModel
	Sampler    HostSampler
	Prober     PortProber
	Thresholds Thresholds
	Logger     zerolog.Logger
}

func NewEstimator(cfg config.CapacityConfig, logger zerolog.Logger) *Estimator {
	return &Estimator{
		Model:      DefaultCostModel().WithStorageHeuristics(cfg),
		Sampler:    NewSystemSampler(),
		Prober:     ListenProber{},
		Thresholds: DefaultThresholds(),
		Logger:     logger,
	}
}

// Estimate counts cameras, applies the cost model, samples the host, probes
// ports and assembles the report. Any error aborts without a partial report.
func (e *Estimator) Estimate(ctx context.Context, cfg *config.Config) (*CapacityReport, error) {
	count, err := CameraCount(cfg.Cameras.IPRange.Start, cfg.Cameras.IPRange.End)
	if err != nil {
		return nil, err
	}
	if err := CheckPortRanges(cfg.Docker.WebPortStart, cfg.Docker.RTMPPortStart, count); err != nil {
		return nil, err
	}

	req := e.Model.Requirements(cfg.Cameras, count)
	e.Logger.Debug().
		Int("cameras", count).
		Int("memory_per_agent_mb", req.MemoryPerAgentMB).
		Float64("cpu_per_agent_percent", req.CPUPerAgentPercent).
		Msg("computed requirements")

	host, err := e.Sampler.Sample(ctx)
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().
		Float64("available_memory_gb", host.AvailableMemoryGB()).
		Float64("cpu_percent", host.CPUPercent).
		Float64("free_disk_gb", host.FreeDiskGB()).
		Msg("sampled host")

	busy := BusyPorts(e.Prober, cfg.Docker.WebPortStart, cfg.Docker.RTMPPortStart, count)
	if len(busy) > 0 {
		e.Logger.Debug().Int("busy", len(busy)).Msg("ports in use")
	}

	report := Assess(req, *host, busy, e.Thresholds)
	return &report, nil
}
