package capacity

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	defaultCPUWindow = time.Second
	defaultDiskPath  = "/"
)

type HostSampler interface {
	Sample(ctx context.Context) (*models.HostSnapshot, error)
}

// SystemSampler reads the local host through gopsutil. Every call samples
// afresh; nothing is cached or retried.
type SystemSampler struct {
	CPUWindow time.Duration
	DiskPath  string
}

func NewSystemSampler() *SystemSampler {
	return &SystemSampler{
		CPUWindow: defaultCPUWindow,
		DiskPath:  defaultDiskPath,
	}
}

func (s *SystemSampler) Sample(ctx context.Context) (*models.HostSnapshot, error) {
	snap, err := s.sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHostMetricsUnavailable, err)
	}
	return snap, nil
}

func (s *SystemSampler) sample(ctx context.Context) (*models.HostSnapshot, error) {
	window := s.CPUWindow
	if window <= 0 {
		window = defaultCPUWindow
	}
	path := s.DiskPath
	if path == "" {
		path = defaultDiskPath
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("get hostname: %w", err)
	}

	cpuCores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("get cpu cores: %w", err)
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return nil, fmt.Errorf("get cpu percent: %w", err)
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get memory info: %w", err)
	}

	diskInfo, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get disk info: %w", err)
	}

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	return &models.HostSnapshot{
		Hostname:             hostname,
		CPUCores:             int32(cpuCores),
		CPUPercent:           cpuPct,
		TotalMemoryBytes:     memInfo.Total,
		AvailableMemoryBytes: memInfo.Available,
		MemoryUsedPercent:    memInfo.UsedPercent,
		TotalDiskBytes:       diskInfo.Total,
		FreeDiskBytes:        diskInfo.Free,
		DiskUsedPercent:      diskInfo.UsedPercent,
		SampledAt:            time.Now(),
	}, nil
}
