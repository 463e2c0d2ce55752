package capacity

import (
	"testing"

	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/stretchr/testify/assert"
)

const gb = 1024 * 1024 * 1024

func roomyHost() models.HostSnapshot {
	return models.HostSnapshot{
		CPUCores:             8,
		TotalMemoryBytes:     16 * gb,
		AvailableMemoryBytes: 8 * gb,
		TotalDiskBytes:       500 * gb,
		FreeDiskBytes:        200 * gb,
	}
}

func smallRequirement() ResourceRequirement {
	return ResourceRequirement{
		CameraCount:             2,
		MemoryPerAgentMB:        384,
		CPUPerAgentPercent:      8,
		TotalMemoryGB:           0.75,
		TotalCPUPercent:         16,
		EstimatedDailyStorageGB: 1.875,
	}
}

func TestAssess_Ready(t *testing.T) {
	r := Assess(smallRequirement(), roomyHost(), nil, DefaultThresholds())

	assert.True(t, r.MemorySufficient)
	assert.True(t, r.CPUSufficient)
	assert.True(t, r.DiskSufficient)
	assert.True(t, r.OverallReady)
	assert.NotNil(t, r.BusyPorts)
	assert.InDelta(t, 13.125, r.RetentionStorageGB(), 1e-9)
	assert.Equal(t, 0.0, r.MemoryShortfallGB())
}

func TestAssess_EachCheckFails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ResourceRequirement, *models.HostSnapshot, *[]BusyPort)
		check  func(CapacityReport) bool
	}{
		{
			name: "memory",
			mutate: func(_ *ResourceRequirement, h *models.HostSnapshot, _ *[]BusyPort) {
				h.AvailableMemoryBytes = gb / 2
			},
			check: func(r CapacityReport) bool { return r.MemorySufficient },
		},
		{
			name: "cpu",
			mutate: func(req *ResourceRequirement, _ *models.HostSnapshot, _ *[]BusyPort) {
				req.TotalCPUPercent = 80.5
			},
			check: func(r CapacityReport) bool { return r.CPUSufficient },
		},
		{
			name: "disk",
			mutate: func(_ *ResourceRequirement, h *models.HostSnapshot, _ *[]BusyPort) {
				h.FreeDiskBytes = 13 * gb
			},
			check: func(r CapacityReport) bool { return r.DiskSufficient },
		},
		{
			name: "ports",
			mutate: func(_ *ResourceRequirement, _ *models.HostSnapshot, busy *[]BusyPort) {
				*busy = []BusyPort{{Port: 8080, Role: RoleWeb}}
			},
			check: func(r CapacityReport) bool { return len(r.BusyPorts) == 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := smallRequirement()
			host := roomyHost()
			var busy []BusyPort
			tt.mutate(&req, &host, &busy)

			r := Assess(req, host, busy, DefaultThresholds())

			assert.False(t, tt.check(r))
			assert.False(t, r.OverallReady)
		})
	}
}

func TestAssess_Boundaries(t *testing.T) {
	req := smallRequirement()
	req.TotalCPUPercent = 80
	req.TotalMemoryGB = 8
	req.EstimatedDailyStorageGB = 2
	host := roomyHost()
	host.FreeDiskBytes = 14 * gb

	r := Assess(req, host, nil, DefaultThresholds())

	assert.True(t, r.CPUSufficient)
	assert.True(t, r.MemorySufficient)
	assert.True(t, r.DiskSufficient)
	assert.True(t, r.OverallReady)
}

func TestAssess_MemoryShortfall(t *testing.T) {
	req := smallRequirement()
	req.TotalMemoryGB = 10

	r := Assess(req, roomyHost(), nil, DefaultThresholds())
	assert.InDelta(t, 2.0, r.MemoryShortfallGB(), 1e-9)
}
