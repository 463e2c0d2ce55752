package capacity

import "github.com/neumerance/kerberos-swarm/internal/models"

type Thresholds struct {
	// MaxCPUPercent is the highest aggregate agent CPU estimate still considered safe.
	MaxCPUPercent float64 `json:"max_cpu_percent"`
	// RetentionDays of recordings the free disk must hold.
	RetentionDays int `json:"retention_days"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxCPUPercent: 80,
		RetentionDays: 7,
	}
}

type CapacityReport struct {
	Requirement      ResourceRequirement `json:"requirement"`
	Host             models.HostSnapshot `json:"host"`
	BusyPorts        []BusyPort          `json:"busy_ports"`
	Thresholds       Thresholds          `json:"thresholds"`
	MemorySufficient bool                `json:"memory_sufficient"`
	CPUSufficient    bool                `json:"cpu_sufficient"`
	DiskSufficient   bool                `json:"disk_sufficient"`
	OverallReady     bool                `json:"overall_ready"`
}

// RetentionStorageGB is the disk the recordings need for the retention window.
func (r CapacityReport) RetentionStorageGB() float64 {
	return r.Requirement.EstimatedDailyStorageGB * float64(r.Thresholds.RetentionDays)
}

// MemoryShortfallGB is zero when memory is sufficient.
func (r CapacityReport) MemoryShortfallGB() float64 {
	if r.MemorySufficient {
		return 0
	}
	return r.Requirement.TotalMemoryGB - r.Host.AvailableMemoryGB()
}

// Assess is pure: it only compares the estimate with the snapshot.
func Assess(req ResourceRequirement, host models.HostSnapshot, busy []BusyPort, t Thresholds) CapacityReport {
	if busy == nil {
		busy = []BusyPort{}
	}

	report := CapacityReport{
		Requirement: req,
		Host:        host,
		BusyPorts:   busy,
		Thresholds:  t,
	}

	report.MemorySufficient = host.AvailableMemoryGB() >= req.TotalMemoryGB
	report.CPUSufficient = req.TotalCPUPercent <= t.MaxCPUPercent
	report.DiskSufficient = host.FreeDiskGB() >= req.EstimatedDailyStorageGB*float64(t.RetentionDays)
	report.OverallReady = report.MemorySufficient &&
		report.CPUSufficient &&
		report.DiskSufficient &&
		len(busy) == 0

	return report
}
