package capacity

import (
	"time"

	"github.com/neumerance/kerberos-swarm/internal/config"
)

// CostModel is a rough linear heuristic for what one agent costs. The
// numbers are not a measured profile; change them only with new calibration
// data.
type CostModel struct {
	BaseMemoryMB        int
	BaseCPUPercent      float64
	RecordingMemoryMB   int
	RecordingCPUPercent float64
	StreamMemoryMB      int
	StreamCPUPercent    float64
	MotionMemoryMB      int
	MotionCPUPercent    float64

	// TriggerInterval is the assumed time between motion-triggered recordings.
	TriggerInterval time.Duration
	// EncodingMBPerMinute is the assumed recorded bitrate.
	EncodingMBPerMinute float64
}

func DefaultCostModel() CostModel {
	return CostModel{
		BaseMemoryMB:        256,
		BaseCPUPercent:      5,
		RecordingMemoryMB:   128,
		RecordingCPUPercent: 3,
		StreamMemoryMB:      64,
		StreamCPUPercent:    2,
		MotionMemoryMB:      32,
		MotionCPUPercent:    2,
		TriggerInterval:     10 * time.Minute,
		EncodingMBPerMinute: 10,
	}
}

// WithStorageHeuristics overrides the storage assumptions when they are set.
func (m CostModel) WithStorageHeuristics(c config.CapacityConfig) CostModel {
	if c.TriggerInterval > 0 {
		m.TriggerInterval = c.TriggerInterval
	}
	if c.EncodingMBPerMinute > 0 {
		m.EncodingMBPerMinute = c.EncodingMBPerMinute
	}
	return m
}

type ResourceRequirement struct {
	CameraCount             int     `json:"camera_count"`
	MemoryPerAgentMB        int     `json:"memory_per_agent_mb"`
	CPUPerAgentPercent      float64 `json:"cpu_per_agent_percent"`
	TotalMemoryGB           float64 `json:"total_memory_gb"`
	TotalCPUPercent         float64 `json:"total_cpu_percent"`
	EstimatedDailyStorageGB float64 `json:"estimated_daily_storage_gb"`
}

// Requirements applies the model to cameraCount agents with the features
// enabled in cams.
func (m CostModel) Requirements(cams config.CamerasConfig, cameraCount int) ResourceRequirement {
	memory := m.BaseMemoryMB
	cpu := m.BaseCPUPercent

	if cams.Recording.Enabled {
		memory += m.RecordingMemoryMB
		cpu += m.RecordingCPUPercent
	}
	if cams.Stream.Enabled {
		memory += m.StreamMemoryMB
		cpu += m.StreamCPUPercent
	}
	if cams.MotionDetection.Enabled {
		memory += m.MotionMemoryMB
		cpu += m.MotionCPUPercent
	}

	return ResourceRequirement{
		CameraCount:             cameraCount,
		MemoryPerAgentMB:        memory,
		CPUPerAgentPercent:      cpu,
		TotalMemoryGB:           float64(memory*cameraCount) / 1024,
		TotalCPUPercent:         cpu * float64(cameraCount),
		EstimatedDailyStorageGB: m.DailyStorageGB(cams.Recording, cameraCount),
	}
}

func (m CostModel) RecordingsPerDay() float64 {
	if m.TriggerInterval <= 0 {
		return 0
	}
	return float64(24*time.Hour) / float64(m.TriggerInterval)
}

// DailyStorageGB estimates recorded footage per day. Zero when recording is off.
func (m CostModel) DailyStorageGB(rec config.RecordingConfig, cameraCount int) float64 {
	if !rec.Enabled {
		return 0
	}

	minutesPerEvent := float64(rec.EventSeconds()) / 60
	mbPerCamera := minutesPerEvent * m.EncodingMBPerMinute * m.RecordingsPerDay()
	return mbPerCamera * float64(cameraCount) / 1024
}
