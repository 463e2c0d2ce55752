package models

import "time"

const bytesPerGB = 1024 * 1024 * 1024

// HostSnapshot is a point-in-time sample of the local host's resources.
type HostSnapshot struct {
	Hostname             string    `json:"hostname"`
	CPUCores             int32     `json:"cpu_cores"`
	CPUPercent           float64   `json:"cpu_percent"`
	TotalMemoryBytes     uint64    `json:"total_memory_bytes"`
	AvailableMemoryBytes uint64    `json:"available_memory_bytes"`
	MemoryUsedPercent    float64   `json:"memory_used_percent"`
	TotalDiskBytes       uint64    `json:"total_disk_bytes"`
	FreeDiskBytes        uint64    `json:"free_disk_bytes"`
	DiskUsedPercent      float64   `json:"disk_used_percent"`
	SampledAt            time.Time `json:"sampled_at"`
}

func (h HostSnapshot) TotalMemoryGB() float64 {
	return float64(h.TotalMemoryBytes) / bytesPerGB
}

func (h HostSnapshot) AvailableMemoryGB() float64 {
	return float64(h.AvailableMemoryBytes) / bytesPerGB
}

func (h HostSnapshot) TotalDiskGB() float64 {
	return float64(h.TotalDiskBytes) / bytesPerGB
}

func (h HostSnapshot) FreeDiskGB() float64 {
	return float64(h.FreeDiskBytes) / bytesPerGB
}
