package cli

import (
	"fmt"

	"github.com/neumerance/kerberos-swarm/internal/capacity"
	"github.com/neumerance/kerberos-swarm/internal/config"
)

// CapacityReport prints the syscheck result. Values are printed unrounded in
// JSON and to one decimal in text.
func CapacityReport(f *Formatter, cfg *config.Config, r *capacity.CapacityReport) error {
	if f.json {
		return f.JSON(r)
	}

	req := r.Requirement
	host := r.Host

	f.Header("Kerberos Multi-Agent System Check")

	f.Section("Configuration Summary")
	w := f.table()
	fmt.Fprintf(w, "  Cameras:\t%d\n", req.CameraCount)
	fmt.Fprintf(w, "  IP Range:\t%s - %s\n", cfg.Cameras.IPRange.Start, cfg.Cameras.IPRange.End)
	fmt.Fprintf(w, "  Recording:\t%s\n", enabled(cfg.Cameras.Recording.Enabled))
	fmt.Fprintf(w, "  Streaming:\t%s\n", enabled(cfg.Cameras.Stream.Enabled))
	fmt.Fprintf(w, "  Motion Detection:\t%s\n", enabled(cfg.Cameras.MotionDetection.Enabled))
	if err := w.Flush(); err != nil {
		return err
	}

	f.Section("Resource Requirements")
	w = f.table()
	fmt.Fprintf(w, "  Memory per agent:\t%d MB\n", req.MemoryPerAgentMB)
	fmt.Fprintf(w, "  CPU per agent:\t%.1f%%\n", req.CPUPerAgentPercent)
	fmt.Fprintf(w, "  Total memory needed:\t%.2f GB\n", req.TotalMemoryGB)
	fmt.Fprintf(w, "  Total CPU needed:\t%.1f%%\n", req.TotalCPUPercent)
	fmt.Fprintf(w, "  Estimated daily storage:\t%.2f GB/day\n", req.EstimatedDailyStorageGB)
	if err := w.Flush(); err != nil {
		return err
	}

	f.Section("Current System Resources")
	w = f.table()
	fmt.Fprintf(w, "  Memory:\t%.1f GB available / %.1f GB total (%.1f%% used)\n",
		host.AvailableMemoryGB(), host.TotalMemoryGB(), host.MemoryUsedPercent)
	fmt.Fprintf(w, "  CPU:\t%d cores, %.1f%% current usage\n", host.CPUCores, host.CPUPercent)
	fmt.Fprintf(w, "  Disk:\t%.1f GB free / %.1f GB total (%.1f%% used)\n",
		host.FreeDiskGB(), host.TotalDiskGB(), host.DiskUsedPercent)
	if err := w.Flush(); err != nil {
		return err
	}

	f.Section("Capacity Assessment")
	w = f.table()
	fmt.Fprintf(w, "  Memory:\t%s\n", f.verdict(r.MemorySufficient, "SUFFICIENT", "INSUFFICIENT"))
	if !r.MemorySufficient {
		fmt.Fprintf(w, "  \tNeed %.1f GB more memory\n", r.MemoryShortfallGB())
	}
	fmt.Fprintf(w, "  CPU:\t%s\n", f.verdict(r.CPUSufficient, "SUFFICIENT", "HIGH USAGE"))
	if !r.CPUSufficient {
		fmt.Fprintf(w, "  \tEstimated %.1f%% CPU usage may cause performance issues\n", req.TotalCPUPercent)
	}
	fmt.Fprintf(w, "  Disk (%d days storage):\t%s\n", r.Thresholds.RetentionDays,
		f.verdict(r.DiskSufficient, "SUFFICIENT", "LIMITED"))
	if !r.DiskSufficient && req.EstimatedDailyStorageGB > 0 {
		fmt.Fprintf(w, "  \tOnly %.1f GB free, need %.1f GB for %d days\n",
			host.FreeDiskGB(), r.RetentionStorageGB(), r.Thresholds.RetentionDays)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	f.Section("Port Availability")
	if len(r.BusyPorts) == 0 {
		f.Success("All required ports are available")
	} else {
		f.Warning("Some ports are in use:")
		for _, p := range r.BusyPorts {
			f.Println(fmt.Sprintf("    - %s port %d", portRole(p.Role), p.Port))
		}
	}

	f.Section("Overall Assessment")
	if r.OverallReady {
		f.Success("READY FOR DEPLOYMENT")
		f.Println("  Your system can handle all configured Kerberos agents.")
		return nil
	}

	f.Warning("DEPLOYMENT WITH CAUTION")
	if !r.MemorySufficient {
		f.Println("  - Consider reducing the number of cameras or adding more RAM")
	}
	if !r.CPUSufficient {
		f.Println("  - Monitor CPU usage during deployment")
	}
	if !r.DiskSufficient {
		f.Println("  - Plan for regular cleanup of recordings or add more storage")
	}
	if len(r.BusyPorts) > 0 {
		f.Println("  - Stop services using conflicting ports or modify port configuration")
	}
	return nil
}

func portRole(role capacity.PortRole) string {
	if role == capacity.RoleRTMP {
		return "RTMP"
	}
	return "Web"
}
