package cli

import (
	"fmt"
	"strings"

	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/dockerd"
	"github.com/neumerance/kerberos-swarm/internal/models"
)

type ConfigInfo struct {
	ConfigFile  string          `json:"config_file"`
	ComposeFile string          `json:"compose_file"`
	Project     string          `json:"project"`
	Image       string          `json:"image"`
	Network     string          `json:"network"`
	Recording   bool            `json:"recording"`
	Stream      bool            `json:"stream"`
	Motion      bool            `json:"motion_detection"`
	Cameras     []models.Camera `json:"cameras"`
}

// Info prints the configuration summary and the camera port map.
func Info(f *Formatter, cfg *config.Config, composeFile, project string, cameras []models.Camera) error {
	info := ConfigInfo{
		ConfigFile:  cfg.Path,
		ComposeFile: composeFile,
		Project:     project,
		Image:       cfg.Global.KerberosImage,
		Network:     cfg.Global.NetworkName,
		Recording:   cfg.Cameras.Recording.Enabled,
		Stream:      cfg.Cameras.Stream.Enabled,
		Motion:      cfg.Cameras.MotionDetection.Enabled,
		Cameras:     cameras,
	}
	if f.json {
		return f.JSON(info)
	}

	f.Header("Kerberos Configuration")

	w := f.table()
	fmt.Fprintf(w, "Config file:\t%s\n", info.ConfigFile)
	fmt.Fprintf(w, "Compose file:\t%s\n", info.ComposeFile)
	fmt.Fprintf(w, "Project:\t%s\n", info.Project)
	fmt.Fprintf(w, "Image:\t%s\n", info.Image)
	fmt.Fprintf(w, "Network:\t%s\n", info.Network)
	fmt.Fprintf(w, "IP range:\t%s - %s\n", cfg.Cameras.IPRange.Start, cfg.Cameras.IPRange.End)
	fmt.Fprintf(w, "Cameras:\t%d\n", len(cameras))
	fmt.Fprintf(w, "Recording:\t%s\n", enabled(info.Recording))
	fmt.Fprintf(w, "Streaming:\t%s\n", enabled(info.Stream))
	fmt.Fprintf(w, "Motion detection:\t%s\n", enabled(info.Motion))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(cameras) == 0 {
		return nil
	}

	f.Println()
	w = f.table()
	fmt.Fprintln(w, "CAMERA\tIP\tWEB\tRTMP\tURL")
	for _, cam := range cameras {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\thttp://localhost:%d\n", cam.Name, cam.IP, cam.WebPort, cam.RTMPPort, cam.WebPort)
	}
	return w.Flush()
}

type EngineStatus struct {
	Engine *dockerd.EngineInfo `json:"engine"`
	Agents []dockerd.Agent     `json:"agents"`
}

// Agents prints the containers the engine reports for the project.
func Agents(f *Formatter, engine *dockerd.EngineInfo, agents []dockerd.Agent) error {
	if f.json {
		return f.JSON(EngineStatus{Engine: engine, Agents: agents})
	}

	if engine != nil {
		f.Info("Docker %s (API %s, %s/%s)", engine.Version, engine.APIVersion, engine.OS, engine.Arch)
	}

	if len(agents) == 0 {
		f.Warning("No agent containers found")
		return nil
	}

	running := 0
	w := f.table()
	fmt.Fprintln(w, "NAME\tSTATE\tSTATUS\tPORTS")
	for _, a := range agents {
		if a.Running() {
			running++
		}
		state := a.State
		if a.Running() {
			state = f.style(f.ok, state)
		} else {
			state = f.style(f.fail, state)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, state, a.Status, formatPorts(a.Ports))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	f.Println()
	f.Info("%d/%d agents running", running, len(agents))
	return nil
}

func formatPorts(ports []dockerd.PortBinding) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, fmt.Sprintf("%d->%d/%s", p.HostPort, p.ContainerPort, p.Protocol))
	}
	return strings.Join(parts, ", ")
}

// Operations prints the operation history, newest first.
func Operations(f *Formatter, ops []*models.Operation) error {
	if f.json {
		return f.JSON(ops)
	}

	if len(ops) == 0 {
		f.Info("No operations recorded")
		return nil
	}

	w := f.table()
	fmt.Fprintln(w, "STARTED\tCOMMAND\tEXIT\tDURATION\tID")
	for _, op := range ops {
		started := op.StartedAt
		exit := fmt.Sprint(op.ExitCode)
		if !op.Succeeded() {
			exit = f.style(f.fail, exit)
		}
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
			formatTime(&started),
			op.Command,
			strings.Join(op.Args, " "),
			exit,
			formatDuration(op.Duration),
			op.ID,
		)
	}
	return w.Flush()
}

// CameraStatuses prints live agent status as reported by a viewer.
func CameraStatuses(f *Formatter, statuses []models.CameraStatus) error {
	if f.json {
		return f.JSON(statuses)
	}

	if len(statuses) == 0 {
		f.Warning("No cameras configured")
		return nil
	}

	live := 0
	w := f.table()
	fmt.Fprintln(w, "CAMERA\tIP\tWEB\tSTATUS\tLAST SEEN\tERROR")
	for _, s := range statuses {
		state := string(s.Status)
		switch s.Status {
		case models.AgentLive:
			live++
			state = f.style(f.ok, state)
		case models.AgentConnecting:
			state = f.style(f.warn, state)
		default:
			state = f.style(f.fail, state)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", s.Name, s.IP, s.WebPort, state, formatTime(s.LastSeen), s.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	f.Println()
	f.Info("%d/%d cameras live", live, len(statuses))
	return nil
}

// Generated summarises a freshly written manifest.
func Generated(f *Formatter, path string, cameras []models.Camera) error {
	if f.json {
		return f.JSON(map[string]interface{}{
			"compose_file": path,
			"services":     len(cameras),
			"cameras":      cameras,
		})
	}

	f.Success("Docker Compose file generated: %s", path)
	f.Info("Services created: %d", len(cameras))
	if len(cameras) > 0 {
		first, last := cameras[0], cameras[len(cameras)-1]
		f.Info("Web ports: %d-%d", first.WebPort, last.WebPort)
		f.Info("RTMP ports: %d-%d", first.RTMPPort, last.RTMPPort)
	}
	return nil
}
