// Package manifest turns the camera configuration into a compose project.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"github.com/docker/go-units"
	"github.com/neumerance/kerberos-swarm/internal/capacity"
	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProject = "kerberos-swarms"

	agentWebPort  = 80
	agentRTMPPort = 1935

	agentConfigDir     = "/home/agent/data/config"
	agentRecordingsDir = "/home/agent/data/recordings"

	LabelCameraIP      = "kerberos.camera.ip"
	LabelCameraWebPort = "kerberos.camera.web_port"
)

var (
	ErrInvalidLimit    = errors.New("invalid resource limit")
	ErrInvalidManifest = errors.New("invalid compose manifest")
)

// CameraName derives the service and container name from the camera address.
func CameraName(ip string) string {
	return "camera-" + strings.ReplaceAll(ip, ".", "-")
}

// Cameras lists one camera per address in the configured range, with ports
// assigned in address order.
func Cameras(cfg *config.Config) ([]models.Camera, error) {
	addrs, err := capacity.CameraAddresses(cfg.Cameras.IPRange.Start, cfg.Cameras.IPRange.End)
	if err != nil {
		return nil, err
	}
	if err := capacity.CheckPortRanges(cfg.Docker.WebPortStart, cfg.Docker.RTMPPortStart, len(addrs)); err != nil {
		return nil, err
	}

	host := cfg.Viewer.AgentHost
	if host == "" {
		host = "localhost"
	}
	conn := cfg.Cameras.Connection

	cameras := make([]models.Camera, 0, len(addrs))
	for i, ip := range addrs {
		web := cfg.Docker.WebPortStart + i
		rtmp := cfg.Docker.RTMPPortStart + i
		cameras = append(cameras, models.Camera{
			Name:     CameraName(ip),
			IP:       ip,
			WebPort:  web,
			RTMPPort: rtmp,
			RTMPURL:  fmt.Sprintf("rtmp://%s:%d/live", host, rtmp),
			HLSURL:   fmt.Sprintf("http://%s:%d/hls/stream.m3u8", host, web),
			RTSPURL: fmt.Sprintf("%s://%s:%s@%s:%d%s",
				conn.Protocol, conn.Username, conn.Password, ip, conn.Port, conn.StreamPath),
		})
	}
	return cameras, nil
}

// Build assembles the compose project for every camera in the range.
func Build(cfg *config.Config, projectName string) (*types.Project, error) {
	if projectName == "" {
		projectName = DefaultProject
	}

	cameras, err := Cameras(cfg)
	if err != nil {
		return nil, err
	}

	limits, err := resourceLimits(cfg.Docker.Limits)
	if err != nil {
		return nil, err
	}

	network := cfg.Global.NetworkName
	project := &types.Project{
		Name:     projectName,
		Services: make(types.Services, len(cameras)),
		Networks: types.Networks{
			network: types.NetworkConfig{Driver: "bridge"},
		},
	}

	for _, cam := range cameras {
		svc := types.ServiceConfig{
			Image:         cfg.Global.KerberosImage,
			ContainerName: cam.Name,
			Restart:       cfg.Docker.RestartPolicy,
			Networks: map[string]*types.ServiceNetworkConfig{
				network: nil,
			},
			Ports: []types.ServicePortConfig{
				{Target: agentWebPort, Published: strconv.Itoa(cam.WebPort), Protocol: "tcp"},
				{Target: agentRTMPPort, Published: strconv.Itoa(cam.RTMPPort), Protocol: "tcp"},
			},
			Volumes: []types.ServiceVolumeConfig{
				{
					Type:   types.VolumeTypeBind,
					Source: filepath.Join(cfg.Global.ConfigBasePath, cam.Name),
					Target: agentConfigDir,
				},
				{
					Type:   types.VolumeTypeBind,
					Source: filepath.Join(cfg.Global.RecordingsBasePath, cam.Name),
					Target: agentRecordingsDir,
				},
			},
			Environment: environment(cam, cfg.CustomEnvironment),
			Labels: types.Labels{
				LabelCameraIP:      cam.IP,
				LabelCameraWebPort: strconv.Itoa(cam.WebPort),
			},
		}
		if limits != nil {
			svc.Deploy = &types.DeployConfig{
				Resources: types.Resources{Limits: limits},
			}
		}
		project.Services[cam.Name] = svc
	}

	return project, nil
}

// environment merges the agent variables with the custom ones; custom values
// win. Dollar signs are doubled so compose does not interpolate them.
func environment(cam models.Camera, custom map[string]string) types.MappingWithEquals {
	env := map[string]string{
		"AGENT_NAME":                      cam.Name,
		"AGENT_CAPTURE_IPCAMERA_RTSP":     cam.RTSPURL,
		"AGENT_CAPTURE_IPCAMERA_SUB_RTSP": cam.RTSPURL,
		"AGENT_STREAM_WEBRTC":             "true",
		"AGENT_STREAM_RECORDING":          "true",
	}
	for k, v := range custom {
		env[k] = v
	}

	out := make(types.MappingWithEquals, len(env))
	for k, v := range env {
		escaped := strings.ReplaceAll(v, "$", "$$")
		out[k] = &escaped
	}
	return out
}

func resourceLimits(l config.LimitsConfig) (*types.Resource, error) {
	if l.Memory == "" && l.CPUs == "" {
		return nil, nil
	}

	res := &types.Resource{}
	if l.Memory != "" {
		b, err := units.RAMInBytes(l.Memory)
		if err != nil || b <= 0 {
			return nil, fmt.Errorf("%w: memory %q", ErrInvalidLimit, l.Memory)
		}
		res.MemoryBytes = types.UnitBytes(b)
	}
	if l.CPUs != "" {
		cpus, err := strconv.ParseFloat(l.CPUs, 32)
		if err != nil || cpus <= 0 {
			return nil, fmt.Errorf("%w: cpus %q", ErrInvalidLimit, l.CPUs)
		}
		res.NanoCPUs = types.NanoCPUs(cpus)
	}
	return res, nil
}

// PrepareDirectories creates the base directories and one config and one
// recordings directory per camera.
func PrepareDirectories(cfg *config.Config, cameras []models.Camera) error {
	bases := []string{cfg.Global.ConfigBasePath, cfg.Global.RecordingsBasePath}
	for _, base := range bases {
		if err := os.MkdirAll(base, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		for _, cam := range cameras {
			if err := os.MkdirAll(filepath.Join(base, cam.Name), 0755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		}
	}
	return nil
}

func Marshal(project *types.Project) ([]byte, error) {
	data, err := project.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// Write marshals the project and replaces the file at path.
func Write(path string, project *types.Project) error {
	data, err := Marshal(project)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load parses a manifest through the compose loader.
func Load(ctx context.Context, data []byte, projectName string) (*types.Project, error) {
	if projectName == "" {
		projectName = DefaultProject
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if dict == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: data, Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(projectName, false)
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return project, nil
}

// Validate loads data and checks that it declares the expected number of
// camera services.
func Validate(ctx context.Context, data []byte, projectName string, cameraCount int) (*types.Project, error) {
	project, err := Load(ctx, data, projectName)
	if err != nil {
		return nil, err
	}
	if got := len(project.Services); got != cameraCount {
		return nil, fmt.Errorf("%w: %d services, want %d", ErrInvalidManifest, got, cameraCount)
	}
	for name, svc := range project.Services {
		for _, p := range svc.Ports {
			port, err := strconv.Atoi(p.Published)
			if err != nil || port < 1 || port > capacity.MaxPort {
				return nil, fmt.Errorf("%w: service %s publishes port %q", ErrInvalidManifest, name, p.Published)
			}
		}
	}
	return project, nil
}

// ReadFile loads the manifest at path.
func ReadFile(ctx context.Context, path, projectName string) (*types.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Load(ctx, data, projectName)
}
