// Package config loads the camera deployment document.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "KERBEROS"

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrConfigParse    = errors.New("configuration file is invalid")
	ErrInvalidValue   = errors.New("invalid configuration value")
)

// ParseError reports which file failed to load and why.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrConfigParse, e.Err}
}

// Config is the whole deployment document. It is treated as read-only once loaded.
type Config struct {
	Global            GlobalConfig      `mapstructure:"global" json:"global"`
	Cameras           CamerasConfig     `mapstructure:"cameras" json:"cameras"`
	Docker            DockerConfig      `mapstructure:"docker" json:"docker"`
	CustomEnvironment map[string]string `mapstructure:"-" json:"custom_environment"`
	Capacity          CapacityConfig    `mapstructure:"capacity" json:"capacity"`
	Log               LogConfig         `mapstructure:"log" json:"log"`
	Viewer            ViewerConfig      `mapstructure:"viewer" json:"viewer"`

	// Path is the file the document was read from.
	Path string `mapstructure:"-" json:"-"`
}

type GlobalConfig struct {
	KerberosImage      string `mapstructure:"kerberos_image" json:"kerberos_image"`
	NetworkName        string `mapstructure:"network_name" json:"network_name"`
	ConfigBasePath     string `mapstructure:"config_base_path" json:"config_base_path"`
	RecordingsBasePath string `mapstructure:"recordings_base_path" json:"recordings_base_path"`
}

type CamerasConfig struct {
	IPRange         IPRange          `mapstructure:"ip_range" json:"ip_range"`
	Connection      ConnectionConfig `mapstructure:"connection" json:"connection"`
	Recording       RecordingConfig  `mapstructure:"recording" json:"recording"`
	Stream          FeatureToggle    `mapstructure:"stream" json:"stream"`
	MotionDetection FeatureToggle    `mapstructure:"motion_detection" json:"motion_detection"`
}

type IPRange struct {
	Start string `mapstructure:"start" json:"start"`
	End   string `mapstructure:"end" json:"end"`
}

type ConnectionConfig struct {
	Protocol   string `mapstructure:"protocol" json:"protocol"`
	Port       int    `mapstructure:"port" json:"port"`
	Username   string `mapstructure:"username" json:"username"`
	Password   string `mapstructure:"password" json:"password"`
	StreamPath string `mapstructure:"stream_path" json:"stream_path"`
}

// RecordingConfig durations are in seconds.
type RecordingConfig struct {
	Enabled       bool `mapstructure:"enabled" json:"enabled"`
	Duration      int  `mapstructure:"duration" json:"duration"`
	PreRecording  int  `mapstructure:"pre_recording" json:"pre_recording"`
	PostRecording int  `mapstructure:"post_recording" json:"post_recording"`
}

func (r RecordingConfig) EventSeconds() int {
	return r.Duration + r.PreRecording + r.PostRecording
}

type FeatureToggle struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type DockerConfig struct {
	WebPortStart  int          `mapstructure:"web_port_start" json:"web_port_start"`
	RTMPPortStart int          `mapstructure:"rtmp_port_start" json:"rtmp_port_start"`
	RestartPolicy string       `mapstructure:"restart_policy" json:"restart_policy"`
	Limits        LimitsConfig `mapstructure:"limits" json:"limits"`
}

// LimitsConfig holds compose-style limits, e.g. memory "512m" and cpus "0.5".
type LimitsConfig struct {
	Memory string `mapstructure:"memory" json:"memory,omitempty"`
	CPUs   string `mapstructure:"cpus" json:"cpus,omitempty"`
}

// CapacityConfig tunes the storage heuristic used by syscheck.
type CapacityConfig struct {
	TriggerInterval     time.Duration `mapstructure:"trigger_interval" json:"trigger_interval"`
	EncodingMBPerMinute float64       `mapstructure:"encoding_mb_per_minute" json:"encoding_mb_per_minute"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

type ViewerConfig struct {
	Addr                string        `mapstructure:"addr" json:"addr"`
	GRPCAddr            string        `mapstructure:"grpc_addr" json:"grpc_addr"`
	AgentHost           string        `mapstructure:"agent_host" json:"agent_host"`
	StatusTTL           time.Duration `mapstructure:"status_ttl" json:"status_ttl"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout" json:"probe_timeout"`
	RefreshInterval     time.Duration `mapstructure:"refresh_interval" json:"refresh_interval"`
	CORSOrigin          string        `mapstructure:"cors_origin" json:"cors_origin"`
	HistoryRetention    time.Duration `mapstructure:"history_retention" json:"history_retention"`
	MaxConcurrentProbes int           `mapstructure:"max_concurrent_probes" json:"max_concurrent_probes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.kerberos_image", "kerberos/agent:latest")
	v.SetDefault("global.network_name", "kerberos-network")
	v.SetDefault("global.config_base_path", "./configs")
	v.SetDefault("global.recordings_base_path", "./recordings")

	v.SetDefault("cameras.ip_range.start", "")
	v.SetDefault("cameras.ip_range.end", "")
	v.SetDefault("cameras.connection.protocol", "rtsp")
	v.SetDefault("cameras.connection.port", 554)
	v.SetDefault("cameras.connection.username", "admin")
	v.SetDefault("cameras.connection.password", "password")
	v.SetDefault("cameras.connection.stream_path", "/stream1")
	v.SetDefault("cameras.recording.enabled", false)
	v.SetDefault("cameras.recording.duration", 30)
	v.SetDefault("cameras.recording.pre_recording", 5)
	v.SetDefault("cameras.recording.post_recording", 5)
	v.SetDefault("cameras.stream.enabled", false)
	v.SetDefault("cameras.motion_detection.enabled", false)

	v.SetDefault("docker.web_port_start", 8080)
	v.SetDefault("docker.rtmp_port_start", 1935)
	v.SetDefault("docker.restart_policy", "unless-stopped")
	v.SetDefault("docker.limits.memory", "")
	v.SetDefault("docker.limits.cpus", "")

	v.SetDefault("capacity.trigger_interval", "10m")
	v.SetDefault("capacity.encoding_mb_per_minute", 10)

	v.SetDefault("log.level", "info")

	v.SetDefault("viewer.addr", ":3001")
	v.SetDefault("viewer.grpc_addr", ":9090")
	v.SetDefault("viewer.agent_host", "localhost")
	v.SetDefault("viewer.status_ttl", "10s")
	v.SetDefault("viewer.probe_timeout", "5s")
	v.SetDefault("viewer.refresh_interval", "15s")
	v.SetDefault("viewer.cors_origin", "http://localhost:3000")
	v.SetDefault("viewer.history_retention", "720h")
	v.SetDefault("viewer.max_concurrent_probes", 32)
}

// Load reads the deployment document at path. Environment variables prefixed
// with KERBEROS_ override file values (KERBEROS_DOCKER_WEB_PORT_START).
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	env, err := readCustomEnvironment(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	cfg.CustomEnvironment = env
	cfg.Path = path

	if err := cfg.validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &cfg, nil
}

// validate rejects values that would stall or break the estimator and the
// viewer loops.
func (c *Config) validate() error {
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"capacity.trigger_interval", c.Capacity.TriggerInterval},
		{"viewer.status_ttl", c.Viewer.StatusTTL},
		{"viewer.probe_timeout", c.Viewer.ProbeTimeout},
		{"viewer.refresh_interval", c.Viewer.RefreshInterval},
		{"viewer.history_retention", c.Viewer.HistoryRetention},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, d.key, d.value)
		}
	}

	if c.Capacity.EncodingMBPerMinute < 0 {
		return fmt.Errorf("%w: capacity.encoding_mb_per_minute must not be negative", ErrInvalidValue)
	}
	if c.Viewer.MaxConcurrentProbes < 1 {
		return fmt.Errorf("%w: viewer.max_concurrent_probes must be at least 1, got %d", ErrInvalidValue, c.Viewer.MaxConcurrentProbes)
	}
	return nil
}

// readCustomEnvironment decodes custom_environment directly because viper
// folds map keys to lower case and agent variables are case sensitive.
func readCustomEnvironment(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		CustomEnvironment map[string]string `yaml:"custom_environment"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode custom_environment: %w", err)
	}

	if doc.CustomEnvironment == nil {
		return map[string]string{}, nil
	}
	return doc.CustomEnvironment, nil
}

// Redacted returns a copy safe to expose over the viewer API.
func (c *Config) Redacted() Config {
	out := *c
	if out.Cameras.Connection.Password != "" {
		out.Cameras.Connection.Password = "****"
	}
	env := make(map[string]string, len(c.CustomEnvironment))
	for k, val := range c.CustomEnvironment {
		env[k] = val
	}
	out.CustomEnvironment = env
	return out
}
