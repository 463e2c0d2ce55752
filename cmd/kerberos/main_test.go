package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/neumerance/kerberos-swarm/internal/capacity"
	"github.com/neumerance/kerberos-swarm/internal/compose"
	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/dockerd"
	"github.com/neumerance/kerberos-swarm/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitFailure},
		{"config not found", fmt.Errorf("%w: config.yml", config.ErrConfigNotFound), ExitConfigError},
		{"config parse", &config.ParseError{Path: "config.yml", Err: errors.New("bad yaml")}, ExitConfigError},
		{"invalid address", &capacity.AddressError{Field: "start", Value: "10.0.0"}, ExitAddressError},
		{"range", fmt.Errorf("count cameras: %w", capacity.ErrRange), ExitAddressError},
		{"port range", fmt.Errorf("derive cameras: %w", capacity.ErrPortRange), ExitAddressError},
		{"host metrics", fmt.Errorf("%w: memory", capacity.ErrHostMetricsUnavailable), ExitHostMetricsError},
		{"compose missing", compose.ErrComposeNotFound, ExitEngineError},
		{"engine down", fmt.Errorf("%w: dial unix", dockerd.ErrEngineUnavailable), ExitEngineError},
		{"explicit", &exitError{code: ExitFailure}, ExitFailure},
		{"explicit wraps", &exitError{code: ExitAddressError, err: errors.New("x")}, ExitAddressError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestSilent(t *testing.T) {
	assert.True(t, silent(&exitError{code: ExitFailure}))
	assert.False(t, silent(&exitError{code: ExitFailure, err: errors.New("x")}))
	assert.False(t, silent(errors.New("x")))
}

type workspace struct {
	dir     string
	config  string
	compose string
}

func newWorkspace(t *testing.T, ipStart, ipEnd string) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		config:  filepath.Join(dir, "config.yml"),
		compose: filepath.Join(dir, "docker-compose.yml"),
	}

	content := fmt.Sprintf(`
global:
  config_base_path: %q
  recordings_base_path: %q
cameras:
  ip_range:
    start: %q
    end: %q
  recording:
    enabled: true
docker:
  web_port_start: 18080
  rtmp_port_start: 11935
`, filepath.Join(dir, "configs"), filepath.Join(dir, "recordings"), ipStart, ipEnd)
	require.NoError(t, os.WriteFile(ws.config, []byte(content), 0644))
	return ws
}

// execute runs the root command with fresh global flag state.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	outputJSON = false
	noColor = true
	logLevel = "error"
	historyPath = ""
	historyRemote = false
	viewerURL = ""
	consulAddr = ""
	skipConfirm = false
	removeVolumes = false
	projectName = manifest.DefaultProject

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestGenerateCommand(t *testing.T) {
	ws := newWorkspace(t, "10.0.0.1", "10.0.0.3")

	err := execute(t, "--config", ws.config, "--compose-file", ws.compose, "--history-db", "", "generate")
	require.NoError(t, err)

	project, err := manifest.ReadFile(context.Background(), ws.compose, manifest.DefaultProject)
	require.NoError(t, err)
	assert.Len(t, project.Services, 3)

	assert.DirExists(t, filepath.Join(ws.dir, "configs", "camera-10-0-0-1"))
	assert.DirExists(t, filepath.Join(ws.dir, "recordings", "camera-10-0-0-3"))
}

func TestInfoCommand_JSON(t *testing.T) {
	ws := newWorkspace(t, "10.0.0.1", "10.0.0.2")

	err := execute(t, "--config", ws.config, "--compose-file", ws.compose, "--history-db", "", "--json", "info")
	require.NoError(t, err)
}

func TestCommand_MissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yml")

	err := execute(t, "--config", missing, "--history-db", "", "info")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, exitCode(err))
}

func TestSyscheckCommand_RangeError(t *testing.T) {
	ws := newWorkspace(t, "10.0.0.9", "10.0.0.1")

	err := execute(t, "--config", ws.config, "--history-db", "", "syscheck")
	require.Error(t, err)
	assert.Equal(t, ExitAddressError, exitCode(err))
}

func TestSyscheckCommand_InvalidAddress(t *testing.T) {
	ws := newWorkspace(t, "10.0.0", "10.0.0.4")

	err := execute(t, "--config", ws.config, "--history-db", "", "syscheck")
	require.Error(t, err)
	assert.Equal(t, ExitAddressError, exitCode(err))
}

func TestGenerateCommand_PortRangeOverflow(t *testing.T) {
	ws := newWorkspace(t, "10.0.0.1", "10.0.0.3")
	t.Setenv("KERBEROS_DOCKER_WEB_PORT_START", "65534")

	err := execute(t, "--config", ws.config, "--compose-file", ws.compose, "--history-db", "", "generate")
	require.ErrorIs(t, err, capacity.ErrPortRange)
	assert.Equal(t, ExitAddressError, exitCode(err))
	assert.NoFileExists(t, ws.compose)
}

func TestHistoryCommand_Disabled(t *testing.T) {
	err := execute(t, "--history-db", "", "history")
	require.ErrorIs(t, err, errHistoryDisabled)
	assert.Equal(t, ExitFailure, exitCode(err))
}

func TestHistoryCommand_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	err := execute(t, "--history-db", path, "history", "-l", "5")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
