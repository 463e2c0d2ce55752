package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, true)

	op := &models.Operation{ID: "op-1", Command: "docker compose", Args: []string{"ps"}, Stdout: "NAME  STATUS\n"}
	require.NoError(t, Operation(f, op, "Listed agents"))

	out := buf.String()
	assert.Contains(t, out, "NAME  STATUS")
	assert.Contains(t, out, "[OK] Listed agents")
}

func TestOperation_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, true, true)

	op := &models.Operation{ID: "op-1", Command: "docker compose", Args: []string{"down"}}
	require.NoError(t, Operation(f, op, "All cameras stopped"))

	var got OperationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "All cameras stopped", got.Message)
	require.NotNil(t, got.Operation)
	assert.Equal(t, "op-1", got.Operation.ID)
}

func TestStarted_ListsAgentURLs(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, true)

	cameras := []models.Camera{
		{Name: "camera-10-0-0-1", WebPort: 8080},
		{Name: "camera-10-0-0-2", WebPort: 8081},
	}
	require.NoError(t, Started(f, nil, cameras))

	out := buf.String()
	assert.Contains(t, out, "Started 2 camera agents")
	assert.Contains(t, out, "camera-10-0-0-2: http://localhost:8081")
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		passed bool
	}{
		{
			name:   "all ok",
			checks: []Check{{Name: "Docker", OK: true, Detail: "28.5.2"}},
			passed: true,
		},
		{
			name: "optional failure passes",
			checks: []Check{
				{Name: "Docker", OK: true},
				{Name: "Compose file", OK: false, Optional: true, Detail: "not generated"},
			},
			passed: true,
		},
		{
			name: "required failure",
			checks: []Check{
				{Name: "Docker", OK: false, Detail: "container engine unavailable"},
			},
			passed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewFormatter(&buf, false, true)

			passed, err := Checks(f, tt.checks)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, passed)
			if tt.passed {
				assert.Contains(t, buf.String(), "All requirements met")
			} else {
				assert.Contains(t, buf.String(), "Some requirements are missing")
			}
		})
	}
}

func TestChecks_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, true, true)

	passed, err := Checks(f, []Check{{Name: "Configuration", OK: false, Detail: "configuration file not found"}})
	require.NoError(t, err)
	assert.False(t, passed)

	var got struct {
		Checks []Check `json:"checks"`
		Passed bool    `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Passed)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, "Configuration", got.Checks[0].Name)
}
