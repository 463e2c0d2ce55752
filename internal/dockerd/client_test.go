package dockerd

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	err        error
	containers []container.Summary
	lastList   container.ListOptions
	closed     bool
}

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	if f.err != nil {
		return types.Ping{}, f.err
	}
	return types.Ping{APIVersion: "1.47"}, nil
}

func (f *fakeEngine) ServerVersion(context.Context) (types.Version, error) {
	if f.err != nil {
		return types.Version{}, f.err
	}
	return types.Version{Version: "27.3.1", APIVersion: "1.47", Os: "linux", Arch: "amd64"}, nil
}

func (f *fakeEngine) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.lastList = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.containers, nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func TestPingAndVersion(t *testing.T) {
	c := &Client{api: &fakeEngine{}}
	ctx := context.Background()

	apiVersion, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.47", apiVersion)

	info, err := c.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "27.3.1", info.Version)
	assert.Equal(t, "linux", info.OS)
}

func TestPing_Unavailable(t *testing.T) {
	c := &Client{api: &fakeEngine{err: errors.New("connection refused")}}

	_, err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineUnavailable))
	assert.Contains(t, err.Error(), "connection refused")

	_, err = c.ServerVersion(context.Background())
	assert.True(t, errors.Is(err, ErrEngineUnavailable))
}

func TestListAgents(t *testing.T) {
	engine := &fakeEngine{containers: []container.Summary{
		{
			ID:     "bbb",
			Names:  []string{"/camera-10-0-0-2"},
			Image:  "kerberos/agent:latest",
			State:  "exited",
			Status: "Exited (1) 2 minutes ago",
			Labels: map[string]string{"com.docker.compose.service": "camera-10-0-0-2"},
		},
		{
			ID:     "aaa",
			Names:  []string{"/camera-10-0-0-1"},
			Image:  "kerberos/agent:latest",
			State:  "running",
			Status: "Up 5 minutes",
			Ports: []container.Port{
				{IP: "0.0.0.0", PrivatePort: 1935, PublicPort: 1935, Type: "tcp"},
				{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Type: "tcp"},
				{PrivatePort: 443, Type: "tcp"},
			},
			Labels: map[string]string{"com.docker.compose.service": "camera-10-0-0-1"},
		},
	}}
	c := &Client{api: engine}

	agents, err := c.ListAgents(context.Background(), "kerberos-swarms")
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.True(t, engine.lastList.All)
	assert.Equal(t, []string{"com.docker.compose.project=kerberos-swarms"}, engine.lastList.Filters.Get("label"))

	first := agents[0]
	assert.Equal(t, "camera-10-0-0-1", first.Name)
	assert.Equal(t, "camera-10-0-0-1", first.Service)
	assert.True(t, first.Running())
	assert.Equal(t, []PortBinding{
		{HostIP: "0.0.0.0", HostPort: 1935, ContainerPort: 1935, Protocol: "tcp"},
		{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"},
	}, first.Ports)

	assert.Equal(t, "camera-10-0-0-2", agents[1].Name)
	assert.False(t, agents[1].Running())
	assert.Empty(t, agents[1].Ports)
}

func TestListAgents_Error(t *testing.T) {
	c := &Client{api: &fakeEngine{err: errors.New("boom")}}

	_, err := c.ListAgents(context.Background(), "kerberos-swarms")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	engine := &fakeEngine{}
	c := &Client{api: engine}
	require.NoError(t, c.Close())
	assert.True(t, engine.closed)
}
