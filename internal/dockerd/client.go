// Package dockerd queries the local container engine for deployed agents.
package dockerd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

const projectLabel = "com.docker.compose.project"

var ErrEngineUnavailable = errors.New("container engine unavailable")

type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

type Client struct {
	api engineAPI
}

// NewClient connects using the DOCKER_HOST family of environment variables.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return &Client{api: cli}, nil
}

type EngineInfo struct {
	Version       string `json:"version"`
	APIVersion    string `json:"api_version"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	KernelVersion string `json:"kernel_version"`
}

type PortBinding struct {
	HostIP        string `json:"host_ip,omitempty"`
	HostPort      int    `json:"host_port"`
	ContainerPort int    `json:"container_port"`
	Protocol      string `json:"protocol"`
}

// Agent is one container of the compose project as the engine sees it.
type Agent struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Service   string            `json:"service"`
	Image     string            `json:"image"`
	State     string            `json:"state"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Ports     []PortBinding     `json:"ports"`
	Labels    map[string]string `json:"labels,omitempty"`
}

func (a Agent) Running() bool {
	return a.State == "running"
}

// Ping returns the API version negotiated with the engine.
func (c *Client) Ping(ctx context.Context) (string, error) {
	ping, err := c.api.Ping(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return ping.APIVersion, nil
}

func (c *Client) ServerVersion(ctx context.Context) (*EngineInfo, error) {
	v, err := c.api.ServerVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return &EngineInfo{
		Version:       v.Version,
		APIVersion:    v.APIVersion,
		OS:            v.Os,
		Arch:          v.Arch,
		KernelVersion: v.KernelVersion,
	}, nil
}

// ListAgents returns every container of the compose project, running or not,
// sorted by name.
func (c *Client) ListAgents(ctx context.Context, project string) ([]Agent, error) {
	containers, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", projectLabel+"="+project)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	agents := make([]Agent, 0, len(containers))
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}

		agent := Agent{
			ID:        ctr.ID,
			Name:      name,
			Service:   ctr.Labels["com.docker.compose.service"],
			Image:     ctr.Image,
			State:     string(ctr.State),
			Status:    ctr.Status,
			CreatedAt: time.Unix(ctr.Created, 0),
			Ports:     []PortBinding{},
			Labels:    ctr.Labels,
		}
		for _, p := range ctr.Ports {
			if p.PublicPort == 0 {
				continue
			}
			agent.Ports = append(agent.Ports, PortBinding{
				HostIP:        p.IP,
				HostPort:      int(p.PublicPort),
				ContainerPort: int(p.PrivatePort),
				Protocol:      p.Type,
			})
		}
		sort.Slice(agent.Ports, func(i, j int) bool {
			return agent.Ports[i].HostPort < agent.Ports[j].HostPort
		})
		agents = append(agents, agent)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})
	return agents, nil
}

func (c *Client) Close() error {
	return c.api.Close()
}
