// Package discovery publishes camera agents and the viewer in Consul.
package discovery

import (
	"errors"
	"fmt"

	consul "github.com/hashicorp/consul/api"
	"github.com/neumerance/kerberos-swarm/internal/models"
)

const (
	AgentServiceName      = "kerberos-agent"
	ViewerServiceName     = "kerberos-viewer"
	ViewerGRPCServiceName = "kerberos-viewer-grpc"
)

var ErrNoViewer = errors.New("no healthy viewer services found")

type Registry struct {
	client *consul.Client
}

func NewRegistry(consulAddr string) (*Registry, error) {
	config := consul.DefaultConfig()
	if consulAddr != "" {
		config.Address = consulAddr
	}

	client, err := consul.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &Registry{client: client}, nil
}

// RegisterCameras registers one service per camera, health checked through
// the agent's web port on host.
func (r *Registry) RegisterCameras(cameras []models.Camera, host string) error {
	for _, cam := range cameras {
		registration := &consul.AgentServiceRegistration{
			ID:      cam.Name,
			Name:    AgentServiceName,
			Port:    cam.WebPort,
			Address: host,
			Tags:    []string{"camera", "kerberos"},
			Meta: map[string]string{
				"camera_ip": cam.IP,
				"rtmp_port": fmt.Sprint(cam.RTMPPort),
			},
			Check: &consul.AgentServiceCheck{
				HTTP:                           fmt.Sprintf("http://%s:%d/api/health", host, cam.WebPort),
				Interval:                       "10s",
				Timeout:                        "5s",
				DeregisterCriticalServiceAfter: "5m",
			},
		}

		if err := r.client.Agent().ServiceRegister(registration); err != nil {
			return fmt.Errorf("register %s: %w", cam.Name, err)
		}
	}
	return nil
}

// DeregisterCameras keeps going past failures and returns them joined.
func (r *Registry) DeregisterCameras(cameras []models.Camera) error {
	var errs []error
	for _, cam := range cameras {
		if err := r.client.Agent().ServiceDeregister(cam.Name); err != nil {
			errs = append(errs, fmt.Errorf("deregister %s: %w", cam.Name, err))
		}
	}
	return errors.Join(errs...)
}

// RegisterViewer registers the HTTP API and, when grpcPort is set, the gRPC
// health endpoint.
func (r *Registry) RegisterViewer(address string, httpPort, grpcPort int) error {
	httpRegistration := &consul.AgentServiceRegistration{
		ID:      ViewerServiceName,
		Name:    ViewerServiceName,
		Port:    httpPort,
		Address: address,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/api/health", address, httpPort),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
		Tags: []string{"kerberos", "viewer", "http", "api"},
	}

	if err := r.client.Agent().ServiceRegister(httpRegistration); err != nil {
		return fmt.Errorf("register viewer: %w", err)
	}

	if grpcPort == 0 {
		return nil
	}

	grpcRegistration := &consul.AgentServiceRegistration{
		ID:      ViewerGRPCServiceName,
		Name:    ViewerGRPCServiceName,
		Port:    grpcPort,
		Address: address,
		Check: &consul.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d", address, grpcPort),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
		Tags: []string{"kerberos", "viewer", "grpc"},
	}

	if err := r.client.Agent().ServiceRegister(grpcRegistration); err != nil {
		return fmt.Errorf("register viewer grpc: %w", err)
	}
	return nil
}

func (r *Registry) DeregisterViewer() error {
	return errors.Join(
		r.client.Agent().ServiceDeregister(ViewerServiceName),
		r.client.Agent().ServiceDeregister(ViewerGRPCServiceName),
	)
}

// DiscoverViewer returns the base URL of the first healthy viewer.
func (r *Registry) DiscoverViewer() (string, error) {
	services, _, err := r.client.Health().Service(ViewerServiceName, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("query consul: %w", err)
	}

	if len(services) == 0 {
		return "", ErrNoViewer
	}

	service := services[0]
	addr := service.Service.Address
	if addr == "" {
		addr = service.Node.Address
	}

	return fmt.Sprintf("http://%s:%d", addr, service.Service.Port), nil
}
