package viewer

import (
	"github.com/neumerance/kerberos-swarm/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter mirrors camera statuses into the gRPC health service, one
// service name per camera.
type HealthReporter struct {
	server *health.Server
}

func NewHealthReporter() *HealthReporter {
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return &HealthReporter{server: hs}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

func (h *HealthReporter) Update(statuses []models.CameraStatus) {
	for _, status := range statuses {
		serving := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if status.Status == models.AgentLive {
			serving = grpc_health_v1.HealthCheckResponse_SERVING
		}
		h.server.SetServingStatus(status.Name, serving)
	}
}

// Shutdown marks every service NOT_SERVING.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthReporter) Server() grpc_health_v1.HealthServer {
	return h.server
}
