package viewer

import (
	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	cameraUp *prometheus.GaugeVec
	probes   *prometheus.CounterVec
}

// NewMetrics registers the viewer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cameraUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "kerberos",
				Subsystem: "viewer",
				Name:      "camera_up",
				Help:      "Whether the camera agent answered its health endpoint (1) or not (0).",
			}, []string{"camera"}),
		probes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kerberos",
				Subsystem: "viewer",
				Name:      "probes_total",
				Help:      "Agent health probes by resulting status.",
			}, []string{"status"}),
	}
}

func (m *Metrics) observe(status models.CameraStatus) {
	if m == nil {
		return
	}

	up := 0.0
	if status.Status == models.AgentLive {
		up = 1
	}
	m.cameraUp.With(prometheus.Labels{"camera": status.Name}).Set(up)
	m.probes.With(prometheus.Labels{"status": string(status.Status)}).Inc()
}
