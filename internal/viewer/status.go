package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrentProbes = 32

// StatusChecker probes camera agents and caches the result per camera.
type StatusChecker struct {
	// MaxConcurrent bounds the probes in flight during Refresh. Set it before
	// the first Refresh.
	MaxConcurrent int

	cameras []models.Camera
	byName  map[string]models.Camera
	host    string
	client  *http.Client
	cache   *ttlcache.Cache[string, models.CameraStatus]
	metrics *Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewStatusChecker(cameras []models.Camera, host string, ttl, timeout time.Duration, metrics *Metrics, logger zerolog.Logger) *StatusChecker {
	if host == "" {
		host = "localhost"
	}

	sc := &StatusChecker{
		MaxConcurrent: DefaultMaxConcurrentProbes,
		cameras:       cameras,
		byName:        make(map[string]models.Camera, len(cameras)),
		host:          host,
		client:        &http.Client{Timeout: timeout},
		metrics:       metrics,
		logger:        logger,
		lastSeen:      make(map[string]time.Time),
	}
	for _, cam := range cameras {
		sc.byName[cam.Name] = cam
	}

	loader := ttlcache.LoaderFunc[string, models.CameraStatus](
		func(c *ttlcache.Cache[string, models.CameraStatus], key string) *ttlcache.Item[string, models.CameraStatus] {
			cam, ok := sc.byName[key]
			if !ok {
				return nil
			}
			return c.Set(key, sc.probe(context.Background(), cam), ttlcache.DefaultTTL)
		},
	)

	sc.cache = ttlcache.New[string, models.CameraStatus](
		ttlcache.WithTTL[string, models.CameraStatus](ttl),
		ttlcache.WithDisableTouchOnHit[string, models.CameraStatus](),
		ttlcache.WithLoader[string, models.CameraStatus](loader),
	)

	return sc
}

func (sc *StatusChecker) Cameras() []models.Camera {
	return sc.cameras
}

// Status returns the cached status of one camera, probing it when the entry
// is missing or expired.
func (sc *StatusChecker) Status(name string) (models.CameraStatus, bool) {
	item := sc.cache.Get(name)
	if item == nil {
		return models.CameraStatus{}, false
	}
	return item.Value(), true
}

// All returns the status of every camera in address order.
func (sc *StatusChecker) All() []models.CameraStatus {
	statuses := make([]models.CameraStatus, 0, len(sc.cameras))
	for _, cam := range sc.cameras {
		if status, ok := sc.Status(cam.Name); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// Refresh probes every camera, at most MaxConcurrent at a time, and replaces
// the cached entries.
func (sc *StatusChecker) Refresh(ctx context.Context) []models.CameraStatus {
	statuses := make([]models.CameraStatus, len(sc.cameras))

	limit := sc.MaxConcurrent
	if limit < 1 {
		limit = DefaultMaxConcurrentProbes
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, cam := range sc.cameras {
		g.Go(func() error {
			statuses[i] = sc.probe(ctx, cam)
			return nil
		})
	}
	_ = g.Wait()

	for _, status := range statuses {
		sc.cache.Set(status.Name, status, ttlcache.DefaultTTL)
	}
	return statuses
}

func (sc *StatusChecker) probe(ctx context.Context, cam models.Camera) models.CameraStatus {
	status := sc.check(ctx, cam)

	now := time.Now()
	sc.mu.Lock()
	if status.Status == models.AgentLive || status.Status == models.AgentConnecting {
		sc.lastSeen[cam.Name] = now
	}
	if seen, ok := sc.lastSeen[cam.Name]; ok {
		status.LastSeen = &seen
	}
	sc.mu.Unlock()

	sc.metrics.observe(status)
	sc.logger.Debug().
		Str("camera", cam.Name).
		Str("status", string(status.Status)).
		Msg("probed agent")

	return status
}

// check maps the agent health endpoint: 200 is live, 404 means the agent is
// up but not serving health yet, anything else is an error. Unreachable
// agents are offline.
func (sc *StatusChecker) check(ctx context.Context, cam models.Camera) models.CameraStatus {
	status := models.CameraStatus{Camera: cam}

	url := fmt.Sprintf("http://%s:%d/api/health", sc.host, cam.WebPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Status = models.AgentError
		status.Error = err.Error()
		return status
	}
	req.Header.Set("Accept", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		status.Status = models.AgentOffline
		status.Error = err.Error()
		if isTimeout(err) {
			status.Error = "Connection timeout"
		}
		return status
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		status.Status = models.AgentLive
	case http.StatusNotFound:
		status.Status = models.AgentConnecting
	default:
		status.Status = models.AgentError
		status.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return status
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
