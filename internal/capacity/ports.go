package capacity

import (
	"fmt"
	"net"
	"strconv"
)

const MaxPort = 65535

type PortRole string

const (
	RoleWeb  PortRole = "web"
	RoleRTMP PortRole = "rtmp"
)

type BusyPort struct {
	Port int      `json:"port"`
	Role PortRole `json:"role"`
}

// PortProber reports whether a local TCP port can be bound right now.
type PortProber interface {
	Available(port int) bool
}

// ListenProber binds localhost:<port> and releases it at once. The answer is
// stale as soon as it is returned; nothing is reserved.
type ListenProber struct {
	Host string
}

func (p ListenProber) Available(port int) bool {
	host := p.Host
	if host == "" {
		host = "localhost"
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// CheckPortRanges fails when the web or RTMP range of cameraCount agents
// does not fit in 1-65535.
func CheckPortRanges(webStart, rtmpStart, cameraCount int) error {
	ranges := []struct {
		role  PortRole
		start int
	}{
		{RoleWeb, webStart},
		{RoleRTMP, rtmpStart},
	}
	for _, r := range ranges {
		last := r.start + cameraCount - 1
		if r.start < 1 || last > MaxPort {
			return fmt.Errorf("%w: %s ports %d-%d", ErrPortRange, r.role, r.start, last)
		}
	}
	return nil
}

// BusyPorts probes the web ports and then the RTMP ports of cameraCount
// agents, in ascending order within each role.
func BusyPorts(prober PortProber, webStart, rtmpStart, cameraCount int) []BusyPort {
	busy := []BusyPort{}
	for i := 0; i < cameraCount; i++ {
		if port := webStart + i; !prober.Available(port) {
			busy = append(busy, BusyPort{Port: port, Role: RoleWeb})
		}
	}
	for i := 0; i < cameraCount; i++ {
		if port := rtmpStart + i; !prober.Available(port) {
			busy = append(busy, BusyPort{Port: port, Role: RoleRTMP})
		}
	}
	return busy
}
