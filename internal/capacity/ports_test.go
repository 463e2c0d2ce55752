package capacity

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber map[int]bool

func (f fakeProber) Available(port int) bool {
	return !f[port]
}

func TestBusyPorts_Order(t *testing.T) {
	prober := fakeProber{8081: true, 1935: true, 1937: true, 8080: true}

	busy := BusyPorts(prober, 8080, 1935, 3)

	assert.Equal(t, []BusyPort{
		{Port: 8080, Role: RoleWeb},
		{Port: 8081, Role: RoleWeb},
		{Port: 1935, Role: RoleRTMP},
		{Port: 1937, Role: RoleRTMP},
	}, busy)
}

func TestCheckPortRanges(t *testing.T) {
	tests := []struct {
		name      string
		web, rtmp int
		count     int
		wantErr   bool
	}{
		{"defaults", 8080, 1935, 3, false},
		{"ends at max", 65533, 1935, 3, false},
		{"web overflows", 65534, 1935, 3, true},
		{"rtmp overflows", 8080, 65535, 2, true},
		{"zero start", 0, 1935, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPortRanges(tt.web, tt.rtmp, tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPortRange)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBusyPorts_NoneBusy(t *testing.T) {
	busy := BusyPorts(fakeProber{}, 8080, 1935, 2)
	assert.NotNil(t, busy)
	assert.Empty(t, busy)
}

func TestListenProber(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	busy := BusyPorts(ListenProber{}, port, port, 1)
	assert.Equal(t, []BusyPort{
		{Port: port, Role: RoleWeb},
		{Port: port, Role: RoleRTMP},
	}, busy)

	require.NoError(t, ln.Close())

	assert.True(t, ListenProber{}.Available(port))
	assert.Empty(t, BusyPorts(ListenProber{}, port, port, 1))
}
