package capacity

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// CameraCount returns the number of addresses in the inclusive range [start, end].
func CameraCount(start, end string) (int, error) {
	lo, hi, err := parseRange(start, end)
	if err != nil {
		return 0, err
	}
	return int(hi-lo) + 1, nil
}

// CameraAddresses expands the inclusive range into dotted-quad strings.
func CameraAddresses(start, end string) ([]string, error) {
	lo, hi, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, int(hi-lo)+1)
	for n := uint64(lo); n <= uint64(hi); n++ {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		addrs = append(addrs, netip.AddrFrom4(b).String())
	}
	return addrs, nil
}

func parseRange(start, end string) (uint32, uint32, error) {
	lo, err := ipv4ToUint32("start", start)
	if err != nil {
		return 0, 0, err
	}
	hi, err := ipv4ToUint32("end", end)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: %s > %s", ErrRange, start, end)
	}
	return lo, hi, nil
}

func ipv4ToUint32(field, s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, &AddressError{Field: field, Value: s}
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}
