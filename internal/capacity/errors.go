package capacity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress         = errors.New("invalid IPv4 address")
	ErrRange                  = errors.New("start address is greater than end address")
	ErrHostMetricsUnavailable = errors.New("host metrics unavailable")
	ErrPortRange              = errors.New("port range outside 1-65535")
)

// AddressError names the range bound that failed to parse.
type AddressError struct {
	Field string
	Value string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, ErrInvalidAddress)
}

func (e *AddressError) Unwrap() error {
	return ErrInvalidAddress
}
