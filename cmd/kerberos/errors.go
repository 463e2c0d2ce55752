package main

import (
	"errors"
	"fmt"

	"github.com/neumerance/kerberos-swarm/internal/capacity"
	"github.com/neumerance/kerberos-swarm/internal/compose"
	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/dockerd"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitFailure          = 1
	ExitConfigError      = 2
	ExitAddressError     = 3
	ExitHostMetricsError = 4
	ExitEngineError      = 5
)

// exitError carries an explicit exit code out of a command. A nil err means
// the command already reported the outcome and nothing more is printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps a command error onto the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	switch {
	case errors.Is(err, config.ErrConfigNotFound), errors.Is(err, config.ErrConfigParse):
		return ExitConfigError
	case errors.Is(err, capacity.ErrInvalidAddress),
		errors.Is(err, capacity.ErrRange),
		errors.Is(err, capacity.ErrPortRange):
		return ExitAddressError
	case errors.Is(err, capacity.ErrHostMetricsUnavailable):
		return ExitHostMetricsError
	case errors.Is(err, compose.ErrComposeNotFound), errors.Is(err, dockerd.ErrEngineUnavailable):
		return ExitEngineError
	default:
		return ExitFailure
	}
}

// silent reports whether err has already been rendered by the command.
func silent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.err == nil
}
