package compose

import (
	"context"
	"os/exec"
)

type lookPathFunc func(file string) (string, error)

type probeFunc func(ctx context.Context, name string, args ...string) error

// DetectCommand prefers the docker compose plugin and falls back to the
// standalone docker-compose binary.
func DetectCommand(ctx context.Context) ([]string, error) {
	return detectCommand(ctx, exec.LookPath, probe)
}

func detectCommand(ctx context.Context, lookPath lookPathFunc, run probeFunc) ([]string, error) {
	if docker, err := lookPath("docker"); err == nil {
		if err := run(ctx, docker, "compose", "version"); err == nil {
			return []string{docker, "compose"}, nil
		}
	}

	if standalone, err := lookPath("docker-compose"); err == nil {
		if err := run(ctx, standalone, "version"); err == nil {
			return []string{standalone}, nil
		}
	}

	return nil, ErrComposeNotFound
}

func probe(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
