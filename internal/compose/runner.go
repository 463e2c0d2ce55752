// Package compose delegates lifecycle operations to the docker compose CLI.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/rs/zerolog"
)

var ErrComposeNotFound = errors.New("neither 'docker compose' nor 'docker-compose' is available")

// ExitError is returned when the compose CLI exits non-zero.
type ExitError struct {
	Op *models.Operation
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Op.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Op.Command, e.Op.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Op.Command, e.Op.ExitCode, msg)
}

// Recorder persists executed operations.
type Recorder interface {
	Record(ctx context.Context, op *models.Operation) error
}

type Runner struct {
	// Command is the compose entry point, e.g. ["docker", "compose"].
	Command  []string
	File     string
	Project  string
	Recorder Recorder
	Logger   zerolog.Logger
}

func NewRunner(command []string, file, project string, recorder Recorder, logger zerolog.Logger) *Runner {
	return &Runner{
		Command:  command,
		File:     file,
		Project:  project,
		Recorder: recorder,
		Logger:   logger,
	}
}

func (r *Runner) commandLine(args []string) (string, []string) {
	full := make([]string, 0, len(r.Command)+len(args)+4)
	full = append(full, r.Command[1:]...)
	if r.File != "" {
		full = append(full, "-f", r.File)
	}
	if r.Project != "" {
		full = append(full, "-p", r.Project)
	}
	full = append(full, args...)
	return r.Command[0], full
}

// Run executes one compose subcommand and captures its output. A non-zero
// exit returns the operation together with an *ExitError.
func (r *Runner) Run(ctx context.Context, args ...string) (*models.Operation, error) {
	var stdout, stderr bytes.Buffer
	op, err := r.exec(ctx, &stdout, &stderr, args)
	if op != nil {
		op.Stdout = stdout.String()
		op.Stderr = stderr.String()
		r.record(ctx, op)
	}
	return op, err
}

// Stream is Run with the caller's writers attached instead of buffers.
func (r *Runner) Stream(ctx context.Context, stdout, stderr io.Writer, args ...string) (*models.Operation, error) {
	op, err := r.exec(ctx, stdout, stderr, args)
	if op != nil {
		r.record(ctx, op)
	}
	return op, err
}

func (r *Runner) exec(ctx context.Context, stdout, stderr io.Writer, args []string) (*models.Operation, error) {
	if len(r.Command) == 0 {
		return nil, ErrComposeNotFound
	}

	name, full := r.commandLine(args)
	cmd := exec.CommandContext(ctx, name, full...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	op := &models.Operation{
		ID:        uuid.New().String(),
		Command:   strings.Join(r.Command, " "),
		Args:      args,
		StartedAt: time.Now(),
	}

	r.Logger.Debug().
		Str("command", name).
		Strs("args", full).
		Msg("running compose")

	err := cmd.Run()
	op.Duration = time.Since(op.StartedAt)

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", op.Command, err)
		}
		op.ExitCode = exitErr.ExitCode()
		return op, &ExitError{Op: op}
	}

	return op, nil
}

func (r *Runner) record(ctx context.Context, op *models.Operation) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.Record(ctx, op); err != nil {
		r.Logger.Warn().Err(err).Str("operation", op.ID).Msg("failed to record operation")
	}
}

// Up starts the agents detached. UpForeground covers the attached case.
func (r *Runner) Up(ctx context.Context) (*models.Operation, error) {
	return r.Run(ctx, "up", "-d")
}

// UpForeground attaches the agents' output to the given writers until they stop.
func (r *Runner) UpForeground(ctx context.Context, stdout, stderr io.Writer) (*models.Operation, error) {
	return r.Stream(ctx, stdout, stderr, "up")
}

func (r *Runner) Down(ctx context.Context, volumes bool) (*models.Operation, error) {
	if volumes {
		return r.Run(ctx, "down", "-v", "--remove-orphans")
	}
	return r.Run(ctx, "down")
}

func (r *Runner) Ps(ctx context.Context) (*models.Operation, error) {
	return r.Run(ctx, "ps")
}

// Logs streams agent logs; an empty service means all of them.
func (r *Runner) Logs(ctx context.Context, stdout, stderr io.Writer, service string, follow bool) (*models.Operation, error) {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	if service != "" {
		args = append(args, service)
	}
	return r.Stream(ctx, stdout, stderr, args...)
}

func (r *Runner) Pull(ctx context.Context) (*models.Operation, error) {
	return r.Run(ctx, "pull")
}

// Recreate restarts every agent with fresh containers.
func (r *Runner) Recreate(ctx context.Context) (*models.Operation, error) {
	return r.Run(ctx, "up", "-d", "--force-recreate")
}

func (r *Runner) Version(ctx context.Context) (string, error) {
	op, err := r.Run(ctx, "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(op.Stdout), nil
}
