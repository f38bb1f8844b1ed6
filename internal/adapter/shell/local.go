package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"goose-tools/internal/domain"
)

// LocalBackend executes commands on the local system.
type LocalBackend struct {
	timeout time.Duration
}

// NewLocalBackend creates a local backend with the given per-command timeout.
// A zero timeout means the caller's context is the only bound.
func NewLocalBackend(timeout time.Duration) *LocalBackend {
	return &LocalBackend{timeout: timeout}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Execute(ctx context.Context, command string, args []string, workDir string) (string, string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s: %w: %w", command, domain.ErrTimeout, err)
	}
	return stdout.String(), stderr.String(), err
}

// ExitCode extracts the process exit status from an Execute error.
// It returns 0 for nil and -1 when the process never ran.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// IsNotFound reports whether err means the executable is not on PATH.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
