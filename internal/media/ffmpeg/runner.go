package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"clipforge/internal/services"
)

// Runner executes ffmpeg-style commands. The CLI implementation shells out;
// tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// CLI invokes external binaries with a bounded wait. A hang past the timeout
// is fatal to the invocation, never silently retried.
type CLI struct {
	timeout time.Duration
}

// NewCLI constructs a command runner. A non-positive timeout disables the
// bound (callers are expected to pass one for mux/encode invocations).
func NewCLI(timeout time.Duration) *CLI {
	return &CLI{timeout: timeout}
}

// Run executes the command, returning combined output. Non-zero exit status
// is reported with the process diagnostic output preserved in the error.
func (c *CLI) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("command name required")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return output, fmt.Errorf("%w: %s timed out after %s", services.ErrTimeout, name, c.timeout)
		}
		return output, fmt.Errorf("%w: %s: %v: %s", services.ErrExternalTool, name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
