package deployer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Result holds the outcome of a deployment run.
type Result struct {
	// ExitCode is the deployer's process exit code.
	ExitCode int

	// Output is the combined stdout/stderr in arrival order. Interleaving
	// across the two streams follows process I/O delivery; no cross-stream
	// ordering is guaranteed.
	Output string

	// Success is true only for a zero exit code within the time bound.
	Success bool
}

// Runner executes the deployer subprocess with live output forwarding.
type Runner struct {
	// Stdout and Stderr receive the live streams; they default to the
	// invoking process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a runner forwarding to os.Stdout and os.Stderr.
func NewRunner() *Runner {
	return &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run launches binary with args in workingDir. Both output streams are
// accumulated into one buffer and simultaneously forwarded live. When timeout
// is positive the subprocess races a timer; if the timer wins the process is
// killed and the run fails with a TimeoutError carrying the bound. A partial
// Result with whatever output was captured accompanies every error.
func (r *Runner) Run(ctx context.Context, binary string, args []string, workingDir string, env []string, timeout time.Duration) (*Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = workingDir
	// Children of a killed deployer may keep the output pipes open; give the
	// wait a bound instead of hanging on them.
	cmd.WaitDelay = time.Second
	if env != nil {
		cmd.Env = env
	}

	// The two stream listeners run concurrently inside cmd.Run; the shared
	// accumulation buffer needs its own lock.
	var buf lockedBuffer
	cmd.Stdout = io.MultiWriter(r.stdout(), &buf)
	cmd.Stderr = io.MultiWriter(r.stderr(), &buf)

	err := cmd.Run()
	result := &Result{Output: buf.String()}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, &TimeoutError{Limit: timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Code: result.ExitCode}
		}
		return result, fmt.Errorf("failed to start deployer: %w", err)
	}

	result.Success = true
	return result, nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// lockedBuffer is a byte buffer safe for concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
