// Package runner launches external commands, waits for them to exit and
// captures their exit code and output streams.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/deixis/clicheck/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWaitDelay bounds how long Run waits for the streams to be drained
// after the process was killed or exited. Past it the pipes are closed and
// Run returns an *IOError.
const DefaultWaitDelay = 5 * time.Second

// Runner executes commands synchronously. The zero value runs commands in
// the current directory with no timeout and no output cap. A Runner must
// not be modified while Run is in progress; Run itself is safe for
// concurrent use.
type Runner struct {
	Dir       string        // default working directory
	Timeout   time.Duration // 0 disables the deadline
	MaxOutput int           // bytes kept per stream; 0 keeps everything
	WaitDelay time.Duration // 0 uses DefaultWaitDelay
	Encoding  string        // WHATWG label; empty means UTF-8
	Logger    *zap.Logger
}

// Run executes c and blocks until the process has exited and both output
// streams have been drained. A nonzero exit status is reported in the
// Result, not as an error. Errors are *LaunchError, *IOError or
// *TimeoutError, or a wrapped context error if ctx was canceled.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("empty command")
	}

	enc, err := LookupEncoding(r.Encoding)
	if err != nil {
		return nil, err
	}

	log := r.logger()
	runID := uuid.New().String()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("running %s: %w", c.Name, err)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = r.Dir
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.WaitDelay = r.waitDelay()
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: r.MaxOutput}
	errW := &limitWriter{buf: &stderr, limit: r.MaxOutput}
	p, err := openPipes(cmd, c.Stdin)
	if err != nil {
		return nil, &LaunchError{Command: c.Name, Err: err}
	}
	defer p.close()

	log.Debug("launching command",
		zap.String("run_id", runID),
		zap.String("command", c.Name),
		zap.Strings("args", c.Args),
		zap.String("dir", cmd.Dir),
		zap.Bool("stdin", c.Stdin != nil),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.ObserveInvocation(metrics.OutcomeLaunchFailure, time.Since(start))
		log.Warn("launch failed", zap.String("run_id", runID), zap.String("command", c.Name), zap.Error(err))
		return nil, &LaunchError{Command: c.Name, Err: err}
	}
	p.start(c.Stdin, outW, errW)
	waitErr := cmd.Wait()
	copyErr := p.wait(cmd.WaitDelay)
	duration := time.Since(start)
	if errors.Is(copyErr, exec.ErrWaitDelay) {
		// Whatever still holds the pipes is left over from this run.
		_ = killProcessGroup(cmd)
	}

	res := &Result{
		RunID:     runID,
		Command:   c.Name,
		Args:      slices.Clone(c.Args),
		ExitCode:  exitCode(waitErr),
		Duration:  duration,
		Truncated: outW.dropped || errW.dropped,
	}
	var decodeErr error
	if res.Stdout, err = decode(enc, stdout.Bytes()); err != nil {
		decodeErr = fmt.Errorf("decoding stdout: %w", err)
	}
	if res.Stderr, err = decode(enc, stderr.Bytes()); err != nil && decodeErr == nil {
		decodeErr = fmt.Errorf("decoding stderr: %w", err)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.ObserveInvocation(metrics.OutcomeTimeout, duration)
		log.Warn("command timed out", zap.String("run_id", runID), zap.String("command", c.Name), zap.Duration("duration", duration))
		return nil, &TimeoutError{Command: c.Name, Timeout: r.Timeout, Partial: res}

	case waitErr != nil && ctx.Err() != nil:
		metrics.ObserveInvocation(metrics.OutcomeCanceled, duration)
		return nil, fmt.Errorf("running %s: %w", c.Name, ctx.Err())

	case copyErr != nil:
		// The capture is incomplete whatever the exit status was.
		metrics.ObserveInvocation(metrics.OutcomeIOFailure, duration)
		log.Warn("stream copy failed", zap.String("run_id", runID), zap.String("command", c.Name), zap.Int("exit_code", res.ExitCode), zap.Error(copyErr))
		return nil, &IOError{Command: c.Name, Partial: res, Err: copyErr}

	case waitErr != nil && !errors.As(waitErr, &exitErr):
		metrics.ObserveInvocation(metrics.OutcomeIOFailure, duration)
		return nil, &IOError{Command: c.Name, Partial: res, Err: waitErr}
	}

	if decodeErr != nil {
		metrics.ObserveInvocation(metrics.OutcomeIOFailure, duration)
		return nil, &IOError{Command: c.Name, Partial: res, Err: decodeErr}
	}

	metrics.ObserveInvocation(metrics.OutcomeExited, duration)
	log.Debug("command exited",
		zap.String("run_id", runID),
		zap.String("command", c.Name),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", duration),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Int("stderr_bytes", stderr.Len()),
		zap.Bool("truncated", res.Truncated),
	)
	return res, nil
}

func (r *Runner) waitDelay() time.Duration {
	if r.WaitDelay <= 0 {
		return DefaultWaitDelay
	}
	return r.WaitDelay
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// exitCode maps a Wait error to an exit code: 0 for nil, -1 when there is
// no exit status or the process was killed by a signal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest. A limit of zero or less keeps everything.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.dropped = true
		}
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
