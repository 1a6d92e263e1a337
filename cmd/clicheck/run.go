package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/deixis/clicheck/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes for failures that have no child exit code, following the
// shell and timeout(1) conventions.
const (
	exitLaunchFailure = 127
	exitTimeout       = 124
)

type runOptions struct {
	stdin     string
	stdinFile string
	timeout   time.Duration
	dir       string
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Run one command and exit with its exit code",
		Long: `Run one command with an argument vector (no shell), print its captured stdout
and stderr, and exit with its exit code. A command that cannot be launched
exits 127; one killed by the timeout exits 124.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.Context(), a, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.stdin, "stdin", "", "text written to the command's standard input")
	cmd.Flags().StringVar(&opts.stdinFile, "stdin-file", "", "file whose contents are written to standard input")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override the configured timeout (e.g. 30s)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "working directory for the command")
	cmd.MarkFlagsMutuallyExclusive("stdin", "stdin-file")
	return cmd
}

func runCommand(ctx context.Context, a *app, stdout, stderr io.Writer, opts runOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r := a.cfg.Runner(opts.dir)
	r.Logger = a.logger
	if opts.timeout > 0 {
		r.Timeout = opts.timeout
	}

	c := runner.Command{Name: args[0], Args: args[1:]}
	switch {
	case opts.stdinFile != "":
		f, err := os.Open(opts.stdinFile)
		if err != nil {
			return fmt.Errorf("opening stdin file: %w", err)
		}
		defer f.Close()
		c.Stdin = f
	case opts.stdin != "":
		c.Stdin = runner.Input(opts.stdin)
	}

	res, err := r.Run(ctx, c)

	var launchErr *runner.LaunchError
	var timeoutErr *runner.TimeoutError
	var ioErr *runner.IOError
	switch {
	case errors.As(err, &launchErr):
		return &exitError{Code: exitLaunchFailure, Err: launchErr}
	case errors.As(err, &timeoutErr):
		writeOutput(stdout, stderr, timeoutErr.Partial)
		return &exitError{Code: exitTimeout, Err: timeoutErr}
	case errors.As(err, &ioErr):
		writeOutput(stdout, stderr, ioErr.Partial)
		return err
	case err != nil:
		return err
	}

	writeOutput(stdout, stderr, res)
	if res.Truncated {
		a.logger.Warn("output truncated", zap.String("run_id", res.RunID), zap.Int("max_output", r.MaxOutput))
	}
	switch {
	case res.ExitCode == 0:
		return nil
	case res.ExitCode < 0:
		// Killed by a signal.
		return &exitError{Code: 1, Err: fmt.Errorf("%s was terminated by a signal", c.Name)}
	default:
		return &exitError{Code: res.ExitCode}
	}
}

func writeOutput(stdout, stderr io.Writer, res *runner.Result) {
	if res == nil {
		return
	}
	_, _ = io.WriteString(stdout, res.Stdout)
	_, _ = io.WriteString(stderr, res.Stderr)
}
