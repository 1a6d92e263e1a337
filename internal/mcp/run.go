package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type runParams struct {
	Command string   `json:"command" jsonschema:"executable name (resolved on PATH) or path"`
	Args    []string `json:"args,omitempty" jsonschema:"arguments, one token each; no shell interpretation"`
	Stdin   *string  `json:"stdin,omitempty" jsonschema:"text written to standard input, which is then closed"`
	Dir     string   `json:"dir,omitempty" jsonschema:"working directory; relative paths resolve against the workspace root"`
	Timeout string   `json:"timeout,omitempty" jsonschema:"override the configured timeout (e.g. 30s)"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Command == "" {
		return errorResult("command is required")
	}

	r := h.runner
	if params.Timeout != "" {
		d, err := time.ParseDuration(params.Timeout)
		if err != nil || d <= 0 {
			return errorResult(fmt.Sprintf("invalid timeout %q", params.Timeout))
		}
		override := *h.runner
		override.Timeout = d
		r = &override
	}

	c := runner.Command{Name: params.Command, Args: params.Args, Dir: h.resolve(params.Dir)}
	if params.Stdin != nil {
		c.Stdin = runner.Input(*params.Stdin)
	}

	started := time.Now()
	res, err := r.Run(ctx, c)
	inv := report.NewInvocation(c, res, err)

	var launchErr *runner.LaunchError
	if errors.As(err, &launchErr) {
		return errorResult(fmt.Sprintf("Launch failure: %v\nThe command did not start; there is no exit code.", launchErr))
	}

	rr := &report.RunResult{
		ID:          inv.RunID,
		Kind:        report.Run,
		Started:     started,
		Duration:    time.Since(started),
		Invocations: []report.Invocation{inv},
	}
	if rr.ID == "" {
		// Canceled before the process started.
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}
	if saveErr := h.store.Save(rr); saveErr != nil {
		h.logger.Warn("saving run", zap.String("run_id", rr.ID), zap.Error(saveErr))
	}

	return textResult(formatRun(rr.ID, inv, err))
}

func formatRun(runID string, inv report.Invocation, err error) string {
	var b strings.Builder

	var timeoutErr *runner.TimeoutError
	var ioErr *runner.IOError
	switch {
	case errors.As(err, &timeoutErr):
		fmt.Fprintln(&b, "Status: TIMEOUT")
	case errors.As(err, &ioErr):
		fmt.Fprintln(&b, "Status: IO FAILURE")
	case err != nil:
		fmt.Fprintln(&b, "Status: ERROR")
	default:
		fmt.Fprintf(&b, "Exit code: %d\n", inv.ExitCode)
	}
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Command: %s\n", commandLine(inv))
	fmt.Fprintf(&b, "Duration: %s\n", time.Duration(inv.Millis)*time.Millisecond)
	if err != nil {
		fmt.Fprintf(&b, "Error: %v\n", err)
	}
	if inv.Truncated {
		fmt.Fprintln(&b, "Output was truncated at the configured cap.")
	}
	writeStream(&b, "Stdout", inv.Stdout)
	writeStream(&b, "Stderr", inv.Stderr)
	return b.String()
}

func commandLine(inv report.Invocation) string {
	return strings.Join(append([]string{inv.Command}, inv.Args...), " ")
}

// writeStream writes a captured stream indented under a label. Empty
// streams are noted, not printed.
func writeStream(b *strings.Builder, label, text string) {
	fmt.Fprintln(b)
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n", label)
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
