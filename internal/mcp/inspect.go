package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/clicheck/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a cli_run or cli_suite result"`
	Case  string `json:"case,omitempty" jsonschema:"suite case name; omit for an overview of the run"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Case == "" {
		return textResult(formatOverview(result))
	}

	if err := result.Expect(report.Suite); err != nil {
		return errorResult(err.Error())
	}
	c, err := report.ByCase(result, params.Case)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatCase(result.ID, c))
}

func formatOverview(rr *report.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", rr.ID, rr.Kind)
	if rr.Suite != "" {
		fmt.Fprintf(&b, "Suite: %s (%s)\n", rr.Suite, rr.Summary())
	}
	fmt.Fprintf(&b, "Started: %s\n", rr.Started.Format("2006-01-02 15:04:05"))

	for _, inv := range rr.Invocations {
		fmt.Fprintln(&b)
		writeInvocation(&b, inv)
	}

	if len(rr.Cases) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Cases:")
		for _, c := range rr.Cases {
			fmt.Fprintf(&b, "  %s: %s (%d steps)\n", c.Name, c.Status, len(c.Steps))
		}
	}
	return b.String()
}

func formatCase(runID string, c *report.CaseReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Case: %s: %s\n", c.Name, c.Status)
	if c.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", c.Message)
	}

	for i, inv := range c.Steps {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Step %d:\n", i+1)
		writeInvocation(&b, inv)
	}
	return b.String()
}

func writeInvocation(b *strings.Builder, inv report.Invocation) {
	if inv.Phase != "" {
		fmt.Fprintf(b, "[%s] ", inv.Phase)
	}
	fmt.Fprintf(b, "$ %s\n", commandLine(inv))
	switch {
	case inv.Skipped:
		fmt.Fprintln(b, "skipped: condition not met")
		return
	case inv.Error != "":
		fmt.Fprintf(b, "error: %s\n", inv.Error)
	default:
		fmt.Fprintf(b, "exit code: %d\n", inv.ExitCode)
	}
	for _, f := range inv.Failures {
		fmt.Fprintf(b, "failed: %s\n", f)
	}
	if inv.Truncated {
		fmt.Fprintln(b, "output truncated")
	}
	writeStream(b, "Stdout", inv.Stdout)
	writeStream(b, "Stderr", inv.Stderr)
}
