package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type suiteParams struct {
	Path  string   `json:"path" jsonschema:"suite YAML file; relative paths resolve against the workspace root"`
	Cases []string `json:"cases,omitempty" jsonschema:"names of the cases to run. Defaults to all cases."`
}

func (h *handler) suiteHandler(ctx context.Context, req *mcp.CallToolRequest, params suiteParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}

	s, err := suite.Load(h.resolve(params.Path))
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load suite: %v", err))
	}

	result, err := h.engine.Run(ctx, s, params.Cases)
	if result == nil {
		return errorResult(fmt.Sprintf("suite failed: %v", err))
	}

	// Save results for cli_inspect.
	if saveErr := h.store.Save(result.RunResult); saveErr != nil {
		h.logger.Warn("saving run", zap.String("run_id", result.RunResult.ID), zap.Error(saveErr))
	}

	text := formatSuite(result)
	if err != nil {
		text += fmt.Sprintf("\nInterrupted: %v\n", err)
	}
	return textResult(text)
}

func formatSuite(result *suite.Result) string {
	rr := result.RunResult
	var b strings.Builder

	if result.OK() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintf(&b, "Suite: %s (%s)\n", rr.Suite, rr.Summary())
	fmt.Fprintln(&b)

	if result.Aborted != "" {
		fmt.Fprintf(&b, "Aborted: %s\n", result.Aborted)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "Cases:")
	for _, c := range rr.Cases {
		if c.Message != "" && c.Status != report.Skipped {
			fmt.Fprintf(&b, "  %s: %s (%s)\n", c.Name, c.Status, c.Message)
		} else {
			fmt.Fprintf(&b, "  %s: %s\n", c.Name, c.Status)
		}
	}
	fmt.Fprintln(&b)

	for _, inv := range rr.Invocations {
		if inv.Phase == "teardown" && inv.Failed() {
			fmt.Fprintf(&b, "Teardown problem: %s\n", commandLine(inv))
		}
	}

	if !result.OK() {
		fmt.Fprintf(&b, "Inspect with cli_inspect(run_id=%q, case=\"<name>\").\n", rr.ID)
	} else {
		fmt.Fprintln(&b, "All cases passed.")
	}
	return b.String()
}
