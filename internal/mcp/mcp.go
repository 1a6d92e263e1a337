// Package mcp provides the clicheck MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"path/filepath"
	"time"

	"github.com/deixis/clicheck"
	"github.com/deixis/clicheck/internal/config"
	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/runner"
	"github.com/deixis/clicheck/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *suite.Engine
	runner *runner.Runner // shared with engine; updated from client roots
	store  report.Store
	root   string // relative paths in tool arguments resolve here
	logger *zap.Logger
}

// NewServer creates an MCP server with all clicheck tools registered.
func NewServer(r *runner.Runner, store report.Store, root string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	if so.logger == nil {
		so.logger = zap.NewNop()
	}

	h := &handler{
		engine: &suite.Engine{Runner: r, Logger: so.logger},
		runner: r,
		store:  store,
		root:   root,
		logger: so.logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateRootFromClient(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "clicheck", Version: clicheck.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cli_run",
		Description: `Run one command and return its exit code, stdout and stderr.

Arguments are passed verbatim as an argument vector; no shell is involved.
A missing or non-executable binary is reported as a launch failure, distinct from any exit code.
The result is stored for drill-down via cli_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cli_suite",
		Description: `Run a YAML test suite against a command-line program.

Runs the preflight command, setup steps, each case in order and the teardown steps, and reports
pass, fail, error or skipped per case. Results are stored for drill-down via cli_inspect.`,
	}, h.suiteHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "cli_inspect",
		Description: `Drill into results from a cli_run or cli_suite run.

Use the run_id from the tool output. Give case to see every step of one suite case with full output.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the clicheck MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *zap.Logger
}

// WithLogger attaches a logger to the server and its suite engine.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// updateRootFromClient queries the client for MCP roots and, if a file
// root is returned, reloads the configuration from it and moves the
// runner there. This is called during session initialization, before any
// tool calls.
func (h *handler) updateRootFromClient(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	dir := u.Path

	loaded, err := config.Load(dir)
	if err != nil {
		h.logger.Warn("ignoring client root", zap.String("root", dir), zap.Error(err))
		return
	}
	cfg := loaded.Config

	h.runner.Dir = dir
	h.runner.Timeout = cfg.Timeout()
	h.runner.MaxOutput = cfg.MaxOutputBytes()
	h.runner.WaitDelay = cfg.WaitDelay()
	h.runner.Encoding = cfg.Encoding()
	h.root = dir
	h.logger.Info("using client root", zap.String("root", dir))
}

// resolve makes a tool path argument absolute.
func (h *handler) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.root, path)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
