// Package hivecli drives the Hive command-line client against an embedded
// Derby metastore, for integration tests of the hive binary.
package hivecli

import (
	"context"

	"github.com/deixis/clicheck/internal/runner"
)

// Binary is the Hive CLI executable, resolved on PATH.
const Binary = "hive"

// MetastoreConf returns the flags for an embedded Derby metastore that
// creates its schema on first use, so the CLI runs without an external
// database. Each call returns a new slice.
func MetastoreConf() []string {
	return []string{
		"--hiveconf", "datanucleus.schema.autoCreateAll=true",
		"--hiveconf", "hive.metastore.schema.verification=false",
		"--hiveconf", "javax.jdo.option.ConnectionURL=jdbc:derby:;databaseName=odpi_metastore_db;create=true",
	}
}

// Executor runs a command. Implemented by runner.Runner.
type Executor interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

// Client runs hive with the metastore settings appended to every call.
type Client struct {
	Runner   Executor
	Template runner.Template
}

// New returns a client for the hive binary on PATH.
func New(r Executor) *Client {
	return &Client{
		Runner:   r,
		Template: runner.Template{Name: Binary, Trailing: MetastoreConf()},
	}
}

// Exec runs hive with args followed by the metastore settings.
func (c *Client) Exec(ctx context.Context, args ...string) (*runner.Result, error) {
	return c.Runner.Run(ctx, c.Template.Command(args...))
}

// ExecInput is Exec with text written to hive's standard input.
func (c *Client) ExecInput(ctx context.Context, input string, args ...string) (*runner.Result, error) {
	cmd := c.Template.Command(args...)
	cmd.Stdin = runner.Input(input)
	return c.Runner.Run(ctx, cmd)
}

// Available reports whether the hive binary can be found. It runs
// `which hive` through the same runner as every other call.
func (c *Client) Available(ctx context.Context) bool {
	res, err := c.Runner.Run(ctx, runner.Command{Name: "which", Args: []string{c.Template.Name}})
	return err == nil && res.ExitCode == 0
}
