// Package report provides structured persistence and retrieval of
// command and suite run results. Results are stored as typed structs and
// can be queried by case.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/clicheck/internal/runner"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Run is a single command invocation.
	Run Kind = "run"
	// Suite is a suite run (setup, cases, teardown).
	Suite Kind = "suite"
)

// Status is the outcome of a case.
type Status string

const (
	Pass    Status = "pass"
	Fail    Status = "fail"    // an expectation did not hold
	Error   Status = "error"   // the command could not be run to completion
	Skipped Status = "skipped" // not run
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured output of a run.
type RunResult struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Suite    string        `json:"suite,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Cases is empty for single command runs.
	Cases []CaseReport `json:"cases,omitempty"`
	// Invocations holds commands run outside any case: the command of a
	// single run, or a suite's preflight, setup and teardown steps.
	Invocations []Invocation `json:"invocations,omitempty"`
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// CaseReport holds the outcome of one suite case.
type CaseReport struct {
	Name    string       `json:"name"`
	Status  Status       `json:"status"`
	Message string       `json:"message,omitempty"` // first failure or error
	Steps   []Invocation `json:"steps,omitempty"`
}

// Invocation records one command execution and what was checked on it.
type Invocation struct {
	Phase     string   `json:"phase,omitempty"` // require, setup, teardown; empty inside a case
	RunID     string   `json:"run_id,omitempty"`
	Command   string   `json:"command"`
	Args      []string `json:"args,omitempty"`
	ExitCode  int      `json:"exit_code"`
	Stdout    string   `json:"stdout,omitempty"`
	Stderr    string   `json:"stderr,omitempty"`
	Millis    int64    `json:"duration_ms"`
	Truncated bool     `json:"truncated,omitempty"`
	Skipped   bool     `json:"skipped,omitempty"` // its when condition did not hold
	Error     string   `json:"error,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

// Failed reports whether the invocation errored or broke an expectation.
func (i Invocation) Failed() bool {
	return i.Error != "" || len(i.Failures) > 0
}

// NewInvocation records the outcome of runner.Runner.Run. When err carries
// a partial result, its output is kept alongside the error.
func NewInvocation(c runner.Command, res *runner.Result, err error) Invocation {
	inv := Invocation{Command: c.Name, Args: c.Args, ExitCode: -1}
	if res == nil && err != nil {
		var ioErr *runner.IOError
		var timeoutErr *runner.TimeoutError
		switch {
		case errors.As(err, &ioErr):
			res = ioErr.Partial
		case errors.As(err, &timeoutErr):
			res = timeoutErr.Partial
		}
	}
	if res != nil {
		inv.RunID = res.RunID
		inv.ExitCode = res.ExitCode
		inv.Stdout = res.Stdout
		inv.Stderr = res.Stderr
		inv.Millis = res.Duration.Milliseconds()
		inv.Truncated = res.Truncated
	}
	if err != nil {
		inv.Error = err.Error()
	}
	return inv
}

// ByCase returns the named case of a suite run.
func ByCase(result *RunResult, name string) (*CaseReport, error) {
	for i := range result.Cases {
		if result.Cases[i].Name == name {
			return &result.Cases[i], nil
		}
	}
	return nil, fmt.Errorf("run %s has no case %q", result.ID, name)
}

// Summary counts case statuses.
type Summary struct {
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Error   int `json:"error"`
	Skipped int `json:"skipped"`
}

// Summary counts the statuses of all cases in r.
func (r *RunResult) Summary() Summary {
	var s Summary
	for _, c := range r.Cases {
		switch c.Status {
		case Pass:
			s.Pass++
		case Fail:
			s.Fail++
		case Error:
			s.Error++
		case Skipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether every case passed. Cases are only skipped when the
// preflight or setup failed, so a skip is not OK.
func (s Summary) OK() bool {
	return s.Fail == 0 && s.Error == 0 && s.Skipped == 0
}

func (s Summary) String() string {
	var parts []string
	for _, p := range []struct {
		n    int
		name string
	}{
		{s.Pass, "passed"},
		{s.Fail, "failed"},
		{s.Error, "errored"},
		{s.Skipped, "skipped"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.name))
		}
	}
	if len(parts) == 0 {
		return "no cases"
	}
	return strings.Join(parts, ", ")
}
