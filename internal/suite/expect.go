package suite

import (
	"fmt"
	"strings"

	"github.com/deixis/clicheck/internal/runner"
)

// Expect lists the checks applied to a step's result. A zero Expect
// checks nothing.
type Expect struct {
	ExitCode       *int     `yaml:"exit_code"`
	StdoutContains []string `yaml:"stdout_contains"`
	StdoutLacks    []string `yaml:"stdout_lacks"`
	StderrContains []string `yaml:"stderr_contains"`
	OutputContains []string `yaml:"output_contains"` // stdout followed by stderr
}

// Check returns one message per unmet expectation.
func (x Expect) Check(res *runner.Result) []string {
	var failures []string
	if x.ExitCode != nil && res.ExitCode != *x.ExitCode {
		failures = append(failures, fmt.Sprintf("exit code %d, want %d", res.ExitCode, *x.ExitCode))
	}
	for _, s := range x.StdoutContains {
		if !strings.Contains(res.Stdout, s) {
			failures = append(failures, fmt.Sprintf("stdout does not contain %q", s))
		}
	}
	for _, s := range x.StdoutLacks {
		if strings.Contains(res.Stdout, s) {
			failures = append(failures, fmt.Sprintf("stdout contains %q", s))
		}
	}
	for _, s := range x.StderrContains {
		if !strings.Contains(res.Stderr, s) {
			failures = append(failures, fmt.Sprintf("stderr does not contain %q", s))
		}
	}
	output := res.Output()
	for _, s := range x.OutputContains {
		if !strings.Contains(output, s) {
			failures = append(failures, fmt.Sprintf("output does not contain %q", s))
		}
	}
	return failures
}
