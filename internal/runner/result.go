package runner

import "time"

// Result holds the outcome of one command execution. It is never modified
// after Run returns it.
type Result struct {
	RunID     string        // unique identifier for this run
	Command   string        // executable as given by the caller
	Args      []string      // arguments, excluding the executable
	ExitCode  int           // process exit code; -1 if killed by a signal
	Stdout    string        // captured stdout, decoded (may be truncated)
	Stderr    string        // captured stderr, decoded (may be truncated)
	Duration  time.Duration // wall time from start to exit
	Truncated bool          // true if output exceeded the size cap
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	return r.Stdout + r.Stderr
}
