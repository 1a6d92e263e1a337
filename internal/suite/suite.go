// Package suite runs declarative YAML test suites against a command-line
// program: a preflight check, setup steps, cases made of command
// invocations with expectations, and teardown steps that always run.
package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FixturesPlaceholder is replaced in step arguments and stdin with the
// directory holding the case's fixture files.
const FixturesPlaceholder = "{{fixtures}}"

// FixturesEnv names the environment variable that carries the fixture
// directory to the child process.
const FixturesEnv = "CLICHECK_FIXTURES"

// Suite is a parsed suite file.
type Suite struct {
	Name       string   `yaml:"name"`
	Command    string   `yaml:"command"`
	Require    []string `yaml:"require"`  // preflight argv; a nonzero exit skips every case
	Leading    []string `yaml:"leading"`  // before step args
	Trailing   []string `yaml:"trailing"` // after step args
	Env        []string `yaml:"env"`
	Dir        string   `yaml:"dir"` // relative to the suite file
	RawTimeout string   `yaml:"timeout"`
	Setup      []Step   `yaml:"setup"`
	Cases      []Case   `yaml:"cases"`
	Teardown   []Step   `yaml:"teardown"`

	// Path is the file the suite was loaded from, if any.
	Path    string `yaml:"-"`
	baseDir string
	timeout time.Duration
}

// Case is a named sequence of steps sharing a fixture directory.
type Case struct {
	Name     string            `yaml:"name"`
	Fixtures map[string]string `yaml:"fixtures"` // file name to content
	Steps    []Step            `yaml:"steps"`
}

// Step is one command invocation.
type Step struct {
	Name    string     `yaml:"name"`
	Command string     `yaml:"command"` // overrides the suite command; drops leading and trailing
	Args    []string   `yaml:"args"`
	Stdin   *string    `yaml:"stdin"`
	When    *Condition `yaml:"when"`
	Expect  Expect     `yaml:"expect"`
}

// Condition gates a step on the stdout of the most recent step in the
// case that had no condition itself. Exactly one field is set.
type Condition struct {
	StdoutContains string `yaml:"stdout_contains"`
	StdoutLacks    string `yaml:"stdout_lacks"`
}

func (c *Condition) holds(stdout string) bool {
	if c.StdoutContains != "" {
		return strings.Contains(stdout, c.StdoutContains)
	}
	return !strings.Contains(stdout, c.StdoutLacks)
}

func (c *Condition) String() string {
	if c.StdoutContains != "" {
		return fmt.Sprintf("stdout contains %q", c.StdoutContains)
	}
	return fmt.Sprintf("stdout lacks %q", c.StdoutLacks)
}

// Load reads and parses a suite file.
func Load(path string) (*Suite, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	s, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = abs
	return s, nil
}

// Parse parses a suite from YAML. Relative directories resolve against
// baseDir. Unknown keys are rejected.
func Parse(data []byte, baseDir string) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	s := &Suite{}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("parsing suite: %w", err)
	}
	s.baseDir = baseDir
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Timeout returns the per-step deadline, or 0 for none.
func (s *Suite) Timeout() time.Duration { return s.timeout }

// WorkDir returns the directory steps run in. Empty means the runner's
// default.
func (s *Suite) WorkDir() string {
	if s.Dir == "" || filepath.IsAbs(s.Dir) {
		return s.Dir
	}
	return filepath.Join(s.baseDir, s.Dir)
}

// CaseNames returns the case names in file order.
func (s *Suite) CaseNames() []string {
	names := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		names[i] = c.Name
	}
	return names
}

// Select returns the cases named in filter, in file order. An empty filter
// selects every case.
func (s *Suite) Select(filter []string) ([]Case, error) {
	if len(filter) == 0 {
		return s.Cases, nil
	}
	names := s.CaseNames()
	for _, f := range filter {
		if !slices.Contains(names, f) {
			return nil, fmt.Errorf("suite %s has no case %q", s.Name, f)
		}
	}
	var out []Case
	for _, c := range s.Cases {
		if slices.Contains(filter, c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Suite) validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite has no name")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %s has no cases", s.Name)
	}
	if s.RawTimeout != "" {
		d, err := time.ParseDuration(s.RawTimeout)
		if err != nil {
			return fmt.Errorf("suite %s: timeout: %w", s.Name, err)
		}
		if d < 0 {
			return fmt.Errorf("suite %s: timeout must not be negative", s.Name)
		}
		s.timeout = d
	}

	for i, st := range s.Setup {
		if err := s.validateStep(st, false); err != nil {
			return fmt.Errorf("setup step %d: %w", i+1, err)
		}
	}
	for i, st := range s.Teardown {
		if err := s.validateStep(st, false); err != nil {
			return fmt.Errorf("teardown step %d: %w", i+1, err)
		}
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate case %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Steps) == 0 {
			return fmt.Errorf("case %s has no steps", c.Name)
		}
		if c.Steps[0].When != nil {
			return fmt.Errorf("case %s: first step cannot have a condition", c.Name)
		}
		for j, st := range c.Steps {
			if err := s.validateStep(st, len(c.Fixtures) > 0); err != nil {
				return fmt.Errorf("case %s step %d: %w", c.Name, j+1, err)
			}
		}
	}
	return nil
}

func (s *Suite) validateStep(st Step, hasFixtures bool) error {
	if st.Command == "" && s.Command == "" {
		return fmt.Errorf("no command")
	}
	if st.When != nil && (st.When.StdoutContains == "") == (st.When.StdoutLacks == "") {
		return fmt.Errorf("when needs exactly one of stdout_contains or stdout_lacks")
	}
	if !hasFixtures {
		uses := slices.ContainsFunc(st.Args, func(a string) bool {
			return strings.Contains(a, FixturesPlaceholder)
		})
		if st.Stdin != nil && strings.Contains(*st.Stdin, FixturesPlaceholder) {
			uses = true
		}
		if uses {
			return fmt.Errorf("%s used without fixtures", FixturesPlaceholder)
		}
	}
	return nil
}
