package runner

import (
	"io"
	"slices"
	"strings"
)

// Command describes one process to launch.
type Command struct {
	// Name is the executable path or name. Names without a path separator
	// are resolved via PATH.
	Name string
	// Args are passed verbatim, one token each. No shell is involved.
	Args []string
	// Stdin is written to the child's standard input, which is then closed.
	// Nil means the child reads from the null device.
	Stdin io.Reader
	// Dir overrides Runner.Dir when set.
	Dir string
	// Env is appended to the inherited environment (KEY=VALUE).
	Env []string
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command for logs. It is not shell-safe.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Input returns a reader over text, for use as Command.Stdin.
func Input(text string) io.Reader {
	return strings.NewReader(text)
}

// Template builds commands that share an executable and fixed flags, such
// as a client that always needs the same connection settings. The zero
// value is not useful; set Name.
type Template struct {
	Name     string
	Leading  []string // inserted before caller arguments
	Trailing []string // appended after caller arguments
	Env      []string
	Dir      string
}

// Command assembles Leading + args + Trailing into a new Command. Each call
// allocates its own argument slice, so commands never share backing arrays
// with the template or with each other.
func (t Template) Command(args ...string) Command {
	return Command{
		Name: t.Name,
		Args: slices.Concat(t.Leading, args, t.Trailing),
		Env:  slices.Clone(t.Env),
		Dir:  t.Dir,
	}
}

// WithTrailing returns a copy of t with extra trailing arguments.
func (t Template) WithTrailing(args ...string) Template {
	t.Trailing = slices.Concat(t.Trailing, args)
	return t
}

// WithLeading returns a copy of t with extra leading arguments.
func (t Template) WithLeading(args ...string) Template {
	t.Leading = slices.Concat(t.Leading, args)
	return t
}

// WithEnv returns a copy of t with extra environment entries.
func (t Template) WithEnv(env ...string) Template {
	t.Env = slices.Concat(t.Env, env)
	return t
}
