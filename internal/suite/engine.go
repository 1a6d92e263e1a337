package suite

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/deixis/clicheck/internal/fixture"
	"github.com/deixis/clicheck/internal/metrics"
	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTeardownTimeout bounds the teardown phase once the caller's
// context has been canceled.
const DefaultTeardownTimeout = 2 * time.Minute

// CommandRunner executes a single command.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

// Engine runs suites. Steps run strictly one after another.
type Engine struct {
	Runner CommandRunner
	Logger *zap.Logger

	// TeardownTimeout bounds teardown when the run was canceled.
	// Zero uses DefaultTeardownTimeout.
	TeardownTimeout time.Duration
}

// Result holds the full outcome of a suite run.
type Result struct {
	RunResult *report.RunResult
	// Aborted explains why cases were skipped, when preflight or setup
	// failed.
	Aborted string
}

// OK reports whether every selected case passed.
func (r *Result) OK() bool {
	return r.Aborted == "" && r.RunResult.Summary().OK()
}

// Run executes the preflight command, setup steps, the selected cases in
// order and the teardown steps. Teardown runs even when earlier phases
// failed or ctx was canceled. Case failures are reported in the Result,
// not as an error; Run returns an error only for an unknown case name or
// a canceled context, in which case the partial Result is still returned.
func (e *Engine) Run(ctx context.Context, s *Suite, filter []string) (*Result, error) {
	cases, err := s.Select(filter)
	if err != nil {
		return nil, err
	}

	log := e.logger().With(zap.String("suite", s.Name))
	rr := &report.RunResult{
		ID:      uuid.New().String(),
		Kind:    report.Suite,
		Suite:   s.Name,
		Started: time.Now(),
	}
	res := &Result{RunResult: rr}
	defer func() { rr.Duration = time.Since(rr.Started) }()

	if len(s.Require) > 0 {
		c := runner.Command{Name: s.Require[0], Args: slices.Clone(s.Require[1:]), Dir: s.WorkDir()}
		inv := e.invoke(ctx, s, c, Expect{ExitCode: new(int)})
		inv.Phase = "require"
		rr.Invocations = append(rr.Invocations, inv)
		if inv.Failed() {
			res.Aborted = fmt.Sprintf("preflight %s failed: %s", strings.Join(s.Require, " "), firstProblem(inv))
		}
	}

	if res.Aborted == "" {
		for i, st := range s.Setup {
			inv := e.invoke(ctx, s, s.command(st, nil), st.Expect)
			inv.Phase = "setup"
			rr.Invocations = append(rr.Invocations, inv)
			if inv.Failed() {
				res.Aborted = fmt.Sprintf("setup step %d failed: %s", i+1, firstProblem(inv))
				break
			}
		}
	}

	for _, c := range cases {
		var cr report.CaseReport
		switch {
		case res.Aborted != "":
			cr = report.CaseReport{Name: c.Name, Status: report.Skipped, Message: res.Aborted}
		case ctx.Err() != nil:
			cr = report.CaseReport{Name: c.Name, Status: report.Skipped, Message: ctx.Err().Error()}
		default:
			cr = e.runCase(ctx, s, c)
		}
		metrics.ObserveCase(string(cr.Status))
		log.Info("case finished",
			zap.String("case", cr.Name),
			zap.String("status", string(cr.Status)),
			zap.String("message", cr.Message),
		)
		rr.Cases = append(rr.Cases, cr)
	}

	e.teardown(ctx, s, rr)

	if res.Aborted != "" {
		log.Warn("suite aborted", zap.String("reason", res.Aborted))
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("suite %s: %w", s.Name, err)
	}
	return res, nil
}

func (e *Engine) teardown(ctx context.Context, s *Suite, rr *report.RunResult) {
	if len(s.Teardown) == 0 {
		return
	}
	if ctx.Err() != nil {
		timeout := e.TeardownTimeout
		if timeout <= 0 {
			timeout = DefaultTeardownTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
	}
	for _, st := range s.Teardown {
		inv := e.invoke(ctx, s, s.command(st, nil), st.Expect)
		inv.Phase = "teardown"
		if inv.Failed() {
			e.logger().Warn("teardown step failed",
				zap.String("suite", s.Name),
				zap.String("command", inv.Command),
				zap.String("problem", firstProblem(inv)),
			)
		}
		rr.Invocations = append(rr.Invocations, inv)
	}
}

// runCase runs the steps of one case until the first error or unmet
// expectation. Its fixtures are removed on every exit path.
func (e *Engine) runCase(ctx context.Context, s *Suite, c Case) report.CaseReport {
	cr := report.CaseReport{Name: c.Name, Status: report.Pass}

	var fx *fixture.Set
	if len(c.Fixtures) > 0 {
		var err error
		fx, err = fixture.Create(c.Fixtures)
		if err != nil {
			cr.Status = report.Error
			cr.Message = err.Error()
			return cr
		}
		defer func() {
			if err := fx.Close(); err != nil {
				e.logger().Warn("removing fixtures", zap.String("case", c.Name), zap.Error(err))
			}
		}()
	}

	var anchor string // stdout of the last unconditional step
	for i, st := range c.Steps {
		cmd := s.command(st, fx)
		if st.When != nil && !st.When.holds(anchor) {
			cr.Steps = append(cr.Steps, report.Invocation{Command: cmd.Name, Args: cmd.Args, Skipped: true})
			continue
		}

		inv := e.invoke(ctx, s, cmd, st.Expect)
		cr.Steps = append(cr.Steps, inv)
		if st.When == nil {
			anchor = inv.Stdout
		}

		switch {
		case inv.Error != "":
			cr.Status = report.Error
			cr.Message = fmt.Sprintf("%s: %s", stepLabel(i, st), inv.Error)
			return cr
		case len(inv.Failures) > 0:
			cr.Status = report.Fail
			cr.Message = fmt.Sprintf("%s: %s", stepLabel(i, st), strings.Join(inv.Failures, "; "))
			return cr
		}
	}
	return cr
}

// invoke runs c, applying the suite's per-step timeout, and checks want
// against the result.
func (e *Engine) invoke(ctx context.Context, s *Suite, c runner.Command, want Expect) report.Invocation {
	if d := s.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	res, err := e.Runner.Run(ctx, c)
	inv := report.NewInvocation(c, res, err)
	if err == nil {
		inv.Failures = want.Check(res)
	}
	return inv
}

// command builds the invocation for st. Steps with their own command skip
// the suite's leading and trailing arguments.
func (s *Suite) command(st Step, fx *fixture.Set) runner.Command {
	args := st.Args
	var stdin *string
	if st.Stdin != nil {
		v := *st.Stdin
		stdin = &v
	}
	env := slices.Clone(s.Env)

	if fx != nil {
		args = make([]string, len(st.Args))
		for i, a := range st.Args {
			args[i] = strings.ReplaceAll(a, FixturesPlaceholder, fx.Dir())
		}
		if stdin != nil {
			*stdin = strings.ReplaceAll(*stdin, FixturesPlaceholder, fx.Dir())
		}
		env = append(env, FixturesEnv+"="+fx.Dir())
	}

	var c runner.Command
	if st.Command != "" {
		c = runner.Command{Name: st.Command, Args: slices.Clone(args), Env: env, Dir: s.WorkDir()}
	} else {
		tmpl := runner.Template{
			Name:     s.Command,
			Leading:  s.Leading,
			Trailing: s.Trailing,
			Env:      env,
			Dir:      s.WorkDir(),
		}
		c = tmpl.Command(args...)
	}
	if stdin != nil {
		c.Stdin = runner.Input(*stdin)
	}
	return c
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func stepLabel(i int, st Step) string {
	if st.Name != "" {
		return fmt.Sprintf("step %d (%s)", i+1, st.Name)
	}
	return fmt.Sprintf("step %d", i+1)
}

func firstProblem(inv report.Invocation) string {
	if inv.Error != "" {
		return inv.Error
	}
	if len(inv.Failures) > 0 {
		return inv.Failures[0]
	}
	return ""
}
