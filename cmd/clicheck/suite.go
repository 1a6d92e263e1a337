package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/suite"
	"github.com/spf13/cobra"
)

type suiteOptions struct {
	json      bool
	verbose   bool
	cases     []string
	reportDir string
}

func newSuiteCmd(a *app) *cobra.Command {
	var opts suiteOptions
	cmd := &cobra.Command{
		Use:   "suite [flags] [FILE...]",
		Short: "Run YAML test suites",
		Long: `Run one or more YAML suites. Without arguments, the suites listed in .clicheck
are run. Exits 1 if any case did not pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(cmd.Context(), a, cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print the output of failing steps")
	cmd.Flags().StringArrayVar(&opts.cases, "case", nil, "run only the named case (repeatable)")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "also write each run as JSON into this directory")
	return cmd
}

func runSuites(ctx context.Context, a *app, out io.Writer, opts suiteOptions, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(paths) == 0 {
		paths = a.cfg.SuitePaths(a.root)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no suite files given and none configured in .clicheck")
	}

	r := a.cfg.Runner("")
	r.Logger = a.logger
	engine := &suite.Engine{Runner: r, Logger: a.logger}

	var store report.Store
	if opts.reportDir != "" {
		store = report.NewDiskStore(opts.reportDir)
	}

	failed := false
	for _, path := range paths {
		s, err := suite.Load(path)
		if err != nil {
			return err
		}
		res, runErr := engine.Run(ctx, s, opts.cases)
		if res == nil {
			return runErr
		}
		if store != nil {
			if err := store.Save(res.RunResult); err != nil {
				return err
			}
		}

		if opts.json {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.RunResult); err != nil {
				return err
			}
		} else {
			_, _ = io.WriteString(out, formatSuiteCLI(res, opts.verbose))
		}

		if runErr != nil {
			return runErr
		}
		if !res.OK() {
			failed = true
		}
	}

	if failed {
		return &exitError{Code: 1}
	}
	return nil
}

func formatSuiteCLI(result *suite.Result, verbose bool) string {
	rr := result.RunResult
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if result.OK() {
		w("ok    %s (%s)\n", rr.Suite, rr.Summary())
	} else {
		w("FAIL  %s (%s)\n", rr.Suite, rr.Summary())
	}
	if result.Aborted != "" {
		w("      %s\n", result.Aborted)
	}
	w("\n")

	for _, c := range rr.Cases {
		switch c.Status {
		case report.Pass:
			w("  %-24s ok\n", c.Name)
		case report.Fail:
			w("  %-24s FAIL  %s\n", c.Name, c.Message)
		case report.Error:
			w("  %-24s ERROR %s\n", c.Name, c.Message)
		case report.Skipped:
			w("  %-24s -\n", c.Name)
		}
		if verbose && c.Status != report.Pass && len(c.Steps) > 0 {
			last := c.Steps[len(c.Steps)-1]
			if last.Stdout != "" {
				w("%s\n", indent(last.Stdout))
			}
			if last.Stderr != "" {
				w("%s\n", indent(last.Stderr))
			}
		}
	}
	w("\n")
	return string(b)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "      " + l
	}
	return strings.Join(lines, "\n")
}
