// Command clicheck runs command-line programs and checks their exit codes
// and output, one command at a time or from YAML suites.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deixis/clicheck"
	"github.com/deixis/clicheck/internal/config"
	"github.com/deixis/clicheck/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitError carries a process exit code out of a command. A nil Err exits
// silently with Code.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e == nil {
		return "command failed"
	}
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// exitInterrupted is the shell convention for a process stopped by SIGINT.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		_, _ = fmt.Fprintln(os.Stderr, "clicheck:", msg)
	}
	os.Exit(code)
}

// exitStatus maps an error returned by a command to the process exit code
// and the message to print, if any.
func exitStatus(err error) (int, string) {
	var coded *exitError
	switch {
	case errors.As(err, &coded):
		if coded.Err == nil {
			return coded.Code, ""
		}
		return coded.Code, coded.Err.Error()
	case errors.Is(err, context.Canceled):
		return exitInterrupted, err.Error()
	default:
		return 1, err.Error()
	}
}

// app holds state shared by all subcommands, set up before any of them runs.
type app struct {
	logLevel  string
	logFormat string

	cfg    *config.Config
	root   string
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "clicheck",
		Short:         "Run command-line programs and check what they did",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       clicheck.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from .clicheck, else warn)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log encoding: console or json")

	root.AddCommand(
		newRunCmd(a),
		newSuiteCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads .clicheck from the working directory and builds the logger.
// Flags override the file.
func (a *app) setup(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(wd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = loaded.Config
	a.root = loaded.Root

	logCfg := a.cfg.Log
	if cmd.Flags().Changed("log-level") {
		logCfg.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		logCfg.Encoding = a.logFormat
	}
	a.logger, err = logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clicheck version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), clicheck.Version)
			return err
		},
	}
}
