package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	climcp "github.com/deixis/clicheck/internal/mcp"
	"github.com/deixis/clicheck/internal/metrics"
	"github.com/deixis/clicheck/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cachedRuns is how many recent results the server keeps in memory.
const cachedRuns = 16

func newMCPCmd(a *app) *cobra.Command {
	var (
		httpAddr     string
		instructions bool
		reportDir    string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio, or over HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				_, err := fmt.Fprint(cmd.OutOrStdout(), climcp.Instructions)
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return serve(ctx, a, httpAddr, reportDir)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :9090), with /metrics")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory for stored runs (default: a temp directory)")
	return cmd
}

func serve(ctx context.Context, a *app, httpAddr, reportDir string) error {
	store := report.NewLRUStore(cachedRuns, report.NewDiskStore(reportDir))

	r := a.cfg.Runner(a.root)
	r.Logger = a.logger

	server := climcp.NewServer(r, store, a.root, climcp.WithLogger(a.logger))

	if httpAddr != "" {
		return serveHTTP(ctx, a.logger, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, log *zap.Logger, server *mcpsdk.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
