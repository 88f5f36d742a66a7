package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/agentloom/loom"
	httpAdapter "github.com/agentloom/loom/internal/adapters/http"
	"github.com/agentloom/loom/internal/logging"
	"github.com/agentloom/loom/pkg/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve <config.yaml>",
	Short: "Serve a workflow over HTTP",
	Long:  `Starts a JSON API for the workflow: POST /runs executes it, GET /graph renders it, GET /metrics exposes Prometheus counters.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		verbose, _ := cmd.Flags().GetBool("verbose")

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		registry := prometheus.NewRegistry()
		sink := trace.Multi(
			trace.NewPrometheusSink(registry),
			trace.NewSlogSink(logger, trace.DefaultMasker()),
		)

		eng, err := loom.New(args[0], loom.WithLogger(logger), loom.WithTraceSink(sink))
		if err != nil {
			return err
		}
		defer eng.Close()

		r := chi.NewRouter()
		r.Mount("/", httpAdapter.NewHandler(eng))
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: r,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", srv.Addr, "definition", args[0])
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "8080", "Port to listen on")
}
