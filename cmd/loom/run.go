package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentloom/loom"
	"github.com/agentloom/loom/internal/logging"
	"github.com/agentloom/loom/internal/runtime"
	"github.com/agentloom/loom/pkg/ports"
	"github.com/agentloom/loom/pkg/trace"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Execute a workflow and print its outputs as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputsFlag, _ := cmd.Flags().GetString("inputs")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		traceDir, _ := cmd.Flags().GetString("trace")
		verbose, _ := cmd.Flags().GetBool("verbose")

		inputs, err := parseInputs(inputsFlag)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		sink, closeSink, err := buildSink(traceDir, logger, verbose)
		if err != nil {
			return err
		}
		defer closeSink()

		var opts []loom.Option
		opts = append(opts, loom.WithLogger(logger))
		if sink != nil {
			opts = append(opts, loom.WithTraceSink(sink))
		}

		eng, err := loom.New(args[0], opts...)
		if err != nil {
			return err
		}
		defer eng.Close()

		var runOpts []runtime.RunOption
		if maxSteps > 0 {
			runOpts = append(runOpts, runtime.WithMaxSteps(maxSteps))
		}

		outputs, err := eng.Run(cmd.Context(), inputs, runOpts...)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("inputs", "", "Run inputs as inline JSON or @file.json")
	runCmd.Flags().Int("max-steps", 0, "Override the graph's step budget")
	runCmd.Flags().String("trace", "", "Directory for per-run JSONL trace files")
}

func parseInputs(flag string) (map[string]any, error) {
	if flag == "" {
		return map[string]any{}, nil
	}
	raw := []byte(flag)
	if strings.HasPrefix(flag, "@") {
		var err error
		raw, err = os.ReadFile(flag[1:])
		if err != nil {
			return nil, fmt.Errorf("reading inputs file: %w", err)
		}
	}
	var inputs map[string]any
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parsing inputs: %w", err)
	}
	return inputs, nil
}

func buildSink(traceDir string, logger *slog.Logger, verbose bool) (ports.TraceSink, func(), error) {
	masker := trace.DefaultMasker()

	var sinks []ports.TraceSink
	closeSink := func() {}
	if traceDir != "" {
		jsonl, err := trace.NewJSONLSink(traceDir, masker)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, jsonl)
		closeSink = func() { jsonl.Close() }
	}
	if verbose {
		sinks = append(sinks, trace.NewSlogSink(logger, masker))
	}
	if len(sinks) == 0 {
		return nil, closeSink, nil
	}
	return trace.Multi(sinks...), closeSink, nil
}
