package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentloom/loom/pkg/config"
	"github.com/agentloom/loom/pkg/eval"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config.yaml>",
	Short: "Check a workflow definition for consistency",
	Long:  `Parses the definition, verifies node and tool references, cycle rules and subgraph wiring, and compiles every predicate.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.LoadFile(args[0])
		if err != nil {
			return err
		}

		evaluator, err := eval.NewCELEvaluator()
		if err != nil {
			return err
		}
		for _, expr := range doc.Predicates() {
			if err := evaluator.Check(expr); err != nil {
				return err
			}
		}

		fmt.Printf("%s: valid (%d nodes, %d tools)\n", args[0], len(doc.Graph.Nodes), len(doc.Tools))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
