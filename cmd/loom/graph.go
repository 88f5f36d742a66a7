package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentloom/loom/internal/compiler"
	"github.com/agentloom/loom/internal/presentation/graph"
	"github.com/agentloom/loom/pkg/config"
)

var graphCmd = &cobra.Command{
	Use:   "graph <config.yaml>",
	Short: "Render the compiled graph as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.LoadFile(args[0])
		if err != nil {
			return err
		}
		artifacts := compiler.Compile(doc)

		subgraph, _ := cmd.Flags().GetString("subgraph")
		g := artifacts.Graph
		if subgraph != "" {
			sub, ok := artifacts.Subgraphs[subgraph]
			if !ok {
				return fmt.Errorf("unknown subgraph %q", subgraph)
			}
			g = sub
		}

		fmt.Print(graph.Mermaid(g))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("subgraph", "", "Render a named subgraph instead of the root graph")
}
