// Package graph renders compiled graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentloom/loom/pkg/domain"
)

// Mermaid produces a flowchart of the graph. Node shapes follow kind:
// tool [[subroutine]], llm (rounded), router {diamond}, loop [/parallelogram/],
// subgraph ((circle)), noop [rectangle]. Router cases and loop bodies draw as
// labeled solid arrows, error redirects as dotted arrows.
func Mermaid(g *domain.Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := g.Nodes[id]
		safeID := sanitizeID(node.ID)
		opener, closer := shape(node.Kind)

		label := node.ID
		if node.Kind == domain.KindSubgraph {
			label = fmt.Sprintf("%s: %s", node.ID, node.Graph)
		}
		if node.Timeout > 0 {
			label = fmt.Sprintf("%s <br/> %s", label, node.Timeout)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, c := range node.Cases {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escapeLabel(c.When), sanitizeID(c.To)))
		}
		if node.Default != "" {
			sb.WriteString(fmt.Sprintf("    %s -- \"default\" --> %s\n", safeID, sanitizeID(node.Default)))
		}
		if node.Body != "" {
			sb.WriteString(fmt.Sprintf("    %s -- \"loop\" --> %s\n", safeID, sanitizeID(node.Body)))
		}
		if node.OnError != nil && node.OnError.To != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"on_error\" .-> %s\n", safeID, sanitizeID(node.OnError.To)))
		}
	}

	for _, edge := range g.Edges {
		from, to := sanitizeID(edge.From), sanitizeID(edge.To)
		if edge.When != "" {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, escapeLabel(edge.When), to))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
	}

	return sb.String()
}

func shape(kind domain.NodeKind) (string, string) {
	switch kind {
	case domain.KindTool:
		return "[[", "]]"
	case domain.KindLLM:
		return "(", ")"
	case domain.KindRouter:
		return "{", "}"
	case domain.KindLoop:
		return "[/", "/]"
	case domain.KindSubgraph:
		return "((", "))"
	default:
		return "[", "]"
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeID(id string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_")
	return replacer.Replace(id)
}
