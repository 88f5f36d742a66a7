package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Retry is a fixed-backoff retry policy. Backoff is in seconds.
type Retry struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff     float64 `yaml:"backoff" mapstructure:"backoff"`
}

// Timeout is a wall-clock bound in seconds.
type Timeout struct {
	Seconds float64 `yaml:"seconds" mapstructure:"seconds"`
}

// Defaults apply to every node unless overridden on the node or its tool.
type Defaults struct {
	LLM     string   `yaml:"llm"`
	Temp    float64  `yaml:"temp"`
	Retry   *Retry   `yaml:"retry"`
	Timeout *Timeout `yaml:"timeout"`
}

// Meta is the top-level agent metadata.
type Meta struct {
	SchemaVersion int            `yaml:"schema_version"`
	Name          string         `yaml:"name"`
	Defaults      Defaults       `yaml:"defaults"`
	Providers     map[string]any `yaml:"providers"`
}

// State declares the run state's shape, initial values and merge strategy.
type State struct {
	Shape   map[string]any `yaml:"shape"`
	Reducer string         `yaml:"reducer"`
	Init    map[string]any `yaml:"init"`
}

// PromptTemplate holds the role sections of one prompt.
type PromptTemplate struct {
	System    string `yaml:"system"`
	User      string `yaml:"user"`
	Assistant string `yaml:"assistant"`
}

// Roles returns the non-empty role sections in the canonical order.
func (p PromptTemplate) Roles() map[string]string {
	roles := make(map[string]string, 3)
	if p.System != "" {
		roles["system"] = p.System
	}
	if p.User != "" {
		roles["user"] = p.User
	}
	if p.Assistant != "" {
		roles["assistant"] = p.Assistant
	}
	return roles
}

// Prompts holds reusable partials and the named templates.
type Prompts struct {
	Partials  map[string]string         `yaml:"partials"`
	Templates map[string]PromptTemplate `yaml:"templates"`
}

// Memory configures conversation history persistence.
type Memory struct {
	Enabled    bool           `yaml:"enabled"`
	Kind       string         `yaml:"kind"`
	DSN        string         `yaml:"dsn"`
	Path       string         `yaml:"path"`
	Namespace  string         `yaml:"namespace"`
	K          int            `yaml:"k"`
	SessionKey string         `yaml:"session_key"`
	Config     map[string]any `yaml:"config"`
}

// Tool declares a callable the graph's tool nodes may reference. Kind selects
// the binding: "http" and "mcp" are constructed from Config, "builtin" must
// be registered by the host program.
type Tool struct {
	ID      string         `yaml:"id"`
	Kind    string         `yaml:"kind"`
	Config  map[string]any `yaml:"config"`
	Retry   *Retry         `yaml:"retry"`
	Timeout *Timeout       `yaml:"timeout"`
}

// OnError declares a node's failure resolution.
type OnError struct {
	To     string `yaml:"to" mapstructure:"to"`
	Resume bool   `yaml:"resume" mapstructure:"resume"`
}

// Case is one router branch.
type Case struct {
	When string `yaml:"when" mapstructure:"when"`
	To   string `yaml:"to" mapstructure:"to"`
}

// MapDirectives mutate state after a node succeeds.
type MapDirectives struct {
	Set    map[string]any `yaml:"set" mapstructure:"set"`
	Merge  map[string]any `yaml:"merge" mapstructure:"merge"`
	Delete []string       `yaml:"delete" mapstructure:"delete"`
}

// Node is the union of all node kinds; Type discriminates which of the
// kind-specific fields apply. Unknown fields are rejected at decode time.
type Node struct {
	ID          string `mapstructure:"id"`
	Type        string `mapstructure:"type"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`

	Retry   *Retry         `mapstructure:"retry"`
	Timeout *Timeout       `mapstructure:"timeout"`
	OnError *OnError       `mapstructure:"on_error"`
	Map     *MapDirectives `mapstructure:"map"`

	Uses   string         `mapstructure:"uses"`
	Inputs map[string]any `mapstructure:"inputs"`

	Prompt string `mapstructure:"prompt"`

	Cases   []Case `mapstructure:"cases"`
	Default string `mapstructure:"default"`

	Body          string `mapstructure:"body"`
	Until         string `mapstructure:"until"`
	MaxIterations int    `mapstructure:"max_iterations"`

	Graph string `mapstructure:"graph"`
}

// UnmarshalYAML decodes the node through mapstructure so unknown keys are
// reported with the node's id instead of silently dropped.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      n,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		id, _ := raw["id"].(string)
		return fmt.Errorf("node %q: %w", id, err)
	}
	return nil
}

// Edge connects two nodes of the same graph, optionally guarded.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	When string `yaml:"when"`
}

// GraphDoc declares one graph: its contract (inputs/outputs), the nodes and
// edges, and run bounds.
type GraphDoc struct {
	Inputs   []string `yaml:"inputs"`
	Outputs  []string `yaml:"outputs"`
	Nodes    []Node   `yaml:"nodes"`
	Edges    []Edge   `yaml:"edges"`
	MaxSteps int      `yaml:"max_steps"`
	Timeout  *Timeout `yaml:"timeout"`
}

// Document is the root of the agent configuration.
type Document struct {
	Meta      Meta                `yaml:"meta"`
	State     State               `yaml:"state"`
	Prompts   Prompts             `yaml:"prompts"`
	Memory    *Memory             `yaml:"memory"`
	Tools     []Tool              `yaml:"tools"`
	Graph     GraphDoc            `yaml:"graph"`
	Subgraphs map[string]GraphDoc `yaml:"subgraphs"`
}
