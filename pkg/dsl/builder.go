package dsl

import (
	"github.com/agentloom/loom/pkg/config"
)

// Builder assembles an agent definition programmatically. Build produces the
// same validated document that loading YAML would.
type Builder struct {
	doc      config.Document
	root     *GraphBuilder
	subs     map[string]*GraphBuilder
	subOrder []string
}

// New creates a builder for a named agent.
func New(name string) *Builder {
	b := &Builder{subs: make(map[string]*GraphBuilder)}
	b.doc.Meta.Name = name
	b.root = &GraphBuilder{nodes: make(map[string]*NodeBuilder)}
	return b
}

// LLM sets the default model for llm nodes.
func (b *Builder) LLM(model string) *Builder {
	b.doc.Meta.Defaults.LLM = model
	return b
}

// Temperature sets the default sampling temperature.
func (b *Builder) Temperature(t float64) *Builder {
	b.doc.Meta.Defaults.Temp = t
	return b
}

// RetryDefaults sets the meta-level retry fallback.
func (b *Builder) RetryDefaults(maxAttempts int, backoffSeconds float64) *Builder {
	b.doc.Meta.Defaults.Retry = &config.Retry{MaxAttempts: maxAttempts, Backoff: backoffSeconds}
	return b
}

// TimeoutDefault sets the meta-level per-invocation timeout fallback.
func (b *Builder) TimeoutDefault(seconds float64) *Builder {
	b.doc.Meta.Defaults.Timeout = &config.Timeout{Seconds: seconds}
	return b
}

// Provider records a provider configuration entry under meta.
func (b *Builder) Provider(name string, settings map[string]any) *Builder {
	if b.doc.Meta.Providers == nil {
		b.doc.Meta.Providers = make(map[string]any)
	}
	b.doc.Meta.Providers[name] = settings
	return b
}

// Shape declares one state field and its type tag.
func (b *Builder) Shape(key, typeTag string) *Builder {
	if b.doc.State.Shape == nil {
		b.doc.State.Shape = make(map[string]any)
	}
	b.doc.State.Shape[key] = typeTag
	return b
}

// Init sets a state field's initial value. The field must also be declared
// via Shape.
func (b *Builder) Init(key string, value any) *Builder {
	if b.doc.State.Init == nil {
		b.doc.State.Init = make(map[string]any)
	}
	b.doc.State.Init[key] = value
	return b
}

// Reducer selects the state merge strategy ("deepmerge" or "replace").
func (b *Builder) Reducer(reducer string) *Builder {
	b.doc.State.Reducer = reducer
	return b
}

// Partial registers a reusable template fragment.
func (b *Builder) Partial(name, source string) *Builder {
	if b.doc.Prompts.Partials == nil {
		b.doc.Prompts.Partials = make(map[string]string)
	}
	b.doc.Prompts.Partials[name] = source
	return b
}

// Prompt declares a named prompt template.
func (b *Builder) Prompt(name string) *PromptBuilder {
	return &PromptBuilder{builder: b, name: name}
}

// Tool declares a callable tool.
func (b *Builder) Tool(id, kind string, cfg map[string]any) *ToolBuilder {
	b.doc.Tools = append(b.doc.Tools, config.Tool{ID: id, Kind: kind, Config: cfg})
	return &ToolBuilder{builder: b, index: len(b.doc.Tools) - 1}
}

// Memory enables conversation memory with the given settings.
func (b *Builder) Memory(m config.Memory) *Builder {
	m.Enabled = true
	b.doc.Memory = &m
	return b
}

// Graph returns the root graph's builder.
func (b *Builder) Graph() *GraphBuilder {
	return b.root
}

// Subgraph returns the named subgraph's builder, creating it on first use.
func (b *Builder) Subgraph(name string) *GraphBuilder {
	if g, ok := b.subs[name]; ok {
		return g
	}
	g := &GraphBuilder{nodes: make(map[string]*NodeBuilder)}
	b.subs[name] = g
	b.subOrder = append(b.subOrder, name)
	return g
}

// Build assembles the document, applies the standard defaults and validates
// it.
func (b *Builder) Build() (*config.Document, error) {
	doc := b.doc
	doc.Graph = b.root.graphDoc()
	if len(b.subOrder) > 0 {
		doc.Subgraphs = make(map[string]config.GraphDoc, len(b.subOrder))
		for _, name := range b.subOrder {
			doc.Subgraphs[name] = b.subs[name].graphDoc()
		}
	}
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PromptBuilder configures one prompt template's roles.
type PromptBuilder struct {
	builder *Builder
	name    string
}

func (p *PromptBuilder) set(mutate func(*config.PromptTemplate)) *PromptBuilder {
	if p.builder.doc.Prompts.Templates == nil {
		p.builder.doc.Prompts.Templates = make(map[string]config.PromptTemplate)
	}
	tpl := p.builder.doc.Prompts.Templates[p.name]
	mutate(&tpl)
	p.builder.doc.Prompts.Templates[p.name] = tpl
	return p
}

// System sets the system role source.
func (p *PromptBuilder) System(source string) *PromptBuilder {
	return p.set(func(t *config.PromptTemplate) { t.System = source })
}

// User sets the user role source.
func (p *PromptBuilder) User(source string) *PromptBuilder {
	return p.set(func(t *config.PromptTemplate) { t.User = source })
}

// Assistant sets the assistant role source.
func (p *PromptBuilder) Assistant(source string) *PromptBuilder {
	return p.set(func(t *config.PromptTemplate) { t.Assistant = source })
}

// ToolBuilder configures a declared tool's policies.
type ToolBuilder struct {
	builder *Builder
	index   int
}

// Retry sets the tool-level retry fallback.
func (t *ToolBuilder) Retry(maxAttempts int, backoffSeconds float64) *ToolBuilder {
	t.builder.doc.Tools[t.index].Retry = &config.Retry{MaxAttempts: maxAttempts, Backoff: backoffSeconds}
	return t
}

// Timeout sets the tool-level invocation timeout.
func (t *ToolBuilder) Timeout(seconds float64) *ToolBuilder {
	t.builder.doc.Tools[t.index].Timeout = &config.Timeout{Seconds: seconds}
	return t
}
