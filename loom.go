package loom

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/agentloom/loom/internal/compiler"
	"github.com/agentloom/loom/internal/logging"
	"github.com/agentloom/loom/internal/runtime"
	"github.com/agentloom/loom/pkg/adapters/file"
	memadapter "github.com/agentloom/loom/pkg/adapters/memory"
	redisadapter "github.com/agentloom/loom/pkg/adapters/redis"
	"github.com/agentloom/loom/pkg/config"
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/eval"
	"github.com/agentloom/loom/pkg/memory"
	"github.com/agentloom/loom/pkg/memory/middleware"
	"github.com/agentloom/loom/pkg/ports"
	"github.com/agentloom/loom/pkg/providers/openai"
	"github.com/agentloom/loom/pkg/registry"
	"github.com/agentloom/loom/pkg/tools/httptool"
	"github.com/agentloom/loom/pkg/tools/mcptool"
)

// Engine is the high-level entry point: a compiled agent definition bound to
// its renderer, evaluator, tools, model client and memory, ready to run.
type Engine struct {
	doc     *config.Document
	graph   *domain.Graph
	rt      *runtime.Runtime
	closers []func() error
}

// Option configures engine construction.
type Option func(*builder)

type builder struct {
	logger     *slog.Logger
	sink       ports.TraceSink
	model      ports.ModelClient
	store      ports.MemoryStore
	builtins   map[string]ports.ToolFunc
	mcpCallers map[string]mcptool.Caller
}

// WithLogger sets the structured logger. The default writes to stderr at
// info level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithTraceSink attaches a trace sink to every run.
func WithTraceSink(sink ports.TraceSink) Option {
	return func(b *builder) { b.sink = sink }
}

// WithModelClient overrides the provider-configured model client.
func WithModelClient(client ports.ModelClient) Option {
	return func(b *builder) { b.model = client }
}

// WithBuiltin registers the callable behind a tool declared with kind
// "builtin". Construction fails if a declared builtin has no registration.
func WithBuiltin(id string, fn ports.ToolFunc) Option {
	return func(b *builder) { b.builtins[id] = fn }
}

// WithMemoryStore overrides the store selected by the memory section.
func WithMemoryStore(store ports.MemoryStore) Option {
	return func(b *builder) { b.store = store }
}

// WithMCPCaller binds an already-connected MCP client to a tool declared
// with kind "mcp", instead of spawning the configured command.
func WithMCPCaller(toolID string, caller mcptool.Caller) Option {
	return func(b *builder) { b.mcpCallers[toolID] = caller }
}

// New loads the YAML definition at path and builds an engine from it.
func New(path string, opts ...Option) (*Engine, error) {
	doc, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromDocument(doc, opts...)
}

// NewFromBytes builds an engine from an in-memory YAML definition.
func NewFromBytes(b []byte, opts ...Option) (*Engine, error) {
	doc, err := config.LoadBytes(b)
	if err != nil {
		return nil, err
	}
	return NewFromDocument(doc, opts...)
}

// NewFromDocument builds an engine from a loaded and validated document.
func NewFromDocument(doc *config.Document, opts ...Option) (*Engine, error) {
	b := &builder{
		builtins:   make(map[string]ports.ToolFunc),
		mcpCallers: make(map[string]mcptool.Caller),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.New(slog.LevelInfo)
	}

	artifacts := compiler.Compile(doc)

	renderer, err := eval.NewTemplateRenderer(artifacts.Prompts, artifacts.Partials)
	if err != nil {
		return nil, err
	}

	evaluator, err := eval.NewCELEvaluator()
	if err != nil {
		return nil, err
	}
	for _, expr := range doc.Predicates() {
		if err := evaluator.Check(expr); err != nil {
			return nil, err
		}
	}

	eng := &Engine{doc: doc, graph: artifacts.Graph}

	tools, err := eng.buildTools(doc, b)
	if err != nil {
		eng.Close()
		return nil, err
	}

	model := b.model
	if model == nil {
		model = modelFromProviders(doc.Meta.Providers)
	}

	mem, err := buildMemory(doc.Memory, b.store)
	if err != nil {
		eng.Close()
		return nil, err
	}

	eng.rt = &runtime.Runtime{
		Graph:     artifacts.Graph,
		Subgraphs: artifacts.Subgraphs,
		State:     artifacts.State,
		Renderer:  renderer,
		Evaluator: evaluator,
		Tools:     tools,
		Model:     model,
		Defaults:  artifacts.Defaults,
		Logger:    b.logger,
		Trace:     b.sink,
		Memory:    mem,
	}
	return eng, nil
}

// Run executes the graph with the given inputs and returns the declared
// outputs.
func (e *Engine) Run(ctx context.Context, inputs map[string]any, opts ...runtime.RunOption) (map[string]any, error) {
	return e.rt.Run(ctx, inputs, opts...)
}

// Graph returns the compiled root graph.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Document returns the definition the engine was built from.
func (e *Engine) Document() *config.Document {
	return e.doc
}

// Close releases resources acquired during construction, such as spawned MCP
// server processes.
func (e *Engine) Close() error {
	var first error
	for _, closeFn := range e.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

func (e *Engine) buildTools(doc *config.Document, b *builder) (*registry.Registry, error) {
	reg := registry.New()
	for _, tool := range doc.Tools {
		handle := &registry.Handle{
			ID:      tool.ID,
			Kind:    tool.Kind,
			Config:  tool.Config,
			Retry:   compiler.CompileRetry(tool.Retry),
			Timeout: compiler.CompileTimeout(tool.Timeout),
		}

		switch tool.Kind {
		case "http":
			handle.Func = httptool.New()
		case "mcp":
			fn, err := e.buildMCPTool(tool, b)
			if err != nil {
				return nil, err
			}
			handle.Func = fn
		case "builtin":
			fn, ok := b.builtins[tool.ID]
			if !ok {
				return nil, fmt.Errorf("builtin tool %q has no registered implementation", tool.ID)
			}
			handle.Func = fn
		default:
			return nil, fmt.Errorf("tool %q: unsupported kind %q", tool.ID, tool.Kind)
		}
		reg.Register(handle)
	}
	return reg, nil
}

func (e *Engine) buildMCPTool(tool config.Tool, b *builder) (ports.ToolFunc, error) {
	remoteName := stringValue(tool.Config, "tool")
	if remoteName == "" {
		remoteName = tool.ID
	}

	if caller, ok := b.mcpCallers[tool.ID]; ok {
		return mcptool.New(caller, remoteName), nil
	}

	command := stringValue(tool.Config, "command")
	if command == "" {
		return nil, fmt.Errorf("mcp tool %q: config.command is required", tool.ID)
	}
	caller, err := mcptool.Dial(context.Background(), command, envList(tool.Config), stringList(tool.Config, "args")...)
	if err != nil {
		return nil, fmt.Errorf("mcp tool %q: %w", tool.ID, err)
	}
	e.closers = append(e.closers, caller.Close)
	return mcptool.New(caller, remoteName), nil
}

func buildMemory(cfg *config.Memory, override ports.MemoryStore) (runtime.Memory, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	store := override
	if store == nil {
		var err error
		switch cfg.Kind {
		case "inmemory":
			store = memadapter.NewStore()
		case "redis":
			store, err = redisadapter.New(cfg.DSN)
		case "file":
			store, err = file.NewStore(cfg.Path)
		default:
			err = fmt.Errorf("memory: unsupported kind %q", cfg.Kind)
		}
		if err != nil {
			return nil, err
		}
	}

	store, err := wrapMemoryStore(store, cfg.Config)
	if err != nil {
		return nil, err
	}

	manager := memory.NewManager(store, cfg.Namespace, cfg.K)
	if cfg.SessionKey != "" {
		manager.SessionKey = cfg.SessionKey
	}
	return manager, nil
}

// wrapMemoryStore applies the optional at-rest middleware declared under
// memory.config: pii_patterns masks matches before persistence and
// encryption_key (base64, 32 bytes decoded) encrypts content. Masking runs
// before encryption so stored ciphertext never contains the raw match.
func wrapMemoryStore(store ports.MemoryStore, cfg map[string]any) (ports.MemoryStore, error) {
	var chain []middleware.Middleware

	if patterns := stringList(cfg, "pii_patterns"); len(patterns) > 0 {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("memory: pii pattern %q: %w", p, err)
			}
		}
		chain = append(chain, middleware.NewPIIMask(patterns))
	}

	if encoded := expandEnv(stringValue(cfg, "encryption_key")); encoded != "" {
		active, err := decodeMemoryKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("memory: encryption_key: %w", err)
		}
		var fallbacks [][]byte
		for _, raw := range stringList(cfg, "fallback_keys") {
			key, err := decodeMemoryKey(expandEnv(raw))
			if err != nil {
				return nil, fmt.Errorf("memory: fallback key: %w", err)
			}
			fallbacks = append(fallbacks, key)
		}
		chain = append(chain, middleware.NewEncryption(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}

	if len(chain) == 0 {
		return store, nil
	}
	return middleware.Chain(store, chain...), nil
}

func decodeMemoryKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("decoded key is %d bytes, want 32", len(key))
	}
	return key, nil
}

// modelFromProviders builds the OpenAI-compatible client from the "openai"
// provider entry. Secrets may reference the environment as ${ env.NAME }.
func modelFromProviders(providers map[string]any) ports.ModelClient {
	entry, ok := providers["openai"].(map[string]any)
	if !ok {
		return nil
	}
	var opts []openai.Option
	if key := expandEnv(stringValue(entry, "api_key")); key != "" {
		opts = append(opts, openai.WithAPIKey(key))
	}
	if base := expandEnv(stringValue(entry, "base_url")); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}
	return openai.New(opts...)
}

var envRef = regexp.MustCompile(`\$\{\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}`)

func expandEnv(value string) string {
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		name := envRef.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func stringValue(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// envList reads config.env as NAME=value pairs for a spawned MCP server.
func envList(m map[string]any) []string {
	return stringList(m, "env")
}
