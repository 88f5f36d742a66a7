package eval

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEvaluator compiles predicate expressions once and caches the programs.
// It is safe for concurrent use.
type CELEvaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELEvaluator builds an evaluator with the engine's condition variables
// declared as dynamic values.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("state", cel.DynType),
		cel.Variable("inputs", cel.DynType),
		cel.Variable("result", cel.DynType),
		cel.Variable("output", cel.DynType),
		cel.Variable("node", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("building cel environment: %w", err)
	}
	return &CELEvaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

// Evaluate compiles (or reuses) the expression and evaluates it against the
// given activation. The expression must yield a boolean.
func (e *CELEvaluator) Evaluate(expr string, ctx map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q evaluated to %T, want bool", expr, out.Value())
	}
	return b, nil
}

// Check compiles the expression without evaluating it, for validation.
func (e *CELEvaluator) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building program for %q: %w", expr, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
