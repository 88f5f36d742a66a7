package ports

// Renderer produces strings and structured values from named templates.
// Implementations must be pure with respect to the supplied context: the
// engine calls them with {state, inputs, result} snapshots and relies on
// them never mutating those maps.
type Renderer interface {
	// Render renders the named template's role ("system", "user", ...).
	Render(name, role string, context map[string]any) (string, error)

	// Roles lists the roles a named template defines, in declaration order.
	Roles(name string) ([]string, error)

	// RenderString renders an inline template source.
	RenderString(source string, context map[string]any) (string, error)

	// RenderValue walks a structured payload (maps, slices, scalars) and
	// renders every string leaf. A leaf consisting of a single expression
	// yields the expression's structured value rather than its string form.
	RenderValue(payload any, context map[string]any) (any, error)
}

// Evaluator evaluates boolean routing predicates. Evaluation failures are
// configuration errors: the engine aborts the run rather than retrying.
type Evaluator interface {
	Evaluate(expr string, context map[string]any) (bool, error)
}
