package eval

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Role is one named section of a prompt template.
type Role struct {
	Name   string
	Source string
}

// Prompt is a named multi-role template, typically declared in the prompts
// section of a graph document.
type Prompt struct {
	Name  string
	Roles []Role
}

// TemplateRenderer renders prompts and inline expressions with text/template
// plus the sprig function library. Named prompt roles are associated
// templates under "<prompt>/<role>", so a role body may include another via
// {{template "greeting/system" .}}.
type TemplateRenderer struct {
	root  *template.Template
	roles map[string][]string
}

// NewTemplateRenderer parses all partials and prompt roles up front; a
// malformed template fails construction rather than the first run that
// touches it. Partials are plain named templates a role body can include
// with {{template "name" .}}.
func NewTemplateRenderer(prompts []Prompt, partials map[string]string) (*TemplateRenderer, error) {
	root := template.New("prompts").Option("missingkey=error").Funcs(sprig.FuncMap())
	for name, source := range partials {
		if _, err := root.New(name).Parse(source); err != nil {
			return nil, fmt.Errorf("parsing partial %q: %w", name, err)
		}
	}
	roles := make(map[string][]string, len(prompts))
	for _, p := range prompts {
		if _, dup := roles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prompt %q", p.Name)
		}
		order := make([]string, 0, len(p.Roles))
		for _, r := range p.Roles {
			if _, err := root.New(p.Name + "/" + r.Name).Parse(r.Source); err != nil {
				return nil, fmt.Errorf("parsing prompt %q role %q: %w", p.Name, r.Name, err)
			}
			order = append(order, r.Name)
		}
		roles[p.Name] = order
	}
	return &TemplateRenderer{root: root, roles: roles}, nil
}

// Render renders one role of a named prompt.
func (r *TemplateRenderer) Render(name, role string, context map[string]any) (string, error) {
	if _, ok := r.roles[name]; !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := r.root.ExecuteTemplate(&buf, name+"/"+role, context); err != nil {
		return "", fmt.Errorf("rendering prompt %q role %q: %w", name, role, err)
	}
	return buf.String(), nil
}

// Roles lists the roles of a named prompt in declaration order.
func (r *TemplateRenderer) Roles(name string) ([]string, error) {
	order, ok := r.roles[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}
	return append([]string(nil), order...), nil
}

// RenderString renders an inline template source. A source with no template
// markers is returned verbatim without a parse.
func (r *TemplateRenderer) RenderString(source string, context map[string]any) (string, error) {
	if !hasTemplate(source) {
		return source, nil
	}
	tmpl, err := template.New("inline").Option("missingkey=error").Funcs(sprig.FuncMap()).Parse(source)
	if err != nil {
		return "", fmt.Errorf("parsing inline template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("rendering inline template: %w", err)
	}
	return buf.String(), nil
}

// RenderValue walks a structured payload and renders every string leaf. A
// leaf that is a single bare reference, like "{{ .state.user }}", resolves to
// the referenced value itself so mappings and lists survive the round trip.
func (r *TemplateRenderer) RenderValue(payload any, context map[string]any) (any, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case string:
		return r.renderLeaf(v, context)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			rendered, err := r.RenderValue(val, context)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			rendered, err := r.RenderValue(val, context)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *TemplateRenderer) renderLeaf(source string, context map[string]any) (any, error) {
	if !hasTemplate(source) {
		return source, nil
	}
	if path, ok := bareReference(source); ok {
		if v, found := lookupPath(context, path); found {
			return v, nil
		}
		return nil, fmt.Errorf("reference %q not found in context", source)
	}
	return r.RenderString(source, context)
}

func hasTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// bareReference reports whether the source is exactly one dotted field
// reference with no functions or pipelines, returning its path.
func bareReference(source string) ([]string, bool) {
	trimmed := strings.TrimSpace(source)
	if !strings.HasPrefix(trimmed, "{{") || !strings.HasSuffix(trimmed, "}}") {
		return nil, false
	}
	if strings.Count(trimmed, "{{") != 1 || strings.Count(trimmed, "}}") != 1 {
		return nil, false
	}
	inner := strings.TrimSpace(trimmed[2 : len(trimmed)-2])
	if !strings.HasPrefix(inner, ".") || strings.ContainsAny(inner, " |()\"") {
		return nil, false
	}
	var path []string
	for _, part := range strings.Split(inner[1:], ".") {
		if part == "" {
			return nil, false
		}
		path = append(path, part)
	}
	return path, len(path) > 0
}

func lookupPath(context map[string]any, path []string) (any, bool) {
	var current any = context
	for _, part := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
