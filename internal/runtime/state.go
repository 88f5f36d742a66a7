package runtime

import (
	"fmt"
	"sort"
	"strings"

	"dario.cat/mergo"

	"github.com/agentloom/loom/pkg/domain"
)

// StateSpec describes the declared shape of the root state container.
type StateSpec struct {
	Shape   map[string]any
	Init    map[string]any
	Reducer domain.Reducer
}

// State is the mutable key/value store threaded through one run. Exactly one
// node executes against it at a time, so no locking is required; subgraphs
// get their own fresh container.
type State struct {
	data    map[string]any
	reducer domain.Reducer
}

// NewState creates an empty container with the given reducer.
func NewState(reducer domain.Reducer) *State {
	if reducer == "" {
		reducer = domain.ReducerDeepMerge
	}
	return &State{data: make(map[string]any), reducer: reducer}
}

// SeedRoot initializes the root container: declared init values, every shape
// key defaulted to nil, then the declared graph inputs overlaid per the
// reducer. Inputs outside the declared shape are rejected; undeclared keys
// may still appear later through map directives.
func (s *State) SeedRoot(spec StateSpec, declared []string, inputs map[string]any) error {
	initial := make(map[string]any, len(spec.Init)+len(spec.Shape))
	for key, v := range spec.Init {
		initial[key] = cloneValue(v)
	}
	for key := range spec.Shape {
		if _, ok := initial[key]; !ok {
			initial[key] = nil
		}
	}

	var missing []string
	provided := make(map[string]any, len(declared))
	for _, name := range declared {
		v, ok := inputs[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if _, shaped := spec.Shape[name]; !shaped && spec.Shape != nil {
			return configErrorf(nil, "input %q is not declared in state.shape", name)
		}
		provided[name] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return configErrorf(nil, "missing required inputs: %s", strings.Join(missing, ", "))
	}

	if s.reducer == domain.ReducerDeepMerge {
		for key, v := range provided {
			initial[key] = deepMerge(initial[key], v)
		}
	} else {
		for key, v := range provided {
			initial[key] = cloneValue(v)
		}
	}
	s.data = initial
	return nil
}

// SeedFrom initializes a subgraph container from rendered inputs only. The
// parent's state is not visible inside the subgraph.
func (s *State) SeedFrom(values map[string]any) {
	s.data = make(map[string]any, len(values))
	for key, v := range values {
		s.data[key] = cloneValue(v)
	}
}

// Data returns the live backing map. Callers must treat it as read-only;
// all writes go through Apply.
func (s *State) Data() map[string]any { return s.data }

// Get resolves a dotted path against the container.
func (s *State) Get(path string) (any, bool) { return getPath(s.data, path) }

// Snapshot returns an independent deep copy of the container.
func (s *State) Snapshot() map[string]any {
	return cloneValue(s.data).(map[string]any)
}

// renderedMap is a MapOp with every directive already rendered.
type renderedMap struct {
	set    map[string]any
	merge  map[string]any
	delete []string
}

// Apply mutates the container with one directive bundle. The order is fixed
// and total: delete, then merge, then set. Applying set last makes it win
// over merge whenever both touch the same key.
func (s *State) Apply(m renderedMap) {
	for _, key := range m.delete {
		deletePath(s.data, key)
	}
	for key, fragment := range m.merge {
		if s.reducer == domain.ReducerDeepMerge {
			current, _ := getPath(s.data, key)
			setPath(s.data, key, deepMerge(current, fragment))
		} else {
			setPath(s.data, key, cloneValue(fragment))
		}
	}
	for key, value := range m.set {
		setPath(s.data, key, value)
	}
}

// deepMerge recursively combines mappings and concatenates sequences; on
// scalar conflicts the incoming value wins. Either side may be nil.
func deepMerge(base, incoming any) any {
	if base == nil {
		return cloneValue(incoming)
	}
	if incoming == nil {
		return cloneValue(base)
	}
	if bm, ok := base.(map[string]any); ok {
		if im, ok := incoming.(map[string]any); ok {
			dst := cloneValue(bm).(map[string]any)
			if err := mergo.Merge(&dst, im, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
				// mergo only fails on non-addressable destinations, which a
				// freshly cloned map never is.
				panic(fmt.Sprintf("state merge: %v", err))
			}
			return dst
		}
	}
	if bs, ok := base.([]any); ok {
		if is, ok := incoming.([]any); ok {
			out := make([]any, 0, len(bs)+len(is))
			out = append(out, bs...)
			out = append(out, is...)
			return out
		}
	}
	return cloneValue(incoming)
}

// cloneValue deep-copies the YAML/JSON-shaped value space: maps, slices and
// scalars. Unknown types are returned as-is.
func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// setPath writes through a dotted path, creating intermediate mappings as
// needed. A non-mapping intermediate is replaced by a fresh mapping.
func setPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func getPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
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

// deletePath removes a dotted path if present; absent keys are no-ops.
func deletePath(data map[string]any, path string) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}
