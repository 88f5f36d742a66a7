package domain

// Reducer selects how values are combined when written into state.
type Reducer string

const (
	// ReducerDeepMerge recursively combines mappings and concatenates
	// sequences.
	ReducerDeepMerge Reducer = "deepmerge"
	// ReducerReplace substitutes each touched key's value outright.
	ReducerReplace Reducer = "replace"
)

// MapOp is a bundle of state mutation directives applied after a node
// succeeds. Directives are applied in a fixed total order:
// delete, then merge, then set — so set wins over merge on the same key.
type MapOp struct {
	Set    map[string]any `yaml:"set" mapstructure:"set"`
	Merge  map[string]any `yaml:"merge" mapstructure:"merge"`
	Delete []string       `yaml:"delete" mapstructure:"delete"`
}

// Empty reports whether the op carries no directives.
func (m *MapOp) Empty() bool {
	return m == nil || (len(m.Set) == 0 && len(m.Merge) == 0 && len(m.Delete) == 0)
}
