package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/domain"
)

func TestSeedRootDefaultsAndInputs(t *testing.T) {
	spec := StateSpec{
		Shape: map[string]any{"query": "str", "findings": "list", "answer": "str"},
		Init:  map[string]any{"findings": []any{"seed"}},
	}

	s := NewState(domain.ReducerDeepMerge)
	err := s.SeedRoot(spec, []string{"query"}, map[string]any{"query": "go schedulers"})
	require.NoError(t, err)

	assert.Equal(t, "go schedulers", s.Data()["query"])
	assert.Equal(t, []any{"seed"}, s.Data()["findings"])
	answer, ok := s.Data()["answer"]
	assert.True(t, ok, "shape keys default to nil")
	assert.Nil(t, answer)
}

func TestSeedRootMissingInput(t *testing.T) {
	spec := StateSpec{Shape: map[string]any{"query": "str", "topic": "str"}}

	s := NewState(domain.ReducerDeepMerge)
	err := s.SeedRoot(spec, []string{"query", "topic"}, map[string]any{"query": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required inputs: topic")
}

func TestSeedRootRejectsUndeclaredInput(t *testing.T) {
	spec := StateSpec{Shape: map[string]any{"query": "str"}}

	s := NewState(domain.ReducerDeepMerge)
	err := s.SeedRoot(spec, []string{"rogue"}, map[string]any{"rogue": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `input "rogue" is not declared`)
}

func TestSeedRootDeepMergesInputsOverInit(t *testing.T) {
	spec := StateSpec{
		Shape: map[string]any{"profile": "dict"},
		Init:  map[string]any{"profile": map[string]any{"lang": "en", "tags": []any{"a"}}},
	}

	s := NewState(domain.ReducerDeepMerge)
	err := s.SeedRoot(spec, []string{"profile"}, map[string]any{
		"profile": map[string]any{"name": "ada", "tags": []any{"b"}},
	})
	require.NoError(t, err)

	profile := s.Data()["profile"].(map[string]any)
	assert.Equal(t, "en", profile["lang"])
	assert.Equal(t, "ada", profile["name"])
	assert.Equal(t, []any{"a", "b"}, profile["tags"])
}

func TestApplyOrderDeleteMergeSet(t *testing.T) {
	s := NewState(domain.ReducerDeepMerge)
	s.SeedFrom(map[string]any{
		"stale":  "old",
		"counts": map[string]any{"a": 1},
		"winner": "before",
	})

	s.Apply(renderedMap{
		delete: []string{"stale"},
		merge:  map[string]any{"counts": map[string]any{"b": 2}, "winner": "merged"},
		set:    map[string]any{"winner": "set"},
	})

	_, ok := s.Get("stale")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, s.Data()["counts"])
	assert.Equal(t, "set", s.Data()["winner"], "set applies after merge")
}

func TestApplyMergeConcatenatesLists(t *testing.T) {
	s := NewState(domain.ReducerDeepMerge)
	s.SeedFrom(map[string]any{"items": []any{1, 2}})

	s.Apply(renderedMap{merge: map[string]any{"items": []any{3}}})
	assert.Equal(t, []any{1, 2, 3}, s.Data()["items"])
}

func TestApplyReplaceReducerOverwrites(t *testing.T) {
	s := NewState(domain.ReducerReplace)
	s.SeedFrom(map[string]any{"profile": map[string]any{"lang": "en"}})

	s.Apply(renderedMap{merge: map[string]any{"profile": map[string]any{"name": "ada"}}})
	assert.Equal(t, map[string]any{"name": "ada"}, s.Data()["profile"])
}

func TestDottedPaths(t *testing.T) {
	s := NewState(domain.ReducerDeepMerge)
	s.SeedFrom(map[string]any{})

	s.Apply(renderedMap{set: map[string]any{"user.profile.name": "ada"}})
	v, ok := s.Get("user.profile.name")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	s.Apply(renderedMap{delete: []string{"user.profile.name"}})
	_, ok = s.Get("user.profile.name")
	assert.False(t, ok)
	_, ok = s.Get("user.profile")
	assert.True(t, ok, "delete removes only the leaf")
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewState(domain.ReducerDeepMerge)
	s.SeedFrom(map[string]any{"nested": map[string]any{"k": "v"}})

	snap := s.Snapshot()
	snap["nested"].(map[string]any)["k"] = "mutated"

	v, _ := s.Get("nested.k")
	assert.Equal(t, "v", v)
}

func TestDeepMergeScalarConflict(t *testing.T) {
	assert.Equal(t, 2, deepMerge(1, 2))
	assert.Equal(t, "b", deepMerge("a", "b"))
	assert.Equal(t, []any{1}, deepMerge(nil, []any{1}))
	assert.Equal(t, "kept", deepMerge("kept", nil))
}
