package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer([]Prompt{
		{
			Name: "answer",
			Roles: []Role{
				{Name: "system", Source: "You answer about {{ .topic }}."},
				{Name: "user", Source: "Question: {{ .inputs.question }}"},
			},
		},
		{
			Name: "summary",
			Roles: []Role{
				{Name: "user", Source: `{{template "answer/system" .}} Summarize {{ .inputs.question | upper }}.`},
			},
		},
		{
			Name: "greeting",
			Roles: []Role{
				{Name: "system", Source: `{{template "persona" .}} Greet the user.`},
			},
		},
	}, map[string]string{
		"persona": "You are {{ .topic }} support.",
	})
	require.NoError(t, err)
	return r
}

func TestTemplateRendererRender(t *testing.T) {
	r := newTestRenderer(t)
	ctx := map[string]any{
		"topic":  "weather",
		"inputs": map[string]any{"question": "rain?"},
	}

	out, err := r.Render("answer", "system", ctx)
	require.NoError(t, err)
	assert.Equal(t, "You answer about weather.", out)

	out, err = r.Render("answer", "user", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Question: rain?", out)

	_, err = r.Render("missing", "user", ctx)
	assert.ErrorContains(t, err, "unknown prompt")
}

func TestTemplateRendererPartials(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render("summary", "user", map[string]any{
		"topic":  "news",
		"inputs": map[string]any{"question": "today"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You answer about news. Summarize TODAY.", out)

	out, err = r.Render("greeting", "system", map[string]any{"topic": "billing"})
	require.NoError(t, err)
	assert.Equal(t, "You are billing support. Greet the user.", out)
}

func TestTemplateRendererRoles(t *testing.T) {
	r := newTestRenderer(t)
	roles, err := r.Roles("answer")
	require.NoError(t, err)
	assert.Equal(t, []string{"system", "user"}, roles)

	_, err = r.Roles("nope")
	assert.Error(t, err)
}

func TestTemplateRendererRenderString(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.RenderString("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = r.RenderString("hello {{ .name }}", map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "hello ada", out)

	_, err = r.RenderString("{{ .missing }}", map[string]any{})
	assert.Error(t, err, "missingkey=error should reject absent keys")
}

func TestTemplateRendererRenderValue(t *testing.T) {
	r := newTestRenderer(t)
	ctx := map[string]any{
		"state": map[string]any{
			"user":  map[string]any{"name": "ada", "tags": []any{"a", "b"}},
			"count": 7,
		},
	}

	t.Run("bare reference preserves structure", func(t *testing.T) {
		v, err := r.RenderValue("{{ .state.user }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "ada", "tags": []any{"a", "b"}}, v)
	})

	t.Run("bare reference preserves scalars", func(t *testing.T) {
		v, err := r.RenderValue("{{ .state.count }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("interpolation yields strings", func(t *testing.T) {
		v, err := r.RenderValue("count={{ .state.count }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, "count=7", v)
	})

	t.Run("nested structures", func(t *testing.T) {
		v, err := r.RenderValue(map[string]any{
			"who":   "{{ .state.user.name }}",
			"fixed": 42,
			"list":  []any{"{{ .state.count }}", "x"},
		}, ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"who":   "ada",
			"fixed": 42,
			"list":  []any{7, "x"},
		}, v)
	})

	t.Run("missing bare reference errors", func(t *testing.T) {
		_, err := r.RenderValue("{{ .state.absent }}", ctx)
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("nil passes through", func(t *testing.T) {
		v, err := r.RenderValue(nil, ctx)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}
