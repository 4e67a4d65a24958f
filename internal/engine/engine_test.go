package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookernath/stencil-cli/internal/helpers"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return New(helpers.FullIndex(), opts)
}

func TestCompileAndRender(t *testing.T) {
	t.Run("renders fields and helper calls", func(t *testing.T) {
		e := newTestEngine(t, Options{})

		c, err := e.Compile("pages/home", `<h1>{{.Title}}</h1><p>{{add 1 2}}</p>`)
		require.NoError(t, err)

		out, err := c.Render(map[string]any{"Title": "Hi"})
		require.NoError(t, err)
		assert.Equal(t, "<h1>Hi</h1><p>3</p>", out)
	})

	t.Run("compiled partials can include one another", func(t *testing.T) {
		e := newTestEngine(t, Options{})

		_, err := e.Compile("components/nav", `<nav>{{.Store}}</nav>`)
		require.NoError(t, err)
		c, err := e.Compile("pages/home", `{{> components/nav}}<main/>`)
		require.NoError(t, err)

		out, err := c.Render(map[string]any{"Store": "acme"})
		require.NoError(t, err)
		assert.Equal(t, "<nav>acme</nav><main/>", out)
	})

	t.Run("syntax errors fail as CompileError naming the partial", func(t *testing.T) {
		e := newTestEngine(t, Options{})

		_, err := e.Compile("pages/broken", `{{if}}`)

		var cerr *CompileError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "pages/broken", cerr.Partial)
	})

	t.Run("prevent indentation strips leading whitespace from inclusion lines", func(t *testing.T) {
		e := newTestEngine(t, Options{PreventIndentation: true})

		_, err := e.Compile("components/item", `x`)
		require.NoError(t, err)
		c, err := e.Compile("pages/list", "<ul>\n    {{> components/item}}\n</ul>")
		require.NoError(t, err)

		out, err := c.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, "<ul>\nx\n</ul>", out)
	})

	t.Run("unknown helpers compile as late-bound lookups", func(t *testing.T) {
		e := newTestEngine(t, Options{KnownHelpersOnly: false})

		c, err := e.Compile("pages/home", `<p>{{frobnicate 1 2}}</p>`)
		require.NoError(t, err)

		// Unresolved at render time, the call yields an empty value.
		out, err := c.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, "<p></p>", out)
	})

	t.Run("known helpers only rejects unknown helper calls", func(t *testing.T) {
		e := newTestEngine(t, Options{
			KnownHelpers:     map[string]bool{"add": true},
			KnownHelpersOnly: true,
		})

		_, err := e.Compile("pages/home", `{{frobnicate 1}}`)

		var cerr *CompileError
		require.ErrorAs(t, err, &cerr)
	})
}

func TestRuntimeHasNoCompileSurface(t *testing.T) {
	rt := NewRuntime()
	rt.Register("pages/home", func(any) (string, error) { return "<h1/>", nil })

	out, err := rt.Invoke("pages/home", nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1/>", out)

	_, err = rt.Invoke("pages/unknown", nil)
	assert.Error(t, err)

	// The runtime must expose no way to compile new template text.
	type compiler interface {
		Compile(id, source string) (*Compiled, error)
	}
	_, canCompile := any(rt).(compiler)
	assert.False(t, canCompile, "runtime must not expose a compile capability")
}

func TestRuntimeModuleHasNoEval(t *testing.T) {
	src := RuntimeModule()
	assert.NotContains(t, src, "eval(")
	assert.NotContains(t, src, "new Function")
	assert.Contains(t, src, "invokePartial")
	assert.Contains(t, src, "function renderProgram(ops, data)")
}

func TestGenerateProgram(t *testing.T) {
	t.Run("precompiles text, vars, helpers, and inclusions", func(t *testing.T) {
		prog, err := GenerateProgram(`<h1>{{.Title}}</h1>{{toUpperCase .Store}}{{> components/nav}}`)
		require.NoError(t, err)
		require.Len(t, prog, 5)

		assert.Equal(t, Op{Kind: "text", Text: "<h1>"}, prog[0])
		assert.Equal(t, Op{Kind: "var", Path: []string{"Title"}}, prog[1])
		assert.Equal(t, Op{Kind: "text", Text: "</h1>"}, prog[2])
		assert.Equal(t, "helper", prog[3].Kind)
		assert.Equal(t, "toUpperCase", prog[3].Name)
		assert.Equal(t, Op{Kind: "partial", ID: "components/nav"}, prog[4])
	})

	t.Run("unterminated block is an error", func(t *testing.T) {
		_, err := GenerateProgram(`{{if .Show}}never closed`)
		assert.Error(t, err)
	})

	t.Run("stray end is an error", func(t *testing.T) {
		_, err := GenerateProgram(`{{end}}`)
		assert.Error(t, err)
	})
}

func TestProgramRender(t *testing.T) {
	reg := helpers.FullIndex()

	render := func(t *testing.T, source string, data any, invoke InvokeFunc) string {
		t.Helper()
		prog, err := GenerateProgram(source)
		require.NoError(t, err)
		out, err := prog.Render(data, reg, invoke)
		require.NoError(t, err)
		return out
	}

	t.Run("interpolates fields and helper calls", func(t *testing.T) {
		out := render(t, `<h1>{{.Title}}</h1><p>{{add 1 2}}</p>`, map[string]any{"Title": "Hi"}, nil)
		assert.Equal(t, "<h1>Hi</h1><p>3</p>", out)
	})

	t.Run("branches on if and else", func(t *testing.T) {
		source := `{{if .Show}}yes{{else}}no{{end}}`
		assert.Equal(t, "yes", render(t, source, map[string]any{"Show": true}, nil))
		assert.Equal(t, "no", render(t, source, map[string]any{"Show": false}, nil))
	})

	t.Run("ranges over items rebinding the data", func(t *testing.T) {
		data := map[string]any{"Items": []any{
			map[string]any{"Name": "a"},
			map[string]any{"Name": "b"},
		}}
		out := render(t, `{{range .Items}}[{{.Name}}]{{end}}`, data, nil)
		assert.Equal(t, "[a][b]", out)
	})

	t.Run("resolves partial ops through the invoker", func(t *testing.T) {
		invoke := func(id string, data any) (string, error) {
			assert.Equal(t, "components/nav", id)
			return "<nav/>", nil
		}
		out := render(t, `{{> components/nav}}<main/>`, nil, invoke)
		assert.Equal(t, "<nav/><main/>", out)
	})

	t.Run("matches the template engine's output", func(t *testing.T) {
		e := New(reg, Options{})
		source := `<p>{{toUpperCase .Store}}</p>`
		data := map[string]any{"Store": "acme"}

		c, err := e.Compile("pages/home", source)
		require.NoError(t, err)
		engineOut, err := c.Render(data)
		require.NoError(t, err)

		programOut, err := c.Program.Render(data, reg, nil)
		require.NoError(t, err)
		assert.Equal(t, engineOut, programOut)
	})
}

func TestSanitizeFuncName(t *testing.T) {
	assert.Equal(t, "pages_home", SanitizeFuncName("pages/home"))
	assert.Equal(t, "external_widgets_templates_nav", SanitizeFuncName("external/widgets/templates/nav"))
	assert.Equal(t, "a_b_c", SanitizeFuncName("a-b.c"))
}
