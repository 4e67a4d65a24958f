package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTheme creates a minimal valid theme checkout.
func newTheme(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "config.json", `{"name":"cornerstone","version":"1.2.0","settings":{"color":"blue"}}`)
	writeFile(t, root, "templates/pages/home.html", "<h1>{{.Title}}</h1>")
	return root
}

func TestLoad(t *testing.T) {
	t.Run("reads name and version", func(t *testing.T) {
		root := newTheme(t)

		th, err := Load(root)
		require.NoError(t, err)
		assert.Equal(t, "cornerstone", th.Name)
		assert.Equal(t, "1.2.0", th.Version)
		assert.Equal(t, "cornerstone-1.2.0", th.ArtifactName())
	})

	t.Run("missing config is an error", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})
}

func TestConfigSource(t *testing.T) {
	root := newTheme(t)
	writeFile(t, root, "schema.json", `[{"name":"colors"}]`)
	src := NewConfigSource(root)

	t.Run("raw config bytes are preserved exactly", func(t *testing.T) {
		raw, err := src.GetRawConfig()
		require.NoError(t, err)
		assert.Equal(t, `{"name":"cornerstone","version":"1.2.0","settings":{"color":"blue"}}`, string(raw))
	})

	t.Run("schema bytes are preserved exactly", func(t *testing.T) {
		schema, err := src.GetSchema()
		require.NoError(t, err)
		assert.Equal(t, `[{"name":"colors"}]`, string(schema))
	})

	t.Run("missing schema yields an empty document", func(t *testing.T) {
		other := newTheme(t)
		schema, err := NewConfigSource(other).GetSchema()
		require.NoError(t, err)
		assert.Equal(t, "[]", string(schema))
	})

	t.Run("parsed config and existence", func(t *testing.T) {
		cfg, err := src.GetConfig()
		require.NoError(t, err)
		assert.Equal(t, "cornerstone", cfg["name"])
		assert.True(t, src.ConfigExists())
		assert.False(t, NewConfigSource(t.TempDir()).ConfigExists())
	})
}

func TestTranslations(t *testing.T) {
	t.Run("assembles every locale file", func(t *testing.T) {
		root := newTheme(t)
		writeFile(t, root, "lang/en.json", `{"hello":"Hello"}`)
		writeFile(t, root, "lang/fr.json", `{"hello":"Bonjour"}`)

		table, err := Translations(root)
		require.NoError(t, err)
		require.Len(t, table, 2)
		assert.JSONEq(t, `{"hello":"Hello"}`, string(table["en"]))
		assert.JSONEq(t, `{"hello":"Bonjour"}`, string(table["fr"]))
	})

	t.Run("no lang directory means no translations", func(t *testing.T) {
		table, err := Translations(newTheme(t))
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("invalid translation JSON is an error", func(t *testing.T) {
		root := newTheme(t)
		writeFile(t, root, "lang/en.json", `{broken`)

		_, err := Translations(root)
		assert.Error(t, err)
	})
}

func TestValidator(t *testing.T) {
	t.Run("valid theme passes", func(t *testing.T) {
		th, err := Load(newTheme(t))
		require.NoError(t, err)
		assert.NoError(t, NewValidator().Validate(th))
	})

	t.Run("missing name, version, and templates are reported together", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "config.json", `{}`)
		th, err := Load(root)
		require.NoError(t, err)

		err = NewValidator().Validate(th)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Problems, 3)
	})
}

func TestSourceLoader(t *testing.T) {
	t.Run("inlines nested internal partials into one flat source", func(t *testing.T) {
		root := newTheme(t)
		writeFile(t, root, "templates/components/nav.html", "<nav>{{.Store}}</nav>")
		writeFile(t, root, "templates/pages/cart.html", "{{> components/nav}}<main/>")

		result, err := NewSourceLoader().Load(root, "pages/cart")
		require.NoError(t, err)

		keyed, ok := result.(map[string]string)
		require.True(t, ok, "loader returns the keyed object shape")
		assert.Equal(t, "<nav>{{.Store}}</nav><main/>", keyed["pages/cart"])
	})

	t.Run("external references are left as inclusions", func(t *testing.T) {
		root := newTheme(t)
		writeFile(t, root, "templates/pages/cart.html", "{{> external/widgets/templates/nav}}<main/>")

		result, err := NewSourceLoader().Load(root, "pages/cart")
		require.NoError(t, err)

		keyed := result.(map[string]string)
		assert.Contains(t, keyed["pages/cart"], "{{> external/widgets/templates/nav}}")
	})

	t.Run("cyclic partials fail instead of recursing forever", func(t *testing.T) {
		root := newTheme(t)
		writeFile(t, root, "templates/a.html", "{{> b}}")
		writeFile(t, root, "templates/b.html", "{{> a}}")

		_, err := NewSourceLoader().Load(root, "a")
		assert.Error(t, err)
	})
}
