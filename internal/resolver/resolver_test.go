package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a file with parent directories under root.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolve(t *testing.T) {
	t.Run("internal identifiers are root-relative with extension stripped", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "templates/pages/home.html", "<h1>home</h1>")
		writeFile(t, root, "templates/components/nav.html", "<nav/>")

		set, err := New(root).Resolve()

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"pages/home", "components/nav"}, []string(set))
	})

	t.Run("collects every external reference, not only the first", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "templates/pages/home.html",
			`{{> external/widgets/templates/nav }}<p>x</p>{{> external/cards/templates/card }}`)
		writeFile(t, root, "node_modules/widgets/templates/nav.html", "<nav/>")
		writeFile(t, root, "node_modules/cards/templates/card.html", "<card/>")

		set, err := New(root).Resolve()

		require.NoError(t, err)
		assert.Contains(t, set, "external/widgets/templates/nav")
		assert.Contains(t, set, "external/cards/templates/card")
	})

	t.Run("external identifiers precede internal ones", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "templates/pages/home.html", `{{> external/widgets/templates/nav}}`)
		writeFile(t, root, "node_modules/widgets/templates/nav.html", "<nav/>")

		set, err := New(root).Resolve()

		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, "external/widgets/templates/nav", set[0])
		assert.Equal(t, "pages/home", set[1])
	})

	t.Run("deduplicates by final identifier", func(t *testing.T) {
		root := t.TempDir()
		// Two files reference the same external partial; the library itself
		// holds a second partial that is pulled in wholesale.
		writeFile(t, root, "templates/pages/home.html", `{{> external/widgets/templates/nav}}`)
		writeFile(t, root, "templates/pages/cart.html", `{{>external/widgets/templates/nav}}`)
		writeFile(t, root, "node_modules/widgets/templates/nav.html", "<nav/>")
		writeFile(t, root, "node_modules/widgets/templates/footer.html", "<footer/>")

		set, err := New(root).Resolve()

		require.NoError(t, err)
		seen := map[string]int{}
		for _, id := range set {
			seen[id]++
		}
		for id, count := range seen {
			assert.Equal(t, 1, count, "identifier %q appears more than once", id)
		}
		assert.Contains(t, set, "external/widgets/templates/nav")
		assert.Contains(t, set, "external/widgets/templates/footer")
	})

	t.Run("missing external library contributes zero partials", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "templates/pages/home.html", `{{> external/ghost/templates/widget}}`)

		set, err := New(root).Resolve()

		require.NoError(t, err)
		assert.Equal(t, PartialSet{"pages/home"}, set)
	})

	t.Run("unreadable root is a ResolutionError", func(t *testing.T) {
		root := t.TempDir()
		// No templates directory at all.
		_, err := New(root).Resolve()

		var rerr *ResolutionError
		require.ErrorAs(t, err, &rerr)
	})
}

func TestLibraryName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"external/widgets/templates/nav", "widgets", true},
		{"external/org/widgets/templates/deep/nav", "org/widgets", true},
		{"external/templates/nav", "", false},
		{"widgets/templates/nav", "", false},
		{"external/widgets", "", false},
	}
	for _, tt := range tests {
		got, ok := LibraryName(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestPartialPath(t *testing.T) {
	r := New("/theme")

	assert.Equal(t,
		filepath.Join("/theme", "templates", "pages", "home.html"),
		r.PartialPath("pages/home"))
	assert.Equal(t,
		filepath.Join("/theme", "node_modules", "widgets", "templates", "nav.html"),
		r.PartialPath("external/widgets/templates/nav"))
}
