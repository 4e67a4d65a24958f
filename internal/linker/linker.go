// Package linker produces the single self-contained entry script for the
// edge artifact. It substitutes data tokens into the entry-point source and
// resolves every import through an explicit module table that swaps dynamic
// dependencies for vetted static equivalents: the full template engine is
// replaced by a runtime-only module, and the helper index is replaced by a
// static module generated from the allow-list policy table.
package linker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bookernath/stencil-cli/internal/compiler"
	"github.com/bookernath/stencil-cli/internal/engine"
	"github.com/bookernath/stencil-cli/internal/helpers"
)

// Placeholder tokens the entry-point source template carries. Each appears
// exactly once by contract; substitution is a single order-independent pass.
const (
	TokenTranslations = "__TRANSLATIONS_DATA__"
	TokenSchema       = "__SCHEMA_DATA__"
	TokenConfig       = "__CONFIG_DATA__"
	TokenAPIURL       = "__API_URL__"
)

// Logical module names resolved through the interception table.
const (
	ModuleEngine    = "stencil-engine"
	ModuleHelpers   = "stencil-helpers"
	ModuleTemplates = "stencil-templates"
)

// LinkError indicates an unresolved import or other bundling failure. It is
// fatal: partial link output is never published.
type LinkError struct {
	Module string
	Err    error
}

func (e *LinkError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("linking: unresolved import %q", e.Module)
	}
	return fmt.Sprintf("linking: %v", e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// Substitutions carries the serialized data substituted for the entry
// source's placeholder tokens.
type Substitutions struct {
	Translations []byte
	Schema       []byte
	Config       []byte
	APIURL       string
}

// ModuleSource produces the generated source for a logical module name.
type ModuleSource func() (string, error)

// importPattern matches an import statement naming a logical module.
var importPattern = regexp.MustCompile(`(?m)^import\s+"([^"]+)";?\s*$`)

// Linker resolves imports through a module table. The zero table resolves
// nothing; NewLinker installs the standard interceptions.
type Linker struct {
	modules map[string]ModuleSource
}

// NewLinker builds a Linker with the standard module interceptions for an
// artifact: the runtime-only engine, the allow-listed helper index, and the
// artifact's precompiled template module.
func NewLinker(artifact *compiler.TemplateArtifact) *Linker {
	return &Linker{modules: map[string]ModuleSource{
		ModuleEngine: func() (string, error) {
			return engine.RuntimeModule(), nil
		},
		ModuleHelpers: func() (string, error) {
			return StaticHelpersModule()
		},
		ModuleTemplates: func() (string, error) {
			return artifact.EmitModule()
		},
	}}
}

// Redirect installs or replaces a module resolution.
func (l *Linker) Redirect(name string, src ModuleSource) {
	l.modules[name] = src
}

// Link substitutes the data tokens into the entry source, then inlines every
// imported module from the resolution table, producing one self-contained
// script. The artifact is sealed before linking begins.
func (l *Linker) Link(entry string, subs Substitutions, artifact *compiler.TemplateArtifact) (string, error) {
	artifact.Seal()

	script := entry
	for token, value := range map[string]string{
		TokenTranslations: string(subs.Translations),
		TokenSchema:       string(subs.Schema),
		TokenConfig:       string(subs.Config),
		TokenAPIURL:       subs.APIURL,
	} {
		script = strings.ReplaceAll(script, token, value)
	}

	var linkErr error
	script = importPattern.ReplaceAllStringFunc(script, func(stmt string) string {
		if linkErr != nil {
			return stmt
		}
		name := importPattern.FindStringSubmatch(stmt)[1]
		src, ok := l.modules[name]
		if !ok {
			linkErr = &LinkError{Module: name}
			return stmt
		}
		generated, err := src()
		if err != nil {
			linkErr = &LinkError{Module: name, Err: err}
			return stmt
		}
		return "// module: " + name + "\n" + generated
	})
	if linkErr != nil {
		return "", linkErr
	}
	return script, nil
}

// helperImpls are the static implementations emitted into the helper module,
// one per allow-listed helper. Each mirrors the behavior of the Go helper of
// the same name; an allow-listed name without an entry here fails the link.
var helperImpls = map[string]string{
	"add":         `(...args) => args.map(Number).reduce((a, b) => a + b, 0)`,
	"subtract":    `(...args) => args.map(Number).reduce((a, b) => a - b)`,
	"multiply":    `(...args) => args.map(Number).reduce((a, b) => a * b, 1)`,
	"concat":      `(...args) => args.map((a) => a == null ? '' : String(a)).join('')`,
	"join":        `(...args) => args.slice(0, -1).map(String).join(String(args[args.length - 1]))`,
	"toLowerCase": `(s) => String(s ?? '').toLowerCase()`,
	"toUpperCase": `(s) => String(s ?? '').toUpperCase()`,
	"first":       `(items) => Array.isArray(items) && items.length ? items[0] : null`,
	"last":        `(items) => Array.isArray(items) && items.length ? items[items.length - 1] : null`,
	"length":      `(items) => Array.isArray(items) ? items.length : String(items ?? '').length`,
}

// StaticHelpersModule generates the hand-curated helper module from the
// allow-list policy table. Only allow-listed names appear in the emitted
// helper table, each bound to its static implementation; anything else a
// group defines is left out of the artifact.
func StaticHelpersModule() (string, error) {
	registry, err := helpers.Allowed()
	if err != nil {
		return "", err
	}

	groupNames := make([]string, 0, len(helpers.AllowList))
	for group := range helpers.AllowList {
		groupNames = append(groupNames, group)
	}
	sort.Strings(groupNames)

	var b strings.Builder
	b.WriteString("// static helper index (allow-listed; generated)\n")
	b.WriteString("const helpers = Object.create(null);\n")
	for _, group := range groupNames {
		names := append([]string(nil), helpers.AllowList[group]...)
		sort.Strings(names)
		for _, name := range names {
			if !registry.Has(name) {
				return "", &LinkError{Err: fmt.Errorf("allow-listed helper %q missing from group %q", name, group)}
			}
			impl, ok := helperImpls[name]
			if !ok {
				return "", &LinkError{Err: fmt.Errorf("no static implementation for allow-listed helper %q in group %q", name, group)}
			}
			b.WriteString(fmt.Sprintf("helpers[%q] = %s;\n", name, impl))
		}
	}
	return b.String(), nil
}

// DefaultEntry is the entry-point source template the edge bundle links. It
// imports only intercepted modules and carries each placeholder token once.
const DefaultEntry = `import "stencil-engine";
import "stencil-helpers";
import "stencil-templates";

const translations = __TRANSLATIONS_DATA__;
const schema = __SCHEMA_DATA__;
const themeConfig = __CONFIG_DATA__;
const apiUrl = "__API_URL__";

export default {
  async fetch(request) {
    const page = new URL(request.url).pathname;
    return renderPage(page, { templates, helpers, translations, schema, themeConfig, apiUrl });
  },
};

function renderPage(page, ctx) {
  const id = page === "/" ? "pages/home" : "pages" + page;
  const fn = ctx.templates[id] || ctx.templates["pages/404"];
  if (!fn) {
    return new Response("not found", { status: 404 });
  }
  return new Response(fn(ctx), { headers: { "content-type": "text/html; charset=utf-8" } });
}
`
