// Package engine wraps the template engine behind two deliberately separate
// surfaces: an ahead-of-time compiler used at build time, and a runtime that
// can only invoke already-compiled render functions. The edge artifact links
// against the runtime surface alone, so nothing it loads at request time can
// compile arbitrary template text.
package engine

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/bookernath/stencil-cli/internal/helpers"
)

// Options configures ahead-of-time compilation.
type Options struct {
	// PreventIndentation strips the leading indentation from partial
	// inclusion lines so nested partials do not inherit the whitespace of
	// their call site.
	PreventIndentation bool

	// KnownHelpers lists helper names known at compile time. With
	// KnownHelpersOnly false this table may be empty; helper calls still
	// compile as late-bound registry lookups.
	KnownHelpers map[string]bool

	// KnownHelpersOnly, when true, fails compilation of any helper call not
	// present in KnownHelpers instead of late-binding it.
	KnownHelpersOnly bool
}

// RenderFunc is a directly-invocable compiled render function.
type RenderFunc func(data any) (string, error)

// Compiled is the result of ahead-of-time compiling one partial.
type Compiled struct {
	// ID is the partial identifier the function was compiled from.
	ID string

	// Source is the flat, preprocessed template source that was compiled.
	Source string

	// Program is the precompiled instruction form embedded into the emitted
	// templates module; the edge runtime walks it instead of parsing Source.
	Program Program

	// Render invokes the compiled function.
	Render RenderFunc
}

// CompileError reports a per-partial compile failure. Compile errors are
// build-fatal: a missing render function at serve time is unrecoverable.
type CompileError struct {
	Partial string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling partial %q: %v", e.Partial, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// inclusionPattern matches a partial inclusion and captures its target
// identifier.
var inclusionPattern = regexp.MustCompile(`\{\{>\s*([^\s}]+)\s*\}\}`)

// indentedInclusion matches a partial inclusion preceded only by indentation
// on its line.
var indentedInclusion = regexp.MustCompile(`(?m)^[ \t]+(\{\{>)`)

// Engine compiles partials into a shared template set so that compiled
// partials can include one another by identifier.
type Engine struct {
	root     *template.Template
	registry *helpers.Registry
	opts     Options
	bound    map[string]bool
}

// New creates an Engine over the given helper registry.
func New(registry *helpers.Registry, opts Options) *Engine {
	e := &Engine{registry: registry, opts: opts, bound: make(map[string]bool)}
	e.root = template.New("")
	for _, name := range registry.Names() {
		e.bindHelper(name)
	}
	for name, known := range opts.KnownHelpers {
		if known {
			e.bindHelper(name)
		}
	}
	return e
}

// bindHelper installs a late-bound dispatcher for a helper name. The
// dispatcher resolves through the registry at render time rather than binding
// to a concrete function at compile time.
func (e *Engine) bindHelper(name string) {
	if e.bound[name] {
		return
	}
	e.bound[name] = true
	e.root.Funcs(template.FuncMap{name: func(args ...any) any {
		return e.registry.Call(name, args...)
	}})
}

// Compile ahead-of-time compiles one partial's flat source into a render
// function registered under its identifier.
func (e *Engine) Compile(id, source string) (*Compiled, error) {
	flat := source
	if e.opts.PreventIndentation {
		flat = indentedInclusion.ReplaceAllString(flat, "$1")
	}
	if e.opts.KnownHelpersOnly {
		if err := e.checkKnownHelpers(id, flat); err != nil {
			return nil, err
		}
	} else {
		// Helper calls the engine has never seen still compile: each unbound
		// name gets a late-bound registry dispatcher before parsing, so
		// resolution happens at render time, not here.
		for _, name := range helperCalls(flat) {
			e.bindHelper(name)
		}
	}
	// Rewrite partial inclusions to template invocations against the shared
	// set; the target identifier is preserved verbatim.
	converted := inclusionPattern.ReplaceAllString(flat, `{{template "$1" .}}`)

	tmpl, err := e.root.New(id).Parse(converted)
	if err != nil {
		return nil, &CompileError{Partial: id, Err: err}
	}
	program, err := GenerateProgram(flat)
	if err != nil {
		return nil, &CompileError{Partial: id, Err: err}
	}

	return &Compiled{
		ID:      id,
		Source:  flat,
		Program: program,
		Render: func(data any) (string, error) {
			var buf bytes.Buffer
			if execErr := tmpl.Execute(&buf, data); execErr != nil {
				return "", fmt.Errorf("rendering %q: %w", id, execErr)
			}
			return buf.String(), nil
		},
	}, nil
}

// checkKnownHelpers enforces KnownHelpersOnly: any helper call whose name is
// absent from the known-helper table fails compilation.
func (e *Engine) checkKnownHelpers(id, source string) error {
	for _, name := range helperCalls(source) {
		if !e.opts.KnownHelpers[name] {
			return &CompileError{Partial: id, Err: fmt.Errorf("unknown helper %q", name)}
		}
	}
	return nil
}

// helperCallPattern matches a bare helper invocation: an action whose first
// word is an identifier that is neither a field access nor a keyword.
var helperCallPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\b`)

var templateKeywords = map[string]bool{
	"if": true, "else": true, "end": true, "range": true, "with": true,
	"template": true, "define": true, "block": true,
}

func helperCalls(source string) []string {
	var names []string
	for _, m := range helperCallPattern.FindAllStringSubmatch(source, -1) {
		if !templateKeywords[m[1]] {
			names = append(names, m[1])
		}
	}
	return names
}

// SanitizeFuncName derives a generated-code function name from a partial
// identifier by replacing every non-alphanumeric character with an
// underscore. Uniqueness across an artifact is the caller's concern; two
// distinct identifiers can sanitize identically.
func SanitizeFuncName(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
