package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Runtime executes precompiled render functions. It deliberately exposes no
// way to compile new template source: the type has no parse or compile
// surface, which is the "no eval" guarantee the edge artifact relies on.
type Runtime struct {
	partials map[string]RenderFunc
}

// NewRuntime creates an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{partials: make(map[string]RenderFunc)}
}

// Register adds a precompiled render function under its identifier.
func (rt *Runtime) Register(id string, fn RenderFunc) {
	rt.partials[id] = fn
}

// Partials returns the registered identifiers in sorted order.
func (rt *Runtime) Partials() []string {
	ids := make([]string, 0, len(rt.partials))
	for id := range rt.partials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Invoke renders a registered partial. Unknown identifiers are an error; the
// runtime never falls back to compiling anything.
func (rt *Runtime) Invoke(id string, data any) (string, error) {
	fn, ok := rt.partials[id]
	if !ok {
		return "", fmt.Errorf("no precompiled render function for %q", id)
	}
	return fn(data)
}

// RuntimeModule returns the generated source of the runtime-only engine
// module linked into the edge artifact in place of the full engine. It
// registers precompiled instruction programs and walks them; there is no
// parser and no eval in this module. The walker mirrors Program.Render.
func RuntimeModule() string {
	var b strings.Builder
	b.WriteString("// stencil runtime (precompiled-only; no template parser is linked)\n")
	b.WriteString("const __partials = Object.create(null);\n")
	b.WriteString("function registerPartial(id, fn) { __partials[id] = fn; }\n")
	b.WriteString("function invokePartial(id, data) {\n")
	b.WriteString("  const fn = __partials[id];\n")
	b.WriteString("  if (!fn) { throw new Error('no precompiled render function for ' + id); }\n")
	b.WriteString("  return fn(data);\n")
	b.WriteString("}\n")
	b.WriteString("function registerPrecompiled(id, program) {\n")
	b.WriteString("  registerPartial(id, (data) => renderProgram(program, data));\n")
	b.WriteString("}\n")
	b.WriteString("function lookupHelper(name) {\n")
	b.WriteString("  return typeof helpers === 'undefined' ? undefined : helpers[name];\n")
	b.WriteString("}\n")
	b.WriteString("function resolvePath(data, path) {\n")
	b.WriteString("  let v = data;\n")
	b.WriteString("  for (const key of path || []) {\n")
	b.WriteString("    if (v == null) { return undefined; }\n")
	b.WriteString("    v = v[key];\n")
	b.WriteString("  }\n")
	b.WriteString("  return v;\n")
	b.WriteString("}\n")
	b.WriteString("function truthy(v) {\n")
	b.WriteString("  if (v == null) { return false; }\n")
	b.WriteString("  if (Array.isArray(v)) { return v.length > 0; }\n")
	b.WriteString("  return Boolean(v);\n")
	b.WriteString("}\n")
	b.WriteString("function stringify(v) { return v == null ? '' : String(v); }\n")
	b.WriteString("function renderProgram(ops, data) {\n")
	b.WriteString("  let out = '';\n")
	b.WriteString("  for (const op of ops || []) {\n")
	b.WriteString("    switch (op.op) {\n")
	b.WriteString("      case 'text': out += op.text; break;\n")
	b.WriteString("      case 'var': out += stringify(resolvePath(data, op.path)); break;\n")
	b.WriteString("      case 'helper': {\n")
	b.WriteString("        const fn = lookupHelper(op.name);\n")
	b.WriteString("        const args = (op.args || []).map((a) => a.kind === 'path' ? resolvePath(data, a.path) : a.lit);\n")
	b.WriteString("        out += stringify(fn ? fn(...args) : '');\n")
	b.WriteString("        break;\n")
	b.WriteString("      }\n")
	b.WriteString("      case 'partial': out += invokePartial(op.id, data); break;\n")
	b.WriteString("      case 'if': out += renderProgram(truthy(resolvePath(data, op.path)) ? op.body : op.else, data); break;\n")
	b.WriteString("      case 'range': {\n")
	b.WriteString("        const items = resolvePath(data, op.path);\n")
	b.WriteString("        if (!Array.isArray(items) || items.length === 0) {\n")
	b.WriteString("          out += renderProgram(op.else, data);\n")
	b.WriteString("        } else {\n")
	b.WriteString("          for (const item of items) { out += renderProgram(op.body, item); }\n")
	b.WriteString("        }\n")
	b.WriteString("        break;\n")
	b.WriteString("      }\n")
	b.WriteString("    }\n")
	b.WriteString("  }\n")
	b.WriteString("  return out;\n")
	b.WriteString("}\n")
	return b.String()
}
