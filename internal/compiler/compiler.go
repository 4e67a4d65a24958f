// Package compiler ahead-of-time compiles a resolved partial set into a
// TemplateArtifact: a map from partial identifier to a directly-invocable
// render function plus the generated-code module the linker embeds.
package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bookernath/stencil-cli/internal/engine"
	"github.com/bookernath/stencil-cli/internal/helpers"
	"github.com/bookernath/stencil-cli/internal/output"
	"github.com/bookernath/stencil-cli/internal/resolver"
	"github.com/bookernath/stencil-cli/internal/theme"
)

// compileWorkers bounds the per-partial compile fan-out. Each compilation
// writes only its own artifact entry; results are merged after the join.
const compileWorkers = 8

// TemplateArtifact maps partial identifiers to compiled render functions.
// It is populated entry-by-entry by the compiler and sealed before linking.
type TemplateArtifact struct {
	order   []string
	entries map[string]*engine.Compiled
	exports map[string]string
	sealed  bool
	mu      sync.Mutex
}

// Identifiers returns the partial identifiers in artifact order (external
// entries before internal ones, as produced by the resolver).
func (a *TemplateArtifact) Identifiers() []string {
	return append([]string(nil), a.order...)
}

// Exports returns the export table mapping each partial identifier to its
// generated function name.
func (a *TemplateArtifact) Exports() map[string]string {
	table := make(map[string]string, len(a.exports))
	for id, fn := range a.exports {
		table[id] = fn
	}
	return table
}

// Render invokes the compiled render function for a partial.
func (a *TemplateArtifact) Render(id string, data any) (string, error) {
	c, ok := a.entries[id]
	if !ok {
		return "", fmt.Errorf("no compiled partial %q", id)
	}
	return c.Render(data)
}

// ProgramFor returns the precompiled instruction program for a partial. This
// is the exact program the emitted module registers for the identifier.
func (a *TemplateArtifact) ProgramFor(id string) (engine.Program, bool) {
	c, ok := a.entries[id]
	if !ok {
		return nil, false
	}
	return c.Program, true
}

// Seal marks the artifact immutable. The link stage seals the artifact
// before consuming it; later registration attempts panic.
func (a *TemplateArtifact) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
}

func (a *TemplateArtifact) register(id, funcName string, c *engine.Compiled) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		panic("register on sealed template artifact")
	}
	a.entries[id] = c
	a.exports[id] = funcName
}

// EmitModule renders the artifact's generated-code form. Each partial
// registers its precompiled instruction program, which the runtime walks to
// render; the exported functions are thin invokers over that registration, so
// they are never registered as the partial themselves. The export table maps
// the original identifiers to the invoker functions.
func (a *TemplateArtifact) EmitModule() (string, error) {
	var b strings.Builder
	b.WriteString("// precompiled templates (generated; do not edit)\n")
	for _, id := range a.order {
		fn := a.exports[id]
		program, err := json.Marshal(a.entries[id].Program)
		if err != nil {
			return "", fmt.Errorf("encoding program for %q: %w", id, err)
		}
		b.WriteString(fmt.Sprintf("registerPrecompiled(%s, %s);\n", strconv.Quote(id), program))
		b.WriteString(fmt.Sprintf("function %s(data) { return invokePartial(%s, data); }\n", fn, strconv.Quote(id)))
	}
	b.WriteString("const templates = {\n")
	for _, id := range a.order {
		b.WriteString(fmt.Sprintf("  %s: %s,\n", strconv.Quote(id), a.exports[id]))
	}
	b.WriteString("};\n")
	return b.String(), nil
}

// Compiler turns a partial set into a TemplateArtifact.
type Compiler struct {
	// ThemeRoot locates partial files through the resolver's path mapping.
	ThemeRoot string

	// Loader assembles each partial's flat source.
	Loader theme.SourceLoader

	// Registry supplies late-bound helper dispatch. Defaults to the full
	// helper index; the allow-list applies at link time.
	Registry *helpers.Registry
}

// Compile compiles every partial in the set. The engine runs with
// indentation prevention on and an empty known-helper table with
// KnownHelpersOnly off, so helper calls late-bind through the registry.
//
// Any per-partial failure aborts the remaining build: the failing identifier
// is logged and a CompileError is returned.
func (c *Compiler) Compile(ctx context.Context, set resolver.PartialSet) (*TemplateArtifact, error) {
	registry := c.Registry
	if registry == nil {
		registry = helpers.FullIndex()
	}
	eng := engine.New(registry, engine.Options{
		PreventIndentation: true,
		KnownHelpers:       map[string]bool{},
		KnownHelpersOnly:   false,
	})

	artifact := &TemplateArtifact{
		order:   append([]string(nil), set...),
		entries: make(map[string]*engine.Compiled, len(set)),
		exports: make(map[string]string, len(set)),
	}
	funcNames := assignFuncNames(set)

	sources := make(map[string]string, len(set))
	var mu sync.Mutex

	// Loading the flat sources fans out; compilation itself goes through the
	// shared engine template set sequentially afterwards.
	work := make(chan string)
	var wg sync.WaitGroup
	var loadErrs []*engine.CompileError
	for i := 0; i < compileWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				flat, err := c.loadSource(id)
				mu.Lock()
				if err != nil {
					loadErrs = append(loadErrs, &engine.CompileError{Partial: id, Err: err})
				} else {
					sources[id] = flat
				}
				mu.Unlock()
			}
		}()
	}
	for _, id := range set {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return nil, ctx.Err()
		case work <- id:
		}
	}
	close(work)
	wg.Wait()

	if len(loadErrs) > 0 {
		sort.Slice(loadErrs, func(i, j int) bool { return loadErrs[i].Partial < loadErrs[j].Partial })
		output.Error("template compilation failed", "partial", loadErrs[0].Partial)
		return nil, loadErrs[0]
	}

	for _, id := range set {
		compiled, err := eng.Compile(id, sources[id])
		if err != nil {
			output.Error("template compilation failed", "partial", id)
			return nil, err
		}
		artifact.register(id, funcNames[id], compiled)
	}

	return artifact, nil
}

// loadSource fetches a partial's flat source, accepting both loader return
// shapes: a plain string or an object keyed by the partial's own identifier.
func (c *Compiler) loadSource(id string) (string, error) {
	result, err := c.Loader.Load(c.ThemeRoot, id)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case string:
		return v, nil
	case map[string]string:
		flat, ok := v[id]
		if !ok {
			return "", fmt.Errorf("loader result has no entry for %q", id)
		}
		return flat, nil
	default:
		return "", fmt.Errorf("loader returned unsupported shape %T", result)
	}
}

// assignFuncNames derives a sanitized function name per identifier,
// suffixing on collision so names stay unique within the artifact. Names are
// assigned in set order so the assignment is deterministic.
func assignFuncNames(set resolver.PartialSet) map[string]string {
	names := make(map[string]string, len(set))
	taken := make(map[string]bool, len(set))
	for _, id := range set {
		base := engine.SanitizeFuncName(id)
		name := base
		for n := 2; taken[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		taken[name] = true
		names[id] = name
	}
	return names
}
