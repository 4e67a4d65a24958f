package theme

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bookernath/stencil-cli/internal/resolver"
)

// SourceLoader assembles a partial's template source. Load returns either a
// flat source string or a map whose value under the partial's own identifier
// is the flat source; consumers must accept both shapes.
type SourceLoader interface {
	Load(themeRoot, partial string) (any, error)
}

// maxInlineDepth caps recursive inlining of nested internal partials.
const maxInlineDepth = 10

// internalInclusion matches an inclusion of an internal (non-external)
// partial, capturing its indentation and target identifier.
var internalInclusion = regexp.MustCompile(`\{\{>\s*([^\s}]+)\s*\}\}`)

// inliningLoader reads a partial's file and inlines nested internal partial
// references into one self-contained source string. External references stay
// as inclusions; they are compiled as their own partials.
type inliningLoader struct{}

// NewSourceLoader returns the default template-assembly loader.
func NewSourceLoader() SourceLoader {
	return inliningLoader{}
}

func (inliningLoader) Load(themeRoot, partial string) (any, error) {
	r := resolver.New(themeRoot)
	flat, err := assemble(r, partial, 0)
	if err != nil {
		return nil, err
	}
	// Keyed-object shape: the flat source sits under the partial's own
	// identifier.
	return map[string]string{partial: flat}, nil
}

func assemble(r *resolver.Resolver, partial string, depth int) (string, error) {
	if depth > maxInlineDepth {
		return "", fmt.Errorf("partial %q nests deeper than %d levels", partial, maxInlineDepth)
	}
	raw, err := os.ReadFile(r.PartialPath(partial))
	if err != nil {
		return "", fmt.Errorf("loading partial %q: %w", partial, err)
	}
	source := string(raw)

	var inlineErr error
	source = internalInclusion.ReplaceAllStringFunc(source, func(m string) string {
		if inlineErr != nil {
			return m
		}
		target := internalInclusion.FindStringSubmatch(m)[1]
		if strings.HasPrefix(target, resolver.ExternalMarker+"/") {
			return m
		}
		nested, err := assemble(r, target, depth+1)
		if err != nil {
			inlineErr = err
			return m
		}
		return nested
	})
	if inlineErr != nil {
		return "", inlineErr
	}
	return source, nil
}
