// Package resolver discovers the full set of template partials a theme needs:
// the theme's own templates plus every partial pulled in from externally
// installed template libraries.
package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// TemplateExt is the file extension of template partials.
const TemplateExt = ".html"

// ExternalMarker is the reserved path prefix that names a partial from an
// installed template library rather than the theme itself.
const ExternalMarker = "external"

// modulesDir is the shared package-install location external libraries
// resolve under.
const modulesDir = "node_modules"

// templatesDir is the directory inside a theme or library that holds partials.
const templatesDir = "templates"

// scanWorkers bounds the fan-out when scanning template files for external
// references.
const scanWorkers = 8

// externalRefPattern matches every partial-inclusion whose target path starts
// with the external marker, capturing the raw import path. A single file may
// contain many matches; all are collected.
var externalRefPattern = regexp.MustCompile(`\{\{>\s*(external/[^\s}"']+)`)

// PartialSet is the flattened, de-duplicated set of partial identifiers that
// must be compiled. External identifiers always precede internal ones; the
// ordering is a documented reproducibility requirement, not a correctness one.
type PartialSet []string

// ResolutionError indicates a file-system access failure during the
// dependency scan. It is fatal to the build.
type ResolutionError struct {
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving template dependencies under %s: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver walks a theme's template tree and the template directories of any
// referenced external libraries.
type Resolver struct {
	// ThemeRoot is the theme directory containing templates/ and node_modules/.
	ThemeRoot string
}

// New creates a Resolver for the given theme root.
func New(themeRoot string) *Resolver {
	return &Resolver{ThemeRoot: themeRoot}
}

// TemplateDir returns the theme's own template directory.
func (r *Resolver) TemplateDir() string {
	return filepath.Join(r.ThemeRoot, templatesDir)
}

// LibraryDir returns the template directory of an installed external library.
func (r *Resolver) LibraryDir(library string) string {
	return filepath.Join(r.ThemeRoot, modulesDir, filepath.FromSlash(library), templatesDir)
}

// PartialPath maps a partial identifier back to the template file defining
// it: external identifiers resolve under node_modules, internal ones under
// the theme's template directory.
func (r *Resolver) PartialPath(id string) string {
	if rest, ok := strings.CutPrefix(id, ExternalMarker+"/"); ok {
		return filepath.Join(r.ThemeRoot, modulesDir, filepath.FromSlash(rest)+TemplateExt)
	}
	return filepath.Join(r.TemplateDir(), filepath.FromSlash(id)+TemplateExt)
}

// Resolve returns the full partial set for the theme: external partials from
// every referenced library followed by the theme's internal partials.
//
// External identifiers keep the full marker-prefixed form
// (external/<library>/templates/<path>) so that the identifier a template
// uses to include the partial is the identifier it is registered under, and
// so the identifier maps back to a file under node_modules.
//
// A referenced library whose directory does not exist contributes zero
// partials; missing optional libraries degrade gracefully rather than failing
// the build.
func (r *Resolver) Resolve() (PartialSet, error) {
	internal, err := listTemplates(r.TemplateDir())
	if err != nil {
		return nil, &ResolutionError{Path: r.TemplateDir(), Err: err}
	}

	libraries, err := r.scanLibraries(internal)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var set PartialSet

	for _, library := range libraries {
		dir := r.LibraryDir(library)
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			continue
		}
		files, listErr := listTemplates(dir)
		if listErr != nil {
			return nil, &ResolutionError{Path: dir, Err: listErr}
		}
		for _, rel := range files {
			id := ExternalMarker + "/" + library + "/" + templatesDir + "/" + identifier(rel)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			set = append(set, id)
		}
	}

	for _, rel := range internal {
		id := identifier(rel)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		set = append(set, id)
	}

	return set, nil
}

// scanLibraries reads every internal template concurrently and returns the
// distinct library names referenced by external partial inclusions, sorted
// for reproducibility. Results from the fan-out are merged by set union after
// all workers finish.
func (r *Resolver) scanLibraries(internal []string) ([]string, error) {
	var (
		mu    sync.Mutex
		names = make(map[string]struct{})
		errs  []error
	)

	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < scanWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range work {
				path := filepath.Join(r.TemplateDir(), filepath.FromSlash(rel))
				content, err := os.ReadFile(path)
				if err != nil {
					mu.Lock()
					errs = append(errs, &ResolutionError{Path: path, Err: err})
					mu.Unlock()
					continue
				}
				for _, lib := range scanExternalLibraries(string(content)) {
					mu.Lock()
					names[lib] = struct{}{}
					mu.Unlock()
				}
			}
		}()
	}
	for _, rel := range internal {
		work <- rel
	}
	close(work)
	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	return sorted, nil
}

// scanExternalLibraries extracts the distinct library names referenced by a
// single template's external partial inclusions.
func scanExternalLibraries(content string) []string {
	var libs []string
	seen := make(map[string]struct{})
	for _, m := range externalRefPattern.FindAllStringSubmatch(content, -1) {
		lib, ok := LibraryName(m[1])
		if !ok {
			continue
		}
		if _, dup := seen[lib]; dup {
			continue
		}
		seen[lib] = struct{}{}
		libs = append(libs, lib)
	}
	return libs
}

// LibraryName derives the library name from a raw external import path by
// stripping the marker prefix and the trailing /templates/... suffix.
// Library names are case-sensitive directory-lookup keys.
func LibraryName(rawImportPath string) (string, bool) {
	rest, ok := strings.CutPrefix(rawImportPath, ExternalMarker+"/")
	if !ok {
		return "", false
	}
	name, _, ok := strings.Cut(rest, "/"+templatesDir+"/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// listTemplates enumerates every template file under dir, returning paths
// relative to dir with forward-slash separators.
func listTemplates(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, TemplateExt) {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// identifier turns a root-relative template path into a partial identifier:
// extension stripped, separators normalized to forward slash. Two raw paths
// can normalize to the same identifier, so callers deduplicate by identifier.
func identifier(rel string) string {
	return strings.TrimSuffix(filepath.ToSlash(rel), TemplateExt)
}
