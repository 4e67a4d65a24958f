package bundle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zip"

	"github.com/bookernath/stencil-cli/internal/resolver"
)

// buildArchive serializes the assembled theme into a single compressed
// archive: templates (internal and external), translations, schema, and
// configuration. Config and schema bytes go in exactly as fetched, so an
// extracted archive reproduces them byte-identically.
func (b *Builder) buildArchive(opts Options, name string, partials resolver.PartialSet, translations map[string]json.RawMessage, rawConfig, schema []byte) (*Manifest, error) {
	path := destPath(opts, name+".zip")

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	zw := zip.NewWriter(f)

	write := func(entry string, data []byte) error {
		w, werr := zw.Create(entry)
		if werr != nil {
			return fmt.Errorf("archiving %s: %w", entry, werr)
		}
		if _, werr = w.Write(data); werr != nil {
			return fmt.Errorf("archiving %s: %w", entry, werr)
		}
		return nil
	}

	fail := func(ferr error) (*Manifest, error) {
		zw.Close()
		f.Close()
		// Never leave a partial archive behind as the reported output.
		os.Remove(path)
		return nil, ferr
	}

	res := resolver.New(b.Theme.Root)
	for _, id := range partials {
		src, rerr := os.ReadFile(res.PartialPath(id))
		if rerr != nil {
			return fail(rerr)
		}
		if werr := write("templates/"+id+resolver.TemplateExt, src); werr != nil {
			return fail(werr)
		}
	}

	for locale, table := range translations {
		if werr := write("lang/"+locale+".json", []byte(table)); werr != nil {
			return fail(werr)
		}
	}

	if werr := write("config.json", rawConfig); werr != nil {
		return fail(werr)
	}
	if werr := write("schema.json", schema); werr != nil {
		return fail(werr)
	}

	if cerr := zw.Close(); cerr != nil {
		return fail(cerr)
	}
	if cerr := f.Close(); cerr != nil {
		return fail(cerr)
	}

	return &Manifest{ArtifactPath: path}, nil
}
