package bundle

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bookernath/stencil-cli/internal/output"
)

// copyAssets copies each optional asset category into the bundle's static
// directory, preserving tree structure. Missing categories are skipped.
func (b *Builder) copyAssets(opts Options) (string, error) {
	assetRoot := destPath(opts, "static")
	copied := false

	for _, category := range optionalAssetDirs {
		src := filepath.Join(b.Theme.Root, category)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			output.Debug("asset category absent, skipping", "category", category)
			continue
		}
		if err := copyTree(src, filepath.Join(assetRoot, category)); err != nil {
			return "", err
		}
		copied = true
	}

	if !copied {
		return "", nil
	}
	return assetRoot, nil
}

// copyTree recursively copies src into dst, preserving directory structure.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
