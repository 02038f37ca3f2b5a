// Shared test fixtures.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// NewMemRoot builds an in-memory document root from a path-to-content
// map. Paths should be rooted ("/index.html").
func NewMemRoot(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if dir := filepath.Dir(name); dir != "/" && dir != "." {
			if err := fs.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
		if err := afero.WriteFile(fs, name, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fs
}
