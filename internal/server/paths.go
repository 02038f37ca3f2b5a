package server

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validatePath resolves a request path against the document root and
// rejects anything that would escape it. The mux already cleans paths,
// but this handler must hold the boundary on its own.
func validatePath(root, userPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid document root: %w", err)
	}

	abs, err := filepath.Abs(filepath.Join(absRoot, filepath.Clean(userPath)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(abs, absRoot) {
		return "", fmt.Errorf("path escapes document root")
	}

	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", fmt.Errorf("path validation: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes document root")
	}

	return abs, nil
}

// normalizeRequestPath makes the request path rooted and clean, with
// forward slashes on every platform.
func normalizeRequestPath(rawPath string) string {
	return filepath.ToSlash(filepath.Clean("/" + strings.TrimPrefix(rawPath, "/")))
}

// containsDotDot reports whether any slash-separated segment of the
// raw request path is "..". Rooted paths collapse under Clean, so the
// raw path is where a traversal attempt is still visible.
func containsDotDot(v string) bool {
	if !strings.Contains(v, "..") {
		return false
	}
	for _, ent := range strings.FieldsFunc(v, isSlashRune) {
		if ent == ".." {
			return true
		}
	}
	return false
}

func isSlashRune(r rune) bool { return r == '/' || r == '\\' }
