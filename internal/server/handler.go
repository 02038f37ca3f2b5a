package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// handleFile maps the request path onto the document root and serves
// the result. The root is a hard boundary: anything resolving outside
// it is rejected before the filesystem is touched.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte("405 - Method Not Allowed"))
		return
	}

	if containsDotDot(r.URL.Path) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("403 - Forbidden"))
		return
	}

	urlPath := normalizeRequestPath(r.URL.Path)

	if _, err := validatePath(s.cfg.Root, urlPath); err != nil {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("403 - Forbidden"))
		return
	}

	info, err := s.fs.Stat(urlPath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			s.notFound(w)
		case os.IsPermission(err):
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("403 - Forbidden"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("500 - Internal Server Error"))
		}
		return
	}

	// Stale WASM or JS is the usual source of confusing dev sessions;
	// keep browsers revalidating everything.
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if info.Mode().IsRegular() {
		if r.Method == http.MethodGet && strings.HasSuffix(urlPath, ".md") && r.URL.Query().Get("raw") == "" {
			s.renderMarkdown(w, urlPath)
			return
		}
		if etag, err := s.fileETag(urlPath); err == nil {
			// http.ServeContent handles If-None-Match once the
			// ETag header is set.
			w.Header().Set("ETag", etag)
		}
	}

	s.files.ServeHTTP(w, r)
}

// notFound serves the root's 404.html if there is one.
func (s *Server) notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	if body, err := afero.ReadFile(s.fs, "/404.html"); err == nil {
		_, _ = w.Write(body)
		return
	}
	_, _ = w.Write([]byte("404 - Page Not Found"))
}
