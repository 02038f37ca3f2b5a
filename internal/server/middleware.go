package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// isolationHeaders adds the cross-origin isolation headers. These are
// the whole point of this server over a plain file server, so they go
// on unconditionally.
func isolationHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(headerOpenerPolicy, openerPolicyValue)
		h.Set(headerEmbedderPolicy, embedderPolicyValue)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps the SSE endpoint working through the wrapper.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// gzipResponseWriter compresses the body but leaves the encoding
// headers alone until the status code is known: 204 and 304 carry no
// entity, so they must go out without Content-Encoding or a gzip
// footer.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
	passthrough bool
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if code == http.StatusNoContent || code == http.StatusNotModified {
			w.passthrough = true
		} else {
			w.Header().Set("Content-Encoding", "gzip")
			// Content-Length refers to the uncompressed size; drop it.
			w.Header().Del("Content-Length")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}
	return w.gz.Write(b)
}

// close flushes the gzip stream only if one was actually emitted.
func (w *gzipResponseWriter) close() error {
	if !w.wroteHeader || w.passthrough {
		return nil
	}
	return w.gz.Close()
}

func gzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gzw := &gzipResponseWriter{ResponseWriter: w, gz: gzip.NewWriter(w)}
		defer func() { _ = gzw.close() }()
		next.ServeHTTP(gzw, r)
	})
}
