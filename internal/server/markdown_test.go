package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const markdownFixture = `---
title: Build Notes
---

# Getting started

` + "```go\nfunc main() {}\n```" + `
`

func TestMarkdownPreview(t *testing.T) {
	s := newTestServer(t, map[string]string{"/notes.md": markdownFixture})

	req := httptest.NewRequest(http.MethodGet, "/notes.md", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<title>Build Notes</title>") {
		t.Errorf("preview missing front-matter title: %q", body)
	}
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "Getting started") {
		t.Errorf("preview missing rendered heading: %q", body)
	}
	if strings.Contains(body, "title: Build Notes") {
		t.Errorf("front matter leaked into rendered output")
	}
	assertIsolationHeaders(t, rec.Header())
}

func TestMarkdownRawBypass(t *testing.T) {
	s := newTestServer(t, map[string]string{"/notes.md": markdownFixture})

	req := httptest.NewRequest(http.MethodGet, "/notes.md?raw=1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != markdownFixture {
		t.Errorf("raw body = %q, want bytes on disk", rec.Body.String())
	}
	assertIsolationHeaders(t, rec.Header())
}
