package server

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"path"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		meta.Meta,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(
				chromahtml.WithLineNumbers(false),
			),
		),
	),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(ghtml.WithUnsafe()),
)

const previewShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 50rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, sans-serif; line-height: 1.6; }
pre { padding: 1rem; overflow-x: auto; }
code { font-family: ui-monospace, monospace; }
</style>
</head>
<body>
%s
</body>
</html>
`

// renderMarkdown serves a .md file as an HTML preview page. Append
// ?raw=1 to the URL for the bytes on disk.
func (s *Server) renderMarkdown(w http.ResponseWriter, name string) {
	src, err := afero.ReadFile(s.fs, name)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("500 - Internal Server Error"))
		return
	}

	var buf bytes.Buffer
	pc := parser.NewContext()
	if err := markdown.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "markdown render failed: %v", err)
		return
	}

	title := path.Base(name)
	if m := meta.Get(pc); m != nil {
		if t, ok := m["title"].(string); ok && t != "" {
			title = t
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, previewShell, html.EscapeString(title), buf.String())
}
