package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Layers — Tiled Documentation</title></head>
<body>
<nav class="navbar"><a href="/">Home</a><a href="/manual/">Manual</a></nav>
<div class="sphinxsidebar"><ul><li>Table of contents</li></ul></div>
<main>
<h1>Layers</h1>
<p>Maps are built up from layers, stacked on top of each other.</p>
<h2>Tile Layers</h2>
<p>Tile layers provide an efficient way of storing a large area of tiles.</p>
<pre><code>{"type": "tilelayer", "opacity": 1}</code></pre>
</main>
<footer>Copyright notice</footer>
</body>
</html>`

func TestFetch(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("X-Docrag-Session")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewPageFetcher()
	page, err := f.Fetch(context.Background(), srv.URL+"/manual/layers/", "session_3")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/manual/layers/", page.URL)
	assert.Equal(t, "session_3", gotSession)

	// Main content survives as markdown.
	assert.Contains(t, page.Markdown, "# Layers")
	assert.Contains(t, page.Markdown, "## Tile Layers")
	assert.Contains(t, page.Markdown, "stacked on top of each other")
	assert.Contains(t, page.Markdown, "```")

	// Page chrome does not.
	assert.NotContains(t, page.Markdown, "Table of contents")
	assert.NotContains(t, page.Markdown, "Copyright notice")
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewPageFetcher()
	_, err := f.Fetch(context.Background(), srv.URL, "session_0")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetch_EmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><nav class=\"navbar\">only chrome</nav></body></html>"))
	}))
	defer srv.Close()

	f := NewPageFetcher()
	_, err := f.Fetch(context.Background(), srv.URL, "session_0")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewPageFetcher(WithMaxBodySize(16))
	_, err := f.Fetch(context.Background(), srv.URL, "session_0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewPageFetcher()
	_, err := f.Fetch(ctx, srv.URL, "session_0")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConverter_FallbackToPrunedBody(t *testing.T) {
	// No <main> or <article>: chrome is pruned from the body instead.
	page := `<html><body>
<header>Site header</header>
<div class="content"><h1>Export Formats</h1><p>Tiled can export maps to several formats.</p></div>
<footer>footer text</footer>
</body></html>`

	c := NewConverter()
	markdown, err := c.Convert([]byte(page))
	require.NoError(t, err)

	assert.Contains(t, markdown, "# Export Formats")
	assert.NotContains(t, markdown, "Site header")
	assert.NotContains(t, markdown, "footer text")
}
