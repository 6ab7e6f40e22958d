package unstructured_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/unstructured"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T) docparse.SourceDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	return docparse.NewSourceDocument(path)
}

func TestBackend_Authenticate(t *testing.T) {
	t.Parallel()

	_, err := unstructured.NewBackend().Authenticate(context.Background(), docparse.Credentials{unstructured.APIKeyKey: "  "})

	require.Error(t, err)
	assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
}

func TestBackend_Submit(t *testing.T) {
	t.Parallel()

	t.Run("posts file and decodes elements", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/general/v0/general", r.URL.Path)
			assert.Equal(t, "key-1", r.Header.Get("unstructured-api-key"))
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "fast", r.FormValue("strategy"))
			_, header, err := r.FormFile("files")
			assert.NoError(t, err)
			assert.Equal(t, "form.pdf", header.Filename)
			_, _ = w.Write([]byte(`[
				{"type":"Title","element_id":"e1","text":"Form","metadata":{"page_number":1,"filename":"form.pdf"}},
				{"type":"Table","element_id":"e2","text":"a b","metadata":{"page_number":2,"text_as_html":"<table><tr><td>a</td></tr></table>",
				 "coordinates":{"points":[[0,0],[1,1]],"system":"PixelSpace"}}}
			]`))
		}))
		defer server.Close()

		b := unstructured.NewBackend(unstructured.WithBaseURL(server.URL), unstructured.WithStrategy("fast"))
		s, err := b.Authenticate(context.Background(), docparse.Credentials{unstructured.APIKeyKey: "key-1"})
		require.NoError(t, err)

		raw, err := b.Submit(context.Background(), writeSource(t), s)

		require.NoError(t, err)
		assert.Equal(t, docparse.ProviderUnstructured, raw.Provider)
		require.Len(t, raw.Elements.Elements, 2)
		assert.Equal(t, "Title", raw.Elements.Elements[0].Type)
		assert.Equal(t, 2, raw.Elements.Elements[1].Metadata.PageNumber)
		assert.Contains(t, raw.Elements.Elements[1].Metadata.TextAsHTML, "<table>")
		assert.Equal(t, "PixelSpace", raw.Elements.Elements[1].Metadata.Coordinates.System)
	})

	t.Run("server error is transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		b := unstructured.NewBackend(unstructured.WithBaseURL(server.URL))

		_, err := b.Submit(context.Background(), writeSource(t), &unstructured.Session{APIKey: "k"})

		require.Error(t, err)
		assert.Equal(t, docparse.ETRANSIENT, docparse.ErrorCode(err))
	})
}
