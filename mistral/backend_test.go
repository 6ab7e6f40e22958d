package mistral_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/mistral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T) docparse.SourceDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return docparse.NewSourceDocument(path)
}

var creds = docparse.Credentials{mistral.APIKeyKey: "sk-test"}

// newServer fakes the files and OCR endpoints.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/models":
			_, _ = w.Write([]byte(`{"data":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "ocr", r.FormValue("purpose"))
			f, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			data, _ := io.ReadAll(f)
			assert.Equal(t, "scan.pdf", header.Filename)
			assert.Equal(t, "%PDF-1.4", string(data))
			_, _ = w.Write([]byte(`{"id":"file-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/files/file-1/url":
			_, _ = w.Write([]byte(`{"url":"https://files.example/signed"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/ocr":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "mistral-ocr-latest", body["model"])
			document, _ := body["document"].(map[string]any)
			assert.Equal(t, "https://files.example/signed", document["document_url"])
			_, _ = w.Write([]byte(`{"model":"mistral-ocr-latest","pages":[
				{"index":0,"markdown":"# Page one","images":[{"id":"img-0.jpeg","top_left_x":1}],"dimensions":{"dpi":200,"height":2200,"width":1700}},
				{"index":1,"markdown":"Page two"}]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBackend_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("verifies key against the API", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)

		s, err := mistral.NewBackend(mistral.WithBaseURL(server.URL)).Authenticate(context.Background(), creds)

		require.NoError(t, err)
		assert.Equal(t, docparse.ProviderMistral, s.Provider())
	})

	t.Run("rejected key is an auth error", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)

		_, err := mistral.NewBackend(mistral.WithBaseURL(server.URL)).Authenticate(context.Background(), docparse.Credentials{mistral.APIKeyKey: "wrong"})

		require.Error(t, err)
		assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
	})

	t.Run("missing key makes no request", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		_, err := mistral.NewBackend(mistral.WithBaseURL(server.URL)).Authenticate(context.Background(), docparse.Credentials{})

		require.Error(t, err)
		assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
		assert.Contains(t, docparse.ErrorMessage(err), mistral.APIKeyKey)
		assert.Equal(t, int32(0), calls.Load())
	})
}

func TestBackend_Submit(t *testing.T) {
	t.Parallel()

	t.Run("uploads, signs and runs OCR", func(t *testing.T) {
		t.Parallel()

		server := newServer(t)
		b := mistral.NewBackend(mistral.WithBaseURL(server.URL + "/"))
		s, err := b.Authenticate(context.Background(), creds)
		require.NoError(t, err)

		raw, err := b.Submit(context.Background(), writeSource(t), s)

		require.NoError(t, err)
		assert.Equal(t, docparse.ProviderMistral, raw.Provider)
		require.NotNil(t, raw.OCR)
		require.Len(t, raw.OCR.Pages, 2)
		require.NotNil(t, raw.OCR.Pages[0].Index)
		assert.Equal(t, 0, *raw.OCR.Pages[0].Index)
		assert.Equal(t, "# Page one", raw.OCR.Pages[0].Markdown)
		assert.Equal(t, 200, raw.OCR.Pages[0].Dimensions.DPI)
		assert.Equal(t, "img-0.jpeg", raw.OCR.Pages[0].Images[0].ID)
	})

	t.Run("unsupported document is a provider error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Unsupported file type"}`, http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		b := mistral.NewBackend(mistral.WithBaseURL(server.URL))

		_, err := b.Submit(context.Background(), writeSource(t), &mistral.Session{APIKey: "sk-test"})

		require.Error(t, err)
		assert.Equal(t, docparse.EPROVIDER, docparse.ErrorCode(err))
		assert.Contains(t, docparse.ErrorMessage(err), "Unsupported file type")
	})

	t.Run("rejects foreign session", func(t *testing.T) {
		t.Parallel()

		_, err := mistral.NewBackend().Submit(context.Background(), writeSource(t), nil)

		require.Error(t, err)
		assert.Equal(t, docparse.EINVALID, docparse.ErrorCode(err))
	})
}
