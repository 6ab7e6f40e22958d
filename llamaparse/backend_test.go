package llamaparse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/llamaparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T) docparse.SourceDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	return docparse.NewSourceDocument(path)
}

func TestBackend_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("returns session when key is set", func(t *testing.T) {
		t.Parallel()

		s, err := llamaparse.NewBackend().Authenticate(context.Background(), docparse.Credentials{llamaparse.APIKeyKey: " llx-1 "})

		require.NoError(t, err)
		assert.Equal(t, "llx-1", s.(*llamaparse.Session).APIKey)
	})

	t.Run("fails without key", func(t *testing.T) {
		t.Parallel()

		_, err := llamaparse.NewBackend().Authenticate(context.Background(), docparse.Credentials{})

		require.Error(t, err)
		assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
	})
}

func TestBackend_Submit(t *testing.T) {
	t.Parallel()

	t.Run("uploads, polls and splits markdown into pages", func(t *testing.T) {
		t.Parallel()

		var polls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer llx-1", r.Header.Get("Authorization"))
			switch r.URL.Path {
			case "/api/parsing/upload":
				assert.NoError(t, r.ParseMultipartForm(1<<20))
				assert.Equal(t, llamaparse.PageSeparator, r.FormValue("page_separator"))
				_, _ = w.Write([]byte(`{"id":"job-1","status":"PENDING"}`))
			case "/api/parsing/job/job-1":
				if polls.Add(1) < 3 {
					_, _ = w.Write([]byte(`{"id":"job-1","status":"PENDING"}`))
					return
				}
				_, _ = w.Write([]byte(`{"id":"job-1","status":"SUCCESS"}`))
			case "/api/parsing/job/job-1/result/markdown":
				_, _ = w.Write([]byte(`{"markdown":"# One\n\n<!-- docparse:page-break -->\n\nTwo"}`))
			default:
				t.Errorf("unexpected request %s", r.URL)
			}
		}))
		defer server.Close()

		b := llamaparse.NewBackend(llamaparse.WithBaseURL(server.URL), llamaparse.WithPollInterval(time.Millisecond))

		raw, err := b.Submit(context.Background(), writeSource(t), &llamaparse.Session{APIKey: "llx-1"})

		require.NoError(t, err)
		assert.Equal(t, docparse.ProviderLlamaParse, raw.Provider)
		require.NotNil(t, raw.Chunks)
		assert.Equal(t, "job-1", raw.Chunks.JobID)
		assert.Equal(t, []docparse.Chunk{{Text: "# One"}, {Text: "Two"}}, raw.Chunks.Chunks)
		assert.Equal(t, int32(3), polls.Load())
	})

	t.Run("failed job is a provider error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/parsing/upload":
				_, _ = w.Write([]byte(`{"id":"job-2"}`))
			default:
				_, _ = w.Write([]byte(`{"id":"job-2","status":"ERROR","error_message":"unsupported file"}`))
			}
		}))
		defer server.Close()

		b := llamaparse.NewBackend(llamaparse.WithBaseURL(server.URL), llamaparse.WithPollInterval(time.Millisecond))

		_, err := b.Submit(context.Background(), writeSource(t), &llamaparse.Session{APIKey: "k"})

		require.Error(t, err)
		assert.Equal(t, docparse.EPROVIDER, docparse.ErrorCode(err))
		assert.Contains(t, docparse.ErrorMessage(err), "unsupported file")
	})

	t.Run("canceled context stops polling", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"job-3","status":"PENDING"}`))
		}))
		defer server.Close()

		b := llamaparse.NewBackend(llamaparse.WithBaseURL(server.URL), llamaparse.WithPollInterval(time.Hour))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := b.Submit(ctx, writeSource(t), &llamaparse.Session{APIKey: "k"})

		require.Error(t, err)
		assert.Equal(t, docparse.ECANCELED, docparse.ErrorCode(err))
	})
}

func TestSplitPages(t *testing.T) {
	t.Parallel()

	assert.Nil(t, llamaparse.SplitPages("", "|"))
	assert.Equal(t, []docparse.Chunk{{Text: "a"}}, llamaparse.SplitPages("a", "|"))
	assert.Equal(t, []docparse.Chunk{{Text: "a"}, {Text: ""}, {Text: "c"}}, llamaparse.SplitPages("a||c", "|"))
}
