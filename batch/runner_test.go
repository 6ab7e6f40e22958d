package batch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/batch"
	"github.com/fwojciec/docparse/fs"
	"github.com/fwojciec/docparse/mock"
	"github.com/fwojciec/docparse/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 8, 14, 3, 9, 0, time.UTC)

func session(p docparse.Provider) *mock.Session {
	return &mock.Session{ProviderFn: func() docparse.Provider { return p }}
}

// chunkBackend returns a backend that answers every document with a single
// chunk holding the document's display name.
func chunkBackend(submit func(doc docparse.SourceDocument) error) *mock.Backend {
	return &mock.Backend{
		NameFn: func() docparse.Provider { return docparse.ProviderLlamaParse },
		AuthenticateFn: func(context.Context, docparse.Credentials) (docparse.Session, error) {
			return session(docparse.ProviderLlamaParse), nil
		},
		SubmitFn: func(_ context.Context, doc docparse.SourceDocument, _ docparse.Session) (*docparse.RawResponse, error) {
			if submit != nil {
				if err := submit(doc); err != nil {
					return nil, err
				}
			}
			return &docparse.RawResponse{
				Provider: docparse.ProviderLlamaParse,
				Chunks:   &docparse.ChunkResponse{Chunks: []docparse.Chunk{{Text: "text of " + doc.DisplayName}}},
			}, nil
		},
	}
}

func sources(names ...string) []docparse.SourceDocument {
	docs := make([]docparse.SourceDocument, 0, len(names))
	for _, n := range names {
		docs = append(docs, docparse.NewSourceDocument(filepath.Join("/in", n)))
	}
	return docs
}

func newRunner() *batch.Runner {
	return &batch.Runner{
		Normalizer: normalize.NewNormalizer(nil, nil),
		Writer:     fs.NewWriter(),
		Now:        func() time.Time { return fixedNow },
	}
}

func successNames(result *docparse.BatchResult) []string {
	var names []string
	for _, s := range result.Successes {
		names = append(names, s.Document.FileName)
	}
	return names
}

func failureNames(result *docparse.BatchResult) []string {
	var names []string
	for _, f := range result.Failures {
		names = append(names, f.FileName)
	}
	return names
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("processes documents in path order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var mu sync.Mutex
		var order []string
		backend := chunkBackend(func(doc docparse.SourceDocument) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, doc.DisplayName)
			return nil
		})

		result, err := newRunner().Run(context.Background(), sources("c.pdf", "a.pdf", "b.pdf"), docparse.StaticSelector(backend), dir)

		require.NoError(t, err)
		assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, order)
		assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, successNames(result))
		assert.Empty(t, result.Failures)
		assert.Equal(t, filepath.Join(dir, "a.pdf_20250108_140309.md"), result.Successes[0].OutputPath)
		content, err := os.ReadFile(result.Successes[0].OutputPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "text of a.pdf")
	})

	t.Run("keeps path order with concurrent workers", func(t *testing.T) {
		t.Parallel()

		names := []string{"e.pdf", "d.pdf", "c.pdf", "b.pdf", "a.pdf"}
		var inFlight, peak atomic.Int32
		backend := chunkBackend(func(doc docparse.SourceDocument) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			// Later paths finish first.
			time.Sleep(time.Duration('f'-doc.DisplayName[0]) * 5 * time.Millisecond)
			if doc.DisplayName == "c.pdf" {
				return docparse.Errorf(docparse.EPROVIDER, "rejected")
			}
			return nil
		})
		r := newRunner()
		r.Concurrency = 3

		result, err := r.Run(context.Background(), sources(names...), docparse.StaticSelector(backend), t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, []string{"a.pdf", "b.pdf", "d.pdf", "e.pdf"}, successNames(result))
		assert.Equal(t, []string{"c.pdf"}, failureNames(result))
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("writes one artifact per document sharing a stem", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		result, err := newRunner().Run(context.Background(), sources("report.pdf", "report.docx"), docparse.StaticSelector(chunkBackend(nil)), dir)

		require.NoError(t, err)
		require.Len(t, result.Successes, 2)
		assert.NotEqual(t, result.Successes[0].OutputPath, result.Successes[1].OutputPath)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		for _, s := range result.Successes {
			content, err := os.ReadFile(s.OutputPath)
			require.NoError(t, err)
			assert.Contains(t, string(content), "text of "+s.Document.FileName)
		}
	})

	t.Run("records normalize failure", func(t *testing.T) {
		t.Parallel()

		backend := chunkBackend(nil)
		r := newRunner()
		r.Normalizer = &mock.Normalizer{
			NormalizeFn: func(*docparse.RawResponse, docparse.SourceDocument, time.Time) (*docparse.DocumentResult, error) {
				return nil, docparse.Errorf(docparse.ENORMALIZE, "llamaparse: chunks missing")
			},
		}

		result, err := r.Run(context.Background(), sources("a.pdf"), docparse.StaticSelector(backend), t.TempDir())

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, docparse.Failure{
			FileName: "a.pdf",
			Code:     docparse.ENORMALIZE,
			Message:  "llamaparse: chunks missing",
		}, result.Failures[0])
	})

	t.Run("records write failure", func(t *testing.T) {
		t.Parallel()

		r := newRunner()
		r.Writer = &mock.ResultWriter{
			WriteResultFn: func(context.Context, *docparse.DocumentResult, string) (string, error) {
				return "", docparse.Errorf(docparse.EIO, "disk full")
			},
		}

		result, err := r.Run(context.Background(), sources("a.pdf"), docparse.StaticSelector(chunkBackend(nil)), t.TempDir())

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, docparse.EIO, result.Failures[0].Code)
	})

	t.Run("records selector failure as invalid", func(t *testing.T) {
		t.Parallel()

		backend := chunkBackend(nil)
		selector := docparse.BackendSelectorFunc(func(doc docparse.SourceDocument) (docparse.Backend, error) {
			if doc.DisplayName == "b.docx" {
				return nil, errors.New("unsupported extension")
			}
			return backend, nil
		})

		result, err := newRunner().Run(context.Background(), sources("a.pdf", "b.docx"), selector, t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, []string{"a.pdf"}, successNames(result))
		require.Len(t, result.Failures, 1)
		assert.Equal(t, docparse.EINVALID, result.Failures[0].Code)
		assert.Contains(t, result.Failures[0].Message, "unsupported extension")
	})

	t.Run("authenticates each provider once", func(t *testing.T) {
		t.Parallel()

		var auths atomic.Int32
		backend := chunkBackend(nil)
		backend.AuthenticateFn = func(_ context.Context, creds docparse.Credentials) (docparse.Session, error) {
			auths.Add(1)
			assert.Equal(t, "secret", creds.Get("LLAMA_CLOUD_API_KEY"))
			return session(docparse.ProviderLlamaParse), nil
		}
		r := newRunner()
		r.Credentials = docparse.Credentials{"LLAMA_CLOUD_API_KEY": "secret"}

		_, err := r.Run(context.Background(), sources("a.pdf", "b.pdf", "c.pdf"), docparse.StaticSelector(backend), t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, int32(1), auths.Load())
	})

	t.Run("stops dispatch on auth failure during submit", func(t *testing.T) {
		t.Parallel()

		var submits atomic.Int32
		backend := chunkBackend(func(doc docparse.SourceDocument) error {
			submits.Add(1)
			if doc.DisplayName == "b.pdf" {
				return docparse.Errorf(docparse.EAUTH, "llamaparse: HTTP 401")
			}
			return nil
		})

		result, err := newRunner().Run(context.Background(), sources("a.pdf", "b.pdf", "c.pdf"), docparse.StaticSelector(backend), t.TempDir())

		require.Error(t, err)
		assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
		assert.Equal(t, int32(2), submits.Load())
		assert.Equal(t, []string{"a.pdf"}, successNames(result))
		assert.Equal(t, []string{"b.pdf"}, failureNames(result))
	})

	t.Run("records undispatched documents as canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		backend := chunkBackend(func(doc docparse.SourceDocument) error {
			if doc.DisplayName == "a.pdf" {
				cancel()
			}
			return nil
		})

		result, err := newRunner().Run(ctx, sources("a.pdf", "b.pdf", "c.pdf"), docparse.StaticSelector(backend), t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, 3, result.Total())
		assert.Equal(t, []string{"b.pdf", "c.pdf"}, failureNames(result))
		for _, f := range result.Failures {
			assert.Equal(t, docparse.ECANCELED, f.Code)
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		t.Parallel()

		var events []batch.ProgressEvent
		r := newRunner()
		r.Progress = func(e batch.ProgressEvent) {
			events = append(events, e)
		}
		backend := chunkBackend(func(doc docparse.SourceDocument) error {
			if doc.DisplayName == "b.pdf" {
				return docparse.Errorf(docparse.EPROVIDER, "rejected")
			}
			return nil
		})

		_, err := r.Run(context.Background(), sources("a.pdf", "b.pdf"), docparse.StaticSelector(backend), t.TempDir())

		require.NoError(t, err)
		require.Len(t, events, 4)
		assert.Equal(t, batch.ProgressStarted, events[0].Type)
		assert.Equal(t, 2, events[0].Total)
		assert.Equal(t, batch.ProgressCompleted, events[1].Type)
		assert.Equal(t, "a.pdf", events[1].FileName)
		assert.Equal(t, batch.ProgressFailed, events[2].Type)
		assert.Equal(t, 2, events[2].Completed)
		assert.Equal(t, batch.ProgressFinished, events[3].Type)
	})

	t.Run("returns empty result for no documents", func(t *testing.T) {
		t.Parallel()

		result, err := newRunner().Run(context.Background(), nil, docparse.StaticSelector(chunkBackend(nil)), t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, 0, result.Total())
	})
}

// Story: Batch Isolation
// A failure on one document never prevents the others from being processed.

func TestRunner_OneFailingDocumentDoesNotStopTheBatch(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 2, 4} {
		t.Run(fmt.Sprintf("failing document %d", k), func(t *testing.T) {
			t.Parallel()

			// Given five documents where the k-th is rejected by the provider
			names := []string{"doc0.pdf", "doc1.pdf", "doc2.pdf", "doc3.pdf", "doc4.pdf"}
			failing := names[k]
			backend := chunkBackend(func(doc docparse.SourceDocument) error {
				if doc.DisplayName == failing {
					return docparse.Errorf(docparse.EPROVIDER, "llamaparse: HTTP 415: unsupported file")
				}
				return nil
			})
			dir := t.TempDir()

			// When the batch runs
			result, err := newRunner().Run(context.Background(), sources(names...), docparse.StaticSelector(backend), dir)

			// Then it completes without error
			require.NoError(t, err)

			// And the other four documents succeed
			assert.Len(t, result.Successes, 4)

			// And exactly one failure names the rejected document
			require.Len(t, result.Failures, 1)
			assert.Equal(t, failing, result.Failures[0].FileName)
			assert.Equal(t, docparse.EPROVIDER, result.Failures[0].Code)

			// And an artifact exists for each success
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 4)
		})
	}
}

// Story: Auth Short-Circuit
// Missing credentials stop the batch before any document is submitted.

func TestRunner_AuthFailureSubmitsNothing(t *testing.T) {
	t.Parallel()

	// Given a backend whose credentials are missing
	var submits atomic.Int32
	backend := &mock.Backend{
		NameFn: func() docparse.Provider { return docparse.ProviderMistral },
		AuthenticateFn: func(_ context.Context, creds docparse.Credentials) (docparse.Session, error) {
			if err := creds.Require(docparse.ProviderMistral, "MISTRAL_API_KEY"); err != nil {
				return nil, err
			}
			return session(docparse.ProviderMistral), nil
		},
		SubmitFn: func(context.Context, docparse.SourceDocument, docparse.Session) (*docparse.RawResponse, error) {
			submits.Add(1)
			return nil, nil
		},
	}
	dir := t.TempDir()
	r := newRunner()
	r.Credentials = docparse.Credentials{}

	// When the batch runs
	result, err := r.Run(context.Background(), sources("a.pdf", "b.pdf"), docparse.StaticSelector(backend), dir)

	// Then it fails with an auth error naming the missing key
	require.Error(t, err)
	assert.Equal(t, docparse.EAUTH, docparse.ErrorCode(err))
	assert.Contains(t, docparse.ErrorMessage(err), "MISTRAL_API_KEY")

	// And the result is empty
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Total())

	// And no document was submitted
	assert.Equal(t, int32(0), submits.Load())

	// And nothing was written
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
