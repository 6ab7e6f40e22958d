// Package unstructured implements a backend for the Unstructured partition
// API.
package unstructured

import (
	"context"
	"net/http"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	dphttp "github.com/fwojciec/docparse/http"
)

// APIKeyKey is the credential holding the API key.
const APIKeyKey = "UNSTRUCTURED_API_KEY"

// Defaults for the partition call.
const (
	DefaultBaseURL  = "https://api.unstructuredapp.io"
	DefaultStrategy = "hi_res"
)

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// Backend posts a document to the partition endpoint and returns the typed
// elements it responds with.
type Backend struct {
	client   *dphttp.Client
	baseURL  string
	strategy string
}

// Option configures a Backend.
type Option func(*Backend)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(u, "/")
	}
}

// WithStrategy sets the partitioning strategy (auto, fast, hi_res, ocr_only).
func WithStrategy(strategy string) Option {
	return func(b *Backend) {
		b.strategy = strategy
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.client = dphttp.NewClient(docparse.ProviderUnstructured, dphttp.WithHTTPClient(hc))
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		client:   dphttp.NewClient(docparse.ProviderUnstructured),
		baseURL:  DefaultBaseURL,
		strategy: DefaultStrategy,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session holds the API key.
type Session struct {
	APIKey string
}

// Provider implements docparse.Session.
func (s *Session) Provider() docparse.Provider {
	return docparse.ProviderUnstructured
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderUnstructured
}

// Authenticate checks that the API key is set.
func (b *Backend) Authenticate(_ context.Context, creds docparse.Credentials) (docparse.Session, error) {
	if err := creds.Require(docparse.ProviderUnstructured, APIKeyKey); err != nil {
		return nil, err
	}
	return &Session{APIKey: creds.Get(APIKeyKey)}, nil
}

// Submit partitions doc and returns its elements.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok {
		return nil, docparse.Errorf(docparse.EINVALID, "unstructured: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	req, err := dphttp.NewMultipartRequest(ctx, b.baseURL+"/general/v0/general", "files", doc.DisplayName, data, map[string]string{
		"strategy":                  b.strategy,
		"coordinates":               "true",
		"pdf_infer_table_structure": "true",
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("unstructured-api-key", s.APIKey)

	var elements []docparse.Element
	if _, err := b.client.Do(req, &elements); err != nil {
		return nil, err
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderUnstructured,
		Elements: &docparse.ElementsResponse{Elements: elements},
	}, nil
}
