// Package llamaparse implements a backend for the LlamaParse managed parsing
// service.
package llamaparse

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	dphttp "github.com/fwojciec/docparse/http"
)

// APIKeyKey is the credential holding the API key.
const APIKeyKey = "LLAMA_CLOUD_API_KEY"

// Defaults for parsing jobs.
const (
	DefaultBaseURL      = "https://api.cloud.llamaindex.ai"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 15 * time.Minute
)

// PageSeparator is the marker the service is asked to place between pages.
// The markdown result is split on it into chunks.
const PageSeparator = "\n\n<!-- docparse:page-break -->\n\n"

// Job states.
const (
	statusSuccess  = "SUCCESS"
	statusError    = "ERROR"
	statusCanceled = "CANCELED"
)

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// Backend uploads a document as a parsing job, polls the job and fetches the
// markdown result.
type Backend struct {
	client       *dphttp.Client
	baseURL      string
	pollInterval time.Duration
	maxWait      time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPollInterval sets how often the job is polled.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		b.pollInterval = d
	}
}

// WithMaxWait bounds how long a job may stay pending.
func WithMaxWait(d time.Duration) Option {
	return func(b *Backend) {
		b.maxWait = d
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.client = dphttp.NewClient(docparse.ProviderLlamaParse, dphttp.WithHTTPClient(hc))
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		client:       dphttp.NewClient(docparse.ProviderLlamaParse),
		baseURL:      DefaultBaseURL,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
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
	return docparse.ProviderLlamaParse
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderLlamaParse
}

// Authenticate checks that the API key is set.
func (b *Backend) Authenticate(_ context.Context, creds docparse.Credentials) (docparse.Session, error) {
	if err := creds.Require(docparse.ProviderLlamaParse, APIKeyKey); err != nil {
		return nil, err
	}
	return &Session{APIKey: creds.Get(APIKeyKey)}, nil
}

type job struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type markdownResult struct {
	Markdown string `json:"markdown"`
}

// Submit parses doc and returns its pages as chunks.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok {
		return nil, docparse.Errorf(docparse.EINVALID, "llamaparse: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	req, err := dphttp.NewMultipartRequest(ctx, b.baseURL+"/api/parsing/upload", "file", doc.DisplayName, data, map[string]string{
		"page_separator": PageSeparator,
	})
	if err != nil {
		return nil, err
	}
	b.authorize(req, s)
	var started job
	if _, err := b.client.Do(req, &started); err != nil {
		return nil, err
	}
	if started.ID == "" {
		return nil, docparse.Errorf(docparse.EPROVIDER, "llamaparse: upload returned no job id")
	}
	jobURL := b.baseURL + "/api/parsing/job/" + url.PathEscape(started.ID)

	err = dphttp.Poll(ctx, b.pollInterval, b.maxWait, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
		if err != nil {
			return docparse.Errorf(docparse.EINVALID, "llamaparse: build request: %v", err)
		}
		b.authorize(req, s)
		var status job
		if _, err := b.client.Do(req, &status); err != nil {
			return err
		}
		switch status.Status {
		case statusSuccess:
			return nil
		case statusError, statusCanceled:
			return docparse.Errorf(docparse.EPROVIDER, "llamaparse: job %s %s: %s", started.ID, strings.ToLower(status.Status), status.ErrorMessage)
		default:
			return dphttp.ErrPending
		}
	})
	if err != nil {
		return nil, err
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, jobURL+"/result/markdown", nil)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "llamaparse: build request: %v", err)
	}
	b.authorize(req, s)
	var result markdownResult
	if _, err := b.client.Do(req, &result); err != nil {
		return nil, err
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderLlamaParse,
		Chunks: &docparse.ChunkResponse{
			JobID:  started.ID,
			Chunks: SplitPages(result.Markdown, PageSeparator),
		},
	}, nil
}

func (b *Backend) authorize(req *http.Request, s *Session) {
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Accept", "application/json")
}

// SplitPages splits text on sep into chunks in order. Empty text yields no
// chunks.
func SplitPages(text, sep string) []docparse.Chunk {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, sep)
	chunks := make([]docparse.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, docparse.Chunk{Text: p})
	}
	return chunks
}
