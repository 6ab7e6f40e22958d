// Package azure implements a backend for Azure AI Document Intelligence
// prebuilt-layout analysis.
package azure

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	dphttp "github.com/fwojciec/docparse/http"
)

// Credential keys.
const (
	EndpointKey = "DOCUMENTINTELLIGENCE_ENDPOINT"
	APIKeyKey   = "DOCUMENTINTELLIGENCE_API_KEY"
)

// Defaults for the analyze call.
const (
	DefaultModel        = "prebuilt-layout"
	DefaultAPIVersion   = "2024-11-30"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 10 * time.Minute
)

// Analyze operation states.
const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// Backend submits documents to the analyze endpoint and polls the returned
// operation until it completes.
type Backend struct {
	client       *dphttp.Client
	model        string
	apiVersion   string
	pollInterval time.Duration
	maxWait      time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithModel sets the analysis model. Defaults to prebuilt-layout.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// WithPollInterval sets how often the operation is polled.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		b.pollInterval = d
	}
}

// WithMaxWait bounds how long an operation may stay pending.
func WithMaxWait(d time.Duration) Option {
	return func(b *Backend) {
		b.maxWait = d
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.client = dphttp.NewClient(docparse.ProviderAzure, dphttp.WithHTTPClient(hc))
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		client:       dphttp.NewClient(docparse.ProviderAzure),
		model:        DefaultModel,
		apiVersion:   DefaultAPIVersion,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session holds the resource endpoint and key.
type Session struct {
	Endpoint string
	APIKey   string
}

// Provider implements docparse.Session.
func (s *Session) Provider() docparse.Provider {
	return docparse.ProviderAzure
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderAzure
}

// Authenticate checks that the endpoint and key are set. The service has no
// cheap way to verify a key, so rejection surfaces at submit time.
func (b *Backend) Authenticate(_ context.Context, creds docparse.Credentials) (docparse.Session, error) {
	if err := creds.Require(docparse.ProviderAzure, EndpointKey, APIKeyKey); err != nil {
		return nil, err
	}
	return &Session{
		Endpoint: strings.TrimRight(creds.Get(EndpointKey), "/"),
		APIKey:   creds.Get(APIKeyKey),
	}, nil
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type operation struct {
	Status        string                   `json:"status"`
	AnalyzeResult *docparse.LayoutResponse `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Submit starts layout analysis of doc and waits for the result.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok {
		return nil, docparse.Errorf(docparse.EINVALID, "azure: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	url := s.Endpoint + "/documentintelligence/documentModels/" + b.model + ":analyze?api-version=" + b.apiVersion
	req, err := dphttp.NewJSONRequest(ctx, http.MethodPost, url, analyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.APIKey)

	header, err := b.client.Do(req, nil)
	if err != nil {
		return nil, err
	}
	location := header.Get("Operation-Location")
	if location == "" {
		return nil, docparse.Errorf(docparse.EPROVIDER, "azure: analyze response has no Operation-Location")
	}

	var op operation
	err = dphttp.Poll(ctx, b.pollInterval, b.maxWait, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return docparse.Errorf(docparse.EPROVIDER, "azure: bad Operation-Location %q: %v", location, err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", s.APIKey)

		op = operation{}
		if _, err := b.client.Do(req, &op); err != nil {
			return err
		}
		switch op.Status {
		case statusSucceeded:
			return nil
		case statusFailed:
			if op.Error != nil {
				return docparse.Errorf(docparse.EPROVIDER, "azure: analyze failed: %s: %s", op.Error.Code, op.Error.Message)
			}
			return docparse.Errorf(docparse.EPROVIDER, "azure: analyze failed")
		default:
			return dphttp.ErrPending
		}
	})
	if err != nil {
		return nil, err
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderAzure,
		Layout:   op.AnalyzeResult,
	}, nil
}
