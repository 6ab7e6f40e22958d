// Package mistral implements a backend for the Mistral OCR API.
package mistral

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	dphttp "github.com/fwojciec/docparse/http"
)

// APIKeyKey is the credential holding the API key.
const APIKeyKey = "MISTRAL_API_KEY"

// Defaults for the OCR call.
const (
	DefaultBaseURL = "https://api.mistral.ai"
	DefaultModel   = "mistral-ocr-latest"
)

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// Backend uploads a document, obtains a signed URL for it and runs OCR on
// that URL.
type Backend struct {
	client  *dphttp.Client
	baseURL string
	model   string
}

// Option configures a Backend.
type Option func(*Backend)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) {
		b.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel sets the OCR model.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.client = dphttp.NewClient(docparse.ProviderMistral, dphttp.WithHTTPClient(hc))
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		client:  dphttp.NewClient(docparse.ProviderMistral),
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
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
	return docparse.ProviderMistral
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderMistral
}

// Authenticate verifies the API key by listing models.
func (b *Backend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	if err := creds.Require(docparse.ProviderMistral, APIKeyKey); err != nil {
		return nil, err
	}
	s := &Session{APIKey: creds.Get(APIKeyKey)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "mistral: build request: %v", err)
	}
	b.authorize(req, s)
	if _, err := b.client.Do(req, nil); err != nil {
		return nil, err
	}
	return s, nil
}

type fileResponse struct {
	ID string `json:"id"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

// Submit uploads doc and returns its OCR pages.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok {
		return nil, docparse.Errorf(docparse.EINVALID, "mistral: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	// Upload
	req, err := dphttp.NewMultipartRequest(ctx, b.baseURL+"/v1/files", "file", doc.DisplayName, data, map[string]string{"purpose": "ocr"})
	if err != nil {
		return nil, err
	}
	b.authorize(req, s)
	var file fileResponse
	if _, err := b.client.Do(req, &file); err != nil {
		return nil, err
	}
	if file.ID == "" {
		return nil, docparse.Errorf(docparse.EPROVIDER, "mistral: upload returned no file id")
	}

	// Signed URL
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/files/"+url.PathEscape(file.ID)+"/url?expiry=24", nil)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "mistral: build request: %v", err)
	}
	b.authorize(req, s)
	var signed signedURLResponse
	if _, err := b.client.Do(req, &signed); err != nil {
		return nil, err
	}
	if signed.URL == "" {
		return nil, docparse.Errorf(docparse.EPROVIDER, "mistral: no signed url for file %s", file.ID)
	}

	// OCR
	req, err = dphttp.NewJSONRequest(ctx, http.MethodPost, b.baseURL+"/v1/ocr", ocrRequest{
		Model:    b.model,
		Document: ocrDocument{Type: "document_url", DocumentURL: signed.URL},
	})
	if err != nil {
		return nil, err
	}
	b.authorize(req, s)
	var resp docparse.OCRResponse
	if _, err := b.client.Do(req, &resp); err != nil {
		return nil, err
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderMistral,
		OCR:      &resp,
	}, nil
}

func (b *Backend) authorize(req *http.Request, s *Session) {
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
}
