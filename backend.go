package docparse

import (
	"context"
	"strings"
	"time"
)

// Provider identifies an external document-understanding provider.
type Provider string

// Supported providers.
const (
	ProviderAzure        Provider = "azure"
	ProviderTextract     Provider = "textract"
	ProviderMistral      Provider = "mistral"
	ProviderLlamaParse   Provider = "llamaparse"
	ProviderUnstructured Provider = "unstructured"
	ProviderGemini       Provider = "gemini"
)

// Providers returns all supported providers in display order.
func Providers() []Provider {
	return []Provider{
		ProviderAzure,
		ProviderTextract,
		ProviderMistral,
		ProviderLlamaParse,
		ProviderUnstructured,
		ProviderGemini,
	}
}

// Credentials holds named secrets and endpoints, keyed by their environment
// variable name (e.g., "MISTRAL_API_KEY").
type Credentials map[string]string

// Get returns the trimmed value stored under key.
func (c Credentials) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Require returns EAUTH naming the first of keys that has no value.
func (c Credentials) Require(provider Provider, keys ...string) error {
	for _, key := range keys {
		if c.Get(key) == "" {
			return Errorf(EAUTH, "%s: %s not set", provider, key)
		}
	}
	return nil
}

// Session is the authenticated handle returned by Backend.Authenticate.
// Each backend defines its own concrete session type.
type Session interface {
	Provider() Provider
}

// Backend wraps one provider's call protocol.
type Backend interface {
	// Name returns the provider the backend talks to.
	Name() Provider

	// Authenticate validates creds and returns a session for Submit.
	// Returns EAUTH if required credentials are absent or rejected.
	Authenticate(ctx context.Context, creds Credentials) (Session, error)

	// Submit sends the document to the provider and returns its raw,
	// un-normalized response.
	// Returns ETRANSIENT on rate limiting or network failure, EPROVIDER on
	// unrecoverable rejection, ENOTFOUND if the document does not exist.
	Submit(ctx context.Context, doc SourceDocument, session Session) (*RawResponse, error)
}

// BackendInfo describes a provider for listings.
type BackendInfo struct {
	Provider    Provider
	Description string
	Credentials []string
}

// BackendSelector picks the backend that should process a document.
type BackendSelector interface {
	Select(doc SourceDocument) (Backend, error)
}

// BackendSelectorFunc adapts a function to the BackendSelector interface.
type BackendSelectorFunc func(doc SourceDocument) (Backend, error)

// Select calls f(doc).
func (f BackendSelectorFunc) Select(doc SourceDocument) (Backend, error) {
	return f(doc)
}

// StaticSelector returns a selector that routes every document to b.
func StaticSelector(b Backend) BackendSelector {
	return BackendSelectorFunc(func(SourceDocument) (Backend, error) {
		return b, nil
	})
}

// Normalizer converts raw provider responses into DocumentResults.
type Normalizer interface {
	// Normalize converts raw into a DocumentResult for doc.
	// Returns ENORMALIZE naming the provider and field if raw is malformed.
	Normalize(raw *RawResponse, doc SourceDocument, processedAt time.Time) (*DocumentResult, error)
}

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown.
	Convert(html string) (string, error)
}

// TableParser extracts cell-level structure from an HTML table.
type TableParser interface {
	// ParseTable returns the cells of every table in html, in document order.
	ParseTable(html string) ([]TableCell, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
