// Package normalize converts raw provider responses into the common
// per-page DocumentResult.
package normalize

import (
	"path/filepath"
	"time"

	"github.com/fwojciec/docparse"
)

// Ensure Normalizer implements docparse.Normalizer at compile time.
var _ docparse.Normalizer = (*Normalizer)(nil)

// ConvertFunc turns one provider's raw response into ordered pages.
type ConvertFunc func(raw *docparse.RawResponse) ([]docparse.PageResult, error)

// Normalizer dispatches raw responses to the ConvertFunc registered for their
// provider.
type Normalizer struct {
	converters map[docparse.Provider]ConvertFunc
}

// NewNormalizer returns a Normalizer with converters for every supported
// provider. conv renders HTML table elements as Markdown and tables extracts
// their cells; either may be nil, in which case element text is used as is
// and no cells are extracted.
func NewNormalizer(conv docparse.Converter, tables docparse.TableParser) *Normalizer {
	e := &elements{converter: conv, tables: tables}
	n := &Normalizer{converters: make(map[docparse.Provider]ConvertFunc)}
	n.Register(docparse.ProviderAzure, Layout)
	n.Register(docparse.ProviderTextract, Textract)
	n.Register(docparse.ProviderMistral, OCR)
	n.Register(docparse.ProviderLlamaParse, Chunks)
	n.Register(docparse.ProviderGemini, Chunks)
	n.Register(docparse.ProviderUnstructured, e.convert)
	return n
}

// Register sets the ConvertFunc for provider, replacing any existing one.
func (n *Normalizer) Register(provider docparse.Provider, fn ConvertFunc) {
	n.converters[provider] = fn
}

// Normalize converts raw into a DocumentResult for doc stamped with
// processedAt. The result is validated before it is returned.
func (n *Normalizer) Normalize(raw *docparse.RawResponse, doc docparse.SourceDocument, processedAt time.Time) (*docparse.DocumentResult, error) {
	if raw == nil {
		return nil, docparse.Errorf(docparse.ENORMALIZE, "raw response missing")
	}
	fn, ok := n.converters[raw.Provider]
	if !ok {
		return nil, docparse.Errorf(docparse.ENORMALIZE, "%s: no converter registered", raw.Provider)
	}

	pages, err := fn(raw)
	if err != nil {
		return nil, err
	}

	name := doc.DisplayName
	if name == "" {
		name = filepath.Base(doc.Path)
	}
	result := &docparse.DocumentResult{
		FileName:    name,
		ProcessedAt: processedAt,
		Provider:    raw.Provider,
		Pages:       pages,
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func missing(provider docparse.Provider, field string) error {
	return docparse.Errorf(docparse.ENORMALIZE, "%s: %s missing", provider, field)
}
