package mock

import (
	"context"
	"time"

	"github.com/fwojciec/docparse"
)

var _ docparse.Backend = (*Backend)(nil)

// Backend is a mock implementation of docparse.Backend.
type Backend struct {
	NameFn         func() docparse.Provider
	AuthenticateFn func(ctx context.Context, creds docparse.Credentials) (docparse.Session, error)
	SubmitFn       func(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error)
}

func (b *Backend) Name() docparse.Provider {
	return b.NameFn()
}

func (b *Backend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	return b.AuthenticateFn(ctx, creds)
}

func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	return b.SubmitFn(ctx, doc, session)
}

var _ docparse.Session = (*Session)(nil)

// Session is a mock implementation of docparse.Session.
type Session struct {
	ProviderFn func() docparse.Provider
}

func (s *Session) Provider() docparse.Provider {
	return s.ProviderFn()
}

var _ docparse.Normalizer = (*Normalizer)(nil)

// Normalizer is a mock implementation of docparse.Normalizer.
type Normalizer struct {
	NormalizeFn func(raw *docparse.RawResponse, doc docparse.SourceDocument, processedAt time.Time) (*docparse.DocumentResult, error)
}

func (n *Normalizer) Normalize(raw *docparse.RawResponse, doc docparse.SourceDocument, processedAt time.Time) (*docparse.DocumentResult, error) {
	return n.NormalizeFn(raw, doc, processedAt)
}
