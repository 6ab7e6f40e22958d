package batch

import (
	"context"
	"sync"

	"github.com/fwojciec/docparse"
	"golang.org/x/time/rate"
)

// ProviderLimiter provides per-provider rate limiting using token buckets.
// Each provider gets its own limiter, so requests to different providers do
// not wait on each other.
type ProviderLimiter struct {
	mu       sync.Mutex
	limiters map[docparse.Provider]*rate.Limiter
	rps      float64
}

// NewProviderLimiter creates a ProviderLimiter allowing rps requests per
// second to each provider with a burst of 1. A non-positive rps disables
// limiting.
func NewProviderLimiter(rps float64) *ProviderLimiter {
	return &ProviderLimiter{
		limiters: make(map[docparse.Provider]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until the rate limit allows a request to provider.
// Returns ECANCELED if the context ends first.
func (l *ProviderLimiter) Wait(ctx context.Context, provider docparse.Provider) error {
	l.mu.Lock()
	limiter, ok := l.limiters[provider]
	if !ok {
		limit := rate.Inf
		if l.rps > 0 {
			limit = rate.Limit(l.rps)
		}
		limiter = rate.NewLimiter(limit, 1)
		l.limiters[provider] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return docparse.Errorf(docparse.ECANCELED, "%s: rate limit wait: %v", provider, err)
		}
		// The wait would outlast the context deadline.
		return docparse.Errorf(docparse.ETRANSIENT, "%s: rate limit wait: %v", provider, err)
	}
	return nil
}

var _ docparse.Backend = (*RateLimitedBackend)(nil)

// RateLimitedBackend waits on a ProviderLimiter before each submit.
type RateLimitedBackend struct {
	backend docparse.Backend
	limiter *ProviderLimiter
}

// NewRateLimitedBackend wraps backend with limiter.
func NewRateLimitedBackend(backend docparse.Backend, limiter *ProviderLimiter) *RateLimitedBackend {
	return &RateLimitedBackend{backend: backend, limiter: limiter}
}

func (b *RateLimitedBackend) Name() docparse.Provider {
	return b.backend.Name()
}

func (b *RateLimitedBackend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	return b.backend.Authenticate(ctx, creds)
}

func (b *RateLimitedBackend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	if err := b.limiter.Wait(ctx, b.backend.Name()); err != nil {
		return nil, err
	}
	return b.backend.Submit(ctx, doc, session)
}
