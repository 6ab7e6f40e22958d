package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docparse"
)

var _ docparse.Backend = (*RetryBackend)(nil)

// DefaultRetryDelays returns the backoff delays for submit retries: 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second}
}

// RetryBackend retries ETRANSIENT submit failures of the wrapped backend.
type RetryBackend struct {
	backend docparse.Backend
	delays  []time.Duration
	logger  *slog.Logger
}

// NewRetryBackend wraps backend so that Submit is attempted once plus once per
// delay. A nil delays slice uses DefaultRetryDelays. logger may be nil.
func NewRetryBackend(backend docparse.Backend, delays []time.Duration, logger *slog.Logger) *RetryBackend {
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	return &RetryBackend{backend: backend, delays: delays, logger: logger}
}

func (b *RetryBackend) Name() docparse.Provider {
	return b.backend.Name()
}

func (b *RetryBackend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	return b.backend.Authenticate(ctx, creds)
}

// Submit calls the wrapped backend, retrying ETRANSIENT errors after each
// delay. Other errors are returned immediately.
func (b *RetryBackend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	maxAttempts := len(b.delays) + 1 // 1 initial + N retries

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := b.backend.Submit(ctx, doc, session)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if docparse.ErrorCode(err) != docparse.ETRANSIENT || attempt >= maxAttempts-1 {
			break
		}

		if b.logger != nil {
			b.logger.Warn("retry submit",
				"provider", b.backend.Name(),
				"file", doc.DisplayName,
				"attempt", attempt+2,
				"err", err,
			)
		}

		select {
		case <-ctx.Done():
			return nil, docparse.Errorf(docparse.ECANCELED, "%s: retry of %s abandoned: %v", b.backend.Name(), doc.DisplayName, ctx.Err())
		case <-time.After(b.delays[attempt]):
		}
	}

	return nil, lastErr
}
