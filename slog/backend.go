package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docparse"
)

// Ensure LoggingBackend implements docparse.Backend.
var _ docparse.Backend = (*LoggingBackend)(nil)

// LoggingBackend wraps a Backend with logging of each provider call.
type LoggingBackend struct {
	next   docparse.Backend
	logger *slog.Logger
}

// NewLoggingBackend creates a new LoggingBackend.
func NewLoggingBackend(next docparse.Backend, logger *slog.Logger) *LoggingBackend {
	return &LoggingBackend{next: next, logger: logger}
}

// Name delegates to the wrapped backend.
func (b *LoggingBackend) Name() docparse.Provider {
	return b.next.Name()
}

// Authenticate delegates to the wrapped backend and logs the outcome.
func (b *LoggingBackend) Authenticate(ctx context.Context, creds docparse.Credentials) (session docparse.Session, err error) {
	defer func(begin time.Time) {
		b.logger.Debug("authenticate",
			"provider", b.next.Name(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Authenticate(ctx, creds)
}

// Submit delegates to the wrapped backend and logs the call.
func (b *LoggingBackend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (raw *docparse.RawResponse, err error) {
	defer func(begin time.Time) {
		b.logger.Info("submit",
			"provider", b.next.Name(),
			"file", doc.DisplayName,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.next.Submit(ctx, doc, session)
}
