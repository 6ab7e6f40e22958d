// Package gemini implements a document-understanding backend and a token
// counter on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
	dphttp "github.com/fwojciec/docparse/http"
	"google.golang.org/genai"
)

// APIKeyKey is the credential holding the API key.
const APIKeyKey = "GEMINI_API_KEY"

// DefaultModel is the model used for extraction.
const DefaultModel = "gemini-2.5-flash"

// PageBreak is the marker the model is asked to emit between pages.
const PageBreak = "<<<PAGE_BREAK>>>"

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// Backend sends the document inline to GenerateContent and asks for a
// page-by-page Markdown transcription.
type Backend struct {
	model   string
	baseURL string
}

// Option configures a Backend.
type Option func(*Backend)

// WithModel sets the model used for extraction.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) {
		b.baseURL = u
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{model: DefaultModel}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session holds the API client.
type Session struct {
	Client *genai.Client
}

// Provider implements docparse.Session.
func (s *Session) Provider() docparse.Provider {
	return docparse.ProviderGemini
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderGemini
}

// Authenticate creates an API client for the configured key.
func (b *Backend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	if err := creds.Require(docparse.ProviderGemini, APIKeyKey); err != nil {
		return nil, err
	}

	cfg := &genai.ClientConfig{
		APIKey:  creds.Get(APIKeyKey),
		Backend: genai.BackendGeminiAPI,
	}
	if b.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: b.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, docparse.Errorf(docparse.EAUTH, "gemini: create client: %v", err)
	}
	return &Session{Client: client}, nil
}

// Submit asks the model to transcribe doc and splits the answer into pages.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok || s.Client == nil {
		return nil, docparse.Errorf(docparse.EINVALID, "gemini: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	result, err := s.Client.Models.GenerateContent(ctx, b.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromBytes(data, dphttp.ContentType(doc.DisplayName)),
				genai.NewPartFromText(BuildPrompt()),
			},
		}},
		BuildConfig(),
	)
	if err != nil {
		return nil, apiError(ctx, err)
	}
	if result == nil {
		return nil, docparse.Errorf(docparse.EPROVIDER, "gemini returned nil result")
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderGemini,
		Chunks:   &docparse.ChunkResponse{Chunks: SplitPages(result.Text())},
	}, nil
}

// SplitPages splits a transcription on PageBreak into one chunk per page.
// A blank transcription yields no chunks. Each page is trimmed of the
// surrounding whitespace the model places around the break marker; the page
// text is otherwise kept as returned.
func SplitPages(text string) []docparse.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, PageBreak)
	chunks := make([]docparse.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, docparse.Chunk{Text: strings.TrimSpace(p)})
	}
	return chunks
}

// BuildConfig returns the GenerateContentConfig for extraction calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You transcribe documents. Reproduce the text of every page faithfully as Markdown, keeping tables as Markdown tables. Do not summarize or add commentary.",
			}},
		},
		Temperature: &temp,
	}
}

// BuildPrompt returns the user instruction sent with the document.
func BuildPrompt() string {
	return "Transcribe this document page by page. Separate consecutive pages with a line containing only " + PageBreak + "."
}

// apiError maps client failures onto docparse error codes.
func apiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return docparse.Errorf(docparse.ECANCELED, "gemini: %v", err)
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		return dphttp.StatusError(docparse.ProviderGemini, ae.Code, ae.Message)
	}
	return docparse.Errorf(docparse.ETRANSIENT, "gemini: %v", err)
}
