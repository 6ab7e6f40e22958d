// Package textract implements a backend for Amazon Textract document
// analysis using the AWS SDK.
package textract

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"
	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/fs"
)

// Credential keys. When AccessKeyIDKey is absent the SDK's default chain
// (environment, shared config, instance role) is used.
const (
	AccessKeyIDKey     = "AWS_ACCESS_KEY_ID"
	SecretAccessKeyKey = "AWS_SECRET_ACCESS_KEY"
	SessionTokenKey    = "AWS_SESSION_TOKEN"
	RegionKey          = "AWS_REGION"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Ensure Backend implements docparse.Backend at compile time.
var _ docparse.Backend = (*Backend)(nil)

// AnalyzeAPI is the part of the Textract client the backend uses.
type AnalyzeAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// ClientFunc builds an AnalyzeAPI from resolved AWS configuration.
type ClientFunc func(cfg aws.Config) AnalyzeAPI

// Backend analyzes documents synchronously with tables and forms enabled.
type Backend struct {
	newClient ClientFunc
	region    string
}

// Option configures a Backend.
type Option func(*Backend)

// WithClientFunc overrides how the Textract client is built.
func WithClientFunc(fn ClientFunc) Option {
	return func(b *Backend) {
		b.newClient = fn
	}
}

// WithRegion sets the region used when the credentials name none.
func WithRegion(region string) Option {
	return func(b *Backend) {
		b.region = region
	}
}

// NewBackend creates a new Backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		newClient: func(cfg aws.Config) AnalyzeAPI {
			return textract.NewFromConfig(cfg)
		},
		region: DefaultRegion,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session holds the Textract client.
type Session struct {
	Client AnalyzeAPI
}

// Provider implements docparse.Session.
func (s *Session) Provider() docparse.Provider {
	return docparse.ProviderTextract
}

func (b *Backend) Name() docparse.Provider {
	return docparse.ProviderTextract
}

// Authenticate resolves AWS credentials. Explicit keys take precedence over
// the default credential chain. Returns EAUTH if no credentials resolve.
func (b *Backend) Authenticate(ctx context.Context, creds docparse.Credentials) (docparse.Session, error) {
	region := creds.Get(RegionKey)
	if region == "" {
		region = b.region
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if creds.Get(AccessKeyIDKey) != "" {
		if err := creds.Require(docparse.ProviderTextract, SecretAccessKeyKey); err != nil {
			return nil, err
		}
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.Get(AccessKeyIDKey),
			creds.Get(SecretAccessKeyKey),
			creds.Get(SessionTokenKey),
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, docparse.Errorf(docparse.EAUTH, "textract: load AWS config: %v", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, docparse.Errorf(docparse.EAUTH, "textract: no AWS credentials: %v", err)
	}

	return &Session{Client: b.newClient(cfg)}, nil
}

// Submit analyzes doc and returns its block graph.
func (b *Backend) Submit(ctx context.Context, doc docparse.SourceDocument, session docparse.Session) (*docparse.RawResponse, error) {
	s, ok := session.(*Session)
	if !ok || s.Client == nil {
		return nil, docparse.Errorf(docparse.EINVALID, "textract: unexpected session %T", session)
	}

	data, err := fs.ReadSource(doc)
	if err != nil {
		return nil, err
	}

	out, err := s.Client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: data},
		FeatureTypes: []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms},
	})
	if err != nil {
		return nil, apiError(ctx, err)
	}

	return &docparse.RawResponse{
		Provider: docparse.ProviderTextract,
		Textract: convertOutput(out),
	}, nil
}

// apiError maps SDK failures onto docparse error codes.
func apiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return docparse.Errorf(docparse.ECANCELED, "textract: %v", err)
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return docparse.Errorf(docparse.ETRANSIENT, "textract: %v", err)
	}

	switch ae.ErrorCode() {
	case "ThrottlingException", "ProvisionedThroughputExceededException", "LimitExceededException", "InternalServerError":
		return docparse.Errorf(docparse.ETRANSIENT, "textract: %s: %s", ae.ErrorCode(), ae.ErrorMessage())
	case "AccessDeniedException", "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException":
		return docparse.Errorf(docparse.EAUTH, "textract: %s: %s", ae.ErrorCode(), ae.ErrorMessage())
	default:
		return docparse.Errorf(docparse.EPROVIDER, "textract: %s: %s", ae.ErrorCode(), ae.ErrorMessage())
	}
}

// convertOutput copies SDK blocks into the provider-neutral raw shape.
func convertOutput(out *textract.AnalyzeDocumentOutput) *docparse.TextractResponse {
	resp := &docparse.TextractResponse{
		Blocks: make([]docparse.TextractBlock, 0, len(out.Blocks)),
	}
	if out.DocumentMetadata != nil {
		resp.DocumentPages = int(aws.ToInt32(out.DocumentMetadata.Pages))
	}

	for _, blk := range out.Blocks {
		b := docparse.TextractBlock{
			ID:              aws.ToString(blk.Id),
			BlockType:       string(blk.BlockType),
			Text:            aws.ToString(blk.Text),
			Page:            int(aws.ToInt32(blk.Page)),
			RowIndex:        int(aws.ToInt32(blk.RowIndex)),
			ColumnIndex:     int(aws.ToInt32(blk.ColumnIndex)),
			Confidence:      float64(aws.ToFloat32(blk.Confidence)),
			SelectionStatus: string(blk.SelectionStatus),
		}
		if g := blk.Geometry; g != nil && g.BoundingBox != nil {
			b.BoundingBox = &docparse.BoundingBox{
				Left:   float64(g.BoundingBox.Left),
				Top:    float64(g.BoundingBox.Top),
				Width:  float64(g.BoundingBox.Width),
				Height: float64(g.BoundingBox.Height),
			}
		}
		for _, rel := range blk.Relationships {
			if rel.Type == types.RelationshipTypeChild {
				b.ChildIDs = append(b.ChildIDs, rel.Ids...)
			}
		}
		resp.Blocks = append(resp.Blocks, b)
	}
	return resp
}
