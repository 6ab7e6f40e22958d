package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/mock"
	dpslog "github.com/fwojciec/docparse/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingWriter_WriteResult_Basic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	writer := dpslog.NewLoggingWriter(&mock.ResultWriter{
		WriteResultFn: func(_ context.Context, _ *docparse.DocumentResult, outputDir string) (string, error) {
			return outputDir + "/a_20240102_030405.md", nil
		},
	}, logger)

	path, err := writer.WriteResult(context.Background(), &docparse.DocumentResult{
		FileName: "a.pdf",
		Pages:    []docparse.PageResult{{PageNumber: 1}, {PageNumber: 2}},
	}, "/out")

	require.NoError(t, err)
	assert.Equal(t, "/out/a_20240102_030405.md", path)
	output := buf.String()
	assert.Contains(t, output, "write result")
	assert.Contains(t, output, "file=a.pdf")
	assert.Contains(t, output, "pages=2")
	assert.Contains(t, output, "path=/out/a_20240102_030405.md")
}

func TestLoggingNormalizer_Normalize_Basic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	want := docparse.Errorf(docparse.ENORMALIZE, "azure: analyzeResult missing")
	normalizer := dpslog.NewLoggingNormalizer(&mock.Normalizer{
		NormalizeFn: func(*docparse.RawResponse, docparse.SourceDocument, time.Time) (*docparse.DocumentResult, error) {
			return nil, want
		},
	}, logger)

	_, err := normalizer.Normalize(&docparse.RawResponse{Provider: docparse.ProviderAzure}, docparse.NewSourceDocument("a.pdf"), time.Now())

	assert.Equal(t, want, err)
	assert.Contains(t, buf.String(), "a.pdf")
	assert.Contains(t, buf.String(), "analyzeResult missing")
}
