package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/azure"
	"github.com/fwojciec/docparse/batch"
	"github.com/fwojciec/docparse/gemini"
	"github.com/fwojciec/docparse/llamaparse"
	"github.com/fwojciec/docparse/mistral"
	dpslog "github.com/fwojciec/docparse/slog"
	"github.com/fwojciec/docparse/textract"
	"github.com/fwojciec/docparse/unstructured"
)

// backendInfos describes every provider for the backends command.
var backendInfos = []docparse.BackendInfo{
	{
		Provider:    docparse.ProviderAzure,
		Description: "Azure Document Intelligence prebuilt-layout",
		Credentials: []string{azure.EndpointKey, azure.APIKeyKey},
	},
	{
		Provider:    docparse.ProviderTextract,
		Description: "Amazon Textract AnalyzeDocument (falls back to the AWS credential chain)",
		Credentials: []string{textract.AccessKeyIDKey, textract.SecretAccessKeyKey},
	},
	{
		Provider:    docparse.ProviderMistral,
		Description: "Mistral OCR",
		Credentials: []string{mistral.APIKeyKey},
	},
	{
		Provider:    docparse.ProviderLlamaParse,
		Description: "LlamaParse markdown parsing",
		Credentials: []string{llamaparse.APIKeyKey},
	},
	{
		Provider:    docparse.ProviderUnstructured,
		Description: "Unstructured partition API",
		Credentials: []string{unstructured.APIKeyKey},
	},
	{
		Provider:    docparse.ProviderGemini,
		Description: "Gemini page transcription",
		Credentials: []string{gemini.APIKeyKey},
	},
}

// newBackend creates the backend for provider configured from cfg.
func newBackend(provider docparse.Provider, cfg *Config) (docparse.Backend, error) {
	switch provider {
	case docparse.ProviderAzure:
		var opts []azure.Option
		if cfg.Azure.Model != "" {
			opts = append(opts, azure.WithModel(cfg.Azure.Model))
		}
		if cfg.Azure.PollInterval > 0 {
			opts = append(opts, azure.WithPollInterval(cfg.Azure.PollInterval))
		}
		if cfg.Azure.MaxWait > 0 {
			opts = append(opts, azure.WithMaxWait(cfg.Azure.MaxWait))
		}
		return azure.NewBackend(opts...), nil
	case docparse.ProviderTextract:
		var opts []textract.Option
		if cfg.Textract.Region != "" {
			opts = append(opts, textract.WithRegion(cfg.Textract.Region))
		}
		return textract.NewBackend(opts...), nil
	case docparse.ProviderMistral:
		var opts []mistral.Option
		if cfg.Mistral.BaseURL != "" {
			opts = append(opts, mistral.WithBaseURL(cfg.Mistral.BaseURL))
		}
		if cfg.Mistral.Model != "" {
			opts = append(opts, mistral.WithModel(cfg.Mistral.Model))
		}
		return mistral.NewBackend(opts...), nil
	case docparse.ProviderLlamaParse:
		var opts []llamaparse.Option
		if cfg.LlamaParse.BaseURL != "" {
			opts = append(opts, llamaparse.WithBaseURL(cfg.LlamaParse.BaseURL))
		}
		if cfg.LlamaParse.PollInterval > 0 {
			opts = append(opts, llamaparse.WithPollInterval(cfg.LlamaParse.PollInterval))
		}
		if cfg.LlamaParse.MaxWait > 0 {
			opts = append(opts, llamaparse.WithMaxWait(cfg.LlamaParse.MaxWait))
		}
		return llamaparse.NewBackend(opts...), nil
	case docparse.ProviderUnstructured:
		var opts []unstructured.Option
		if cfg.Unstructured.BaseURL != "" {
			opts = append(opts, unstructured.WithBaseURL(cfg.Unstructured.BaseURL))
		}
		if cfg.Unstructured.Strategy != "" {
			opts = append(opts, unstructured.WithStrategy(cfg.Unstructured.Strategy))
		}
		return unstructured.NewBackend(opts...), nil
	case docparse.ProviderGemini:
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		if cfg.Gemini.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Gemini.Model))
		}
		return gemini.NewBackend(opts...), nil
	default:
		return nil, docparse.Errorf(docparse.EINVALID, "unknown backend %q", provider)
	}
}

// wrapBackend decorates b with retries, rate limiting and logging.
// Each retry attempt waits on the rate limiter.
func wrapBackend(b docparse.Backend, limiter *batch.ProviderLimiter, logger *slog.Logger) docparse.Backend {
	var backend docparse.Backend = batch.NewRateLimitedBackend(b, limiter)
	backend = batch.NewRetryBackend(backend, batch.DefaultRetryDelays(), logger)
	return dpslog.NewLoggingBackend(backend, logger)
}

// Run executes the backends command.
func (c *BackendsCmd) Run(deps *Dependencies) error {
	for _, info := range backendInfos {
		status := "ready"
		if err := deps.Credentials.Require(info.Provider, info.Credentials...); err != nil {
			status = "missing credentials"
			// Textract authenticates through the AWS default chain without static keys.
			if info.Provider == docparse.ProviderTextract {
				status = "credential chain"
			}
		}
		fmt.Fprintf(deps.Stdout, "%-13s %-19s %s\n", info.Provider, status, info.Description)
		fmt.Fprintf(deps.Stdout, "%-13s %s\n", "", strings.Join(info.Credentials, ", "))
	}
	return nil
}
