package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fwojciec/docparse"
	"github.com/fwojciec/docparse/azure"
	"github.com/fwojciec/docparse/gemini"
	"github.com/fwojciec/docparse/llamaparse"
	"github.com/fwojciec/docparse/mistral"
	"github.com/fwojciec/docparse/textract"
	"github.com/fwojciec/docparse/unstructured"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds per-provider settings loaded from the YAML config file.
// Zero values fall back to each backend's defaults.
type Config struct {
	Azure        AzureConfig        `yaml:"azure"`
	Textract     TextractConfig     `yaml:"textract"`
	Mistral      MistralConfig      `yaml:"mistral"`
	LlamaParse   LlamaParseConfig   `yaml:"llamaparse"`
	Unstructured UnstructuredConfig `yaml:"unstructured"`
	Gemini       GeminiConfig       `yaml:"gemini"`
}

// AzureConfig configures the Azure Document Intelligence backend.
type AzureConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// TextractConfig configures the Amazon Textract backend.
type TextractConfig struct {
	Region string `yaml:"region"`
}

// MistralConfig configures the Mistral OCR backend.
type MistralConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LlamaParseConfig configures the LlamaParse backend.
type LlamaParseConfig struct {
	BaseURL      string        `yaml:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// UnstructuredConfig configures the Unstructured backend.
type UnstructuredConfig struct {
	BaseURL  string `yaml:"base_url"`
	Strategy string `yaml:"strategy"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LoadConfig reads the YAML config at path. An empty path yields an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, docparse.Errorf(docparse.ENOTFOUND, "config file %q not found", path)
	} else if err != nil {
		return nil, docparse.Errorf(docparse.EIO, "read config %q: %v", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "parse config %q: %v", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// credentialKeys lists every environment variable a backend may read.
var credentialKeys = []string{
	azure.EndpointKey,
	azure.APIKeyKey,
	textract.AccessKeyIDKey,
	textract.SecretAccessKeyKey,
	textract.SessionTokenKey,
	textract.RegionKey,
	mistral.APIKeyKey,
	llamaparse.APIKeyKey,
	unstructured.APIKeyKey,
	gemini.APIKeyKey,
}

// Credentials resolves credentials from the environment. Endpoint and region
// settings in the config are used when the environment leaves them unset.
func (c *Config) Credentials(getenv func(string) string) docparse.Credentials {
	creds := make(docparse.Credentials, len(credentialKeys))
	for _, key := range credentialKeys {
		if v := getenv(key); v != "" {
			creds[key] = v
		}
	}
	if creds.Get(azure.EndpointKey) == "" && c.Azure.Endpoint != "" {
		creds[azure.EndpointKey] = c.Azure.Endpoint
	}
	if creds.Get(textract.RegionKey) == "" && c.Textract.Region != "" {
		creds[textract.RegionKey] = c.Textract.Region
	}
	return creds
}
