// Package http provides the HTTP plumbing shared by provider backends:
// status classification into docparse error codes, JSON decoding, multipart
// uploads and job polling.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fwojciec/docparse"
)

// DefaultTimeout is the default timeout for a single provider request.
const DefaultTimeout = 2 * time.Minute

// maxErrorBody limits how much of an error response ends up in messages.
const maxErrorBody = 512

// Client sends provider requests and maps failures onto docparse error codes.
type Client struct {
	provider docparse.Provider
	client   *http.Client
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout for each request.
// Defaults to DefaultTimeout (2m) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets the underlying HTTP client. Its timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a new Client for provider.
func NewClient(provider docparse.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Do sends req and decodes a successful JSON response body into out, unless
// out is nil. It returns the response headers.
func (c *Client) Do(req *http.Request, out any) (http.Header, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, StatusError(c.provider, resp.StatusCode, string(body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, docparse.Errorf(docparse.EPROVIDER, "%s: decode response: %v", c.provider, err)
	}

	return resp.Header, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return docparse.Errorf(docparse.ECANCELED, "%s: %v", c.provider, ctxErr)
	}
	return docparse.Errorf(docparse.ETRANSIENT, "%s: %v", c.provider, err)
}

// StatusError maps an HTTP error status onto a docparse error.
// 401 and 403 are EAUTH; 408, 429 and 5xx are ETRANSIENT; other statuses are
// EPROVIDER.
func StatusError(provider docparse.Provider, status int, body string) error {
	code := docparse.EPROVIDER
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = docparse.EAUTH
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		code = docparse.ETRANSIENT
	}
	if body == "" {
		return docparse.Errorf(code, "%s: HTTP %d", provider, status)
	}
	return docparse.Errorf(code, "%s: HTTP %d: %s", provider, status, body)
}

// NewJSONRequest builds a request with a JSON-encoded body.
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINTERNAL, "marshal request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// NewMultipartRequest builds a multipart/form-data request carrying a single
// file under field and the given form fields.
func NewMultipartRequest(ctx context.Context, url, field, fileName string, data []byte, fields map[string]string) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, docparse.Errorf(docparse.EINTERNAL, "write form field %s: %v", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINTERNAL, "create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, docparse.Errorf(docparse.EINTERNAL, "write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		return nil, docparse.Errorf(docparse.EINTERNAL, "close multipart body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, docparse.Errorf(docparse.EINVALID, "build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// ContentType guesses a MIME type from a file name.
func ContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ErrPending is returned by a PollFunc while the job has not finished.
var ErrPending = errors.New("pending")

// PollFunc checks a job once. It returns ErrPending while the job runs.
type PollFunc func(ctx context.Context) error

// Poll calls check every interval until it returns something other than
// ErrPending, the context ends, or maxWait elapses (ETRANSIENT).
func Poll(ctx context.Context, interval, maxWait time.Duration, check PollFunc) error {
	deadline := time.Now().Add(maxWait)
	for {
		err := check(ctx)
		if !errors.Is(err, ErrPending) {
			return err
		}
		if time.Now().After(deadline) {
			return docparse.Errorf(docparse.ETRANSIENT, "job still pending after %s", maxWait)
		}

		select {
		case <-ctx.Done():
			return docparse.Errorf(docparse.ECANCELED, "polling stopped: %v", ctx.Err())
		case <-time.After(interval):
		}
	}
}
