// =============================================================================
// ifirma client - HTTP Transport
// =============================================================================
//
// This module sends signed requests to the ifirma API and hands the raw
// response back to the caller.
//
// RESPONSE HANDLING:
//   - Any JSON body, whatever the status, is returned for envelope parsing.
//   - A non-JSON body with status < 400 is returned as a raw rendering
//     (PDF, XML).
//   - A non-JSON body with status >= 400 and every network failure is a
//     *Error matching ErrTransport.
//
// There are no retries.
//
// =============================================================================

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/ginjaninja78/ifirma-client/internal/logctx"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

const (
	// DefaultBaseURL is the production ifirma host.
	DefaultBaseURL = "https://www.ifirma.pl/"

	// DefaultTimeout bounds one request when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// Config holds the transport settings.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Username is the ifirma login.
	Username string

	// InvoicesKey is the hex "faktura" API key.
	InvoicesKey string

	// Timeout defaults to DefaultTimeout. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient replaces the default client.
	HTTPClient *http.Client

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	signer *Signer
	log    *slog.Logger
}

// Response is one raw HTTP reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsJSON reports whether the body is declared as JSON.
func (r *Response) IsJSON() bool {
	if r == nil || r.ContentType == "" {
		return false
	}
	return contenttype.NewMediaType(r.ContentType).Matches(jsonMediaType)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	signer, err := NewSigner(cfg.Username, InvoicesKeyName, cfg.InvoicesKey)
	if err != nil {
		return nil, err
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &types.ConfigurationError{Field: "base_url", Reason: fmt.Sprintf("invalid URL %q", raw)}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Client{base: base, http: hc, signer: signer, log: log}, nil
}

// Send performs one request. path is resolved against the base URL and may
// carry a query string. A non-nil body is JSON-encoded.
func (c *Client) Send(ctx context.Context, method, path string, body any) (*Response, error) {
	ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
		RequestID: uuid.NewString(),
		Method:    method,
		Path:      path,
	})
	start := time.Now()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &Error{Method: method, Path: path, Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
	}

	target, err := c.base.Parse(path)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Err: fmt.Errorf("failed to resolve path: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Method: method, Path: path, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	c.signer.Apply(req, payload)

	c.log.DebugContext(ctx, "transport.send.start")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "transport.send.error", slog.String("err", err.Error()))
		return nil, &Error{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}

	c.log.DebugContext(ctx, "transport.send.done",
		slog.Int("status", out.StatusCode),
		slog.String("content_type", out.ContentType),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest && !out.IsJSON() {
		return out, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return out, nil
}
