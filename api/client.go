// Package api is the HTTP client of the remote storefront backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.pilab.hu/storefront/log"
)

const (
	DefaultTimeout  = 15 * time.Second
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

// Client calls the backend. Authorization is applied by the transport, see
// Authorizer.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     log.Logger
	tokens     TokenSource
	scheme     string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthorizer installs an Authorizer in front of the client's transport.
// An empty scheme sends the raw token as the header value.
func WithAuthorizer(tokens TokenSource, scheme string) Option {
	return func(c *Client) {
		c.tokens = tokens
		c.scheme = scheme
	}
}

// New creates a Client for baseURL, e.g. "https://shop.example.com/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidInput, baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens != nil {
		hc := *c.httpClient
		hc.Transport = NewAuthorizer(hc.Transport, c.tokens, c.scheme, c.logger)
		c.httpClient = &hc
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrInvalidInput, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrInvalidInput, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	fields := log.Fields{"method": method, "path": path, "request_id": requestID}
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(err)
		c.logger.Warn(ctx, "Backend request failed", fields, log.Fields{"error": err.Error()})
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "Backend request completed", fields, log.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		// An empty success body leaves out zero-valued.
		if errors.Is(err, io.EOF) {
			return nil
		}
		// A 2xx with an undecodable body is reported with its status so
		// callers can tell it apart from a rejection.
		return &Error{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &Error{}
	if err := json.Unmarshal(raw, apiErr); err != nil {
		// Some endpoints answer with a string status or plain text.
		var loose struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &loose) == nil {
			apiErr.Message = loose.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	// The HTTP status is authoritative; the body status is often absent.
	apiErr.Status = resp.StatusCode
	return apiErr
}
