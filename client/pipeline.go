package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/habedi/storekeeper/auth"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is applied to every dispatch when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// HeaderRequestID carries the id shared by an attempt and its replay.
const HeaderRequestID = "X-Request-ID"

// Credentials is what the pipeline needs from the session layer. auth.Service implements it.
// Renew receives the access token the rejected request carried, so that a renewal which already
// replaced it is not repeated.
type Credentials interface {
	PeekAccessToken() (string, bool)
	Renew(ctx context.Context, rejected string) error
	Clear(ctx context.Context) error
}

// Descriptor describes one outbound call. It is never modified by the pipeline.
type Descriptor struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Attempt is a descriptor plus its retry state.
type Attempt struct {
	Descriptor Descriptor
	Retried    bool
	RequestID  string
}

// Response is a successful answer with its body already read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends requests with the current access token and renews the session once on
// authorization failures.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials Credentials
	UserAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
		Credentials: creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send dispatches a fresh attempt for d.
func (c *Client) Send(ctx context.Context, d Descriptor) (*Response, error) {
	return c.Do(ctx, Attempt{Descriptor: d})
}

// Get is Send for a body-less GET.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, Descriptor{Method: http.MethodGet, Path: path})
}

// Do runs one attempt. A renewable authorization failure on an attempt that was not retried yet
// leads to one shared renewal and one replay; the replay's result is final. If the renewal fails,
// the original failure is returned and the credentials are cleared when the renewal was refused
// as unauthorized.
func (c *Client) Do(ctx context.Context, a Attempt) (*Response, error) {
	if a.RequestID == "" {
		a.RequestID = uuid.NewString()
	}

	token, _ := c.Credentials.PeekAccessToken()
	resp, err := c.dispatch(ctx, a, token)
	if err == nil {
		return resp, nil
	}
	if a.Retried || Classify(err) != RenewableAuthFailure {
		return nil, err
	}
	a.Retried = true

	if renewErr := c.Credentials.Renew(ctx, token); renewErr != nil {
		if errors.Is(renewErr, auth.ErrUnauthorized) {
			log.Warn().Err(renewErr).Str("request_id", a.RequestID).Msg("Session renewal refused, clearing credentials")
			if clearErr := c.Credentials.Clear(ctx); clearErr != nil {
				log.Error().Err(clearErr).Msg("Failed to clear credentials")
			}
		} else {
			log.Warn().Err(renewErr).Str("request_id", a.RequestID).Msg("Session renewal failed, keeping credentials")
		}
		return nil, err
	}

	fresh, _ := c.Credentials.PeekAccessToken()
	return c.dispatch(ctx, a, fresh)
}

// dispatch sends the attempt once with the given token (none if empty).
func (c *Client) dispatch(ctx context.Context, a Attempt, token string) (*Response, error) {
	d := a.Descriptor
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.resolve(d.Path)

	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("url", url).Msg("Failed to create HTTP request object")
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(HeaderRequestID, a.RequestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug().Str("method", method).Str("url", url).Bool("retried", a.Retried).Msg("Sending HTTP request")
	return doRequest(c.HTTPClient, req)
}

// resolve joins a relative path with the base URL; absolute URLs pass through.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// doRequest sends req and reads the whole body. Non-2xx answers become *HTTPError.
func doRequest(hc *http.Client, req *http.Request) (*Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("Failed to read response body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Message:    messageFromBody(body),
			Body:       body,
		}
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Str("message", he.Message).Msg("HTTP request returned non-OK status")
		return nil, he
	}

	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("HTTP request successful")
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
