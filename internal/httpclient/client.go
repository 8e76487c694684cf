// Package httpclient is the thin adapter every linking step uses to talk to the
// remote services. It issues GET and form POST requests, returns the status and the
// raw body, and reports connectivity failures as typed transport errors. Deciding
// what a status means is left to the caller.
package httpclient

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	utls "github.com/refraction-networking/utls"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Client issues requests to a single named remote service.
type Client struct {
	service   string
	http      *http.Client
	userAgent string
	roots     *x509.CertPool
	logger    *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent applied when the request does not carry one.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRootCAs sets the roots a browser-like client verifies servers against. Nil
// means the system pool.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) {
		c.roots = pool
	}
}

// New creates a Client for the named service with the given timeout.
func New(service string, timeout time.Duration, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		service: service,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBrowserLike creates a Client that presents a Safari TLS ClientHello and speaks
// HTTP/2 or HTTP/1.1 as the server negotiates. Options are applied before the
// transport is built, so WithHTTPClient has no effect here.
func NewBrowserLike(service string, timeout time.Duration, userAgent string, logger *logrus.Logger, opts ...Option) *Client {
	c := New(service, timeout, logger, append([]Option{WithUserAgent(userAgent)}, opts...)...)
	c.http = &http.Client{
		Timeout:   timeout,
		Transport: newFingerprintTransport(utls.HelloSafari_Auto, c.roots, timeout),
	}
	return c
}

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Query  url.Values
	Form   url.Values
}

// Response is the status and body of a completed call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is exactly 200.
func (r *Response) OK() bool {
	return r.Status == http.StatusOK
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Service returns the name used in error messages.
func (c *Client) Service() string {
	return c.service
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, header map[string]string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL, Header: header, Query: query})
}

// PostForm issues a POST request with an application/x-www-form-urlencoded body.
func (c *Client) PostForm(ctx context.Context, rawURL string, header map[string]string, form url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: rawURL, Header: header, Form: form})
}

// Do sends the request. Any status is returned as a Response; only failures to
// complete the exchange are returned as errors.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	target := r.URL
	if len(r.Query) > 0 {
		u, err := url.Parse(r.URL)
		if err != nil {
			return nil, apperrors.NewTransportError(c.service, err)
		}
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body io.Reader
	if r.Form != nil {
		body = strings.NewReader(r.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, apperrors.NewTransportError(c.service, err)
	}
	if r.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	c.logger.Debugf("%s %s (%s)", r.Method, redact(target), c.service)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Errorf("%s request to %s failed: %v", c.service, redact(target), err)
		return nil, apperrors.NewTransportError(c.service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewTransportError(c.service, err)
	}
	c.logger.Debugf("%s responded with status %d", c.service, resp.StatusCode)

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

// redact drops the query string so device codes and country hints stay out of logs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
