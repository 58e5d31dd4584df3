package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps the response body kept in a StatusError.
const maxErrorBody = 64 << 10

// Client is an HTTP client bound to an optional base URL, a set of default
// headers and a status policy.
//
// Clients are safe for concurrent use. They hold no token state of their
// own: a client produced by a grant flow keeps sending the token it was
// built with for as long as the caller keeps it.
type Client struct {
	httpClient     *http.Client
	baseURL        *url.URL
	header         http.Header
	validateStatus StatusPolicy
}

// StatusError is returned by Client.Do when the status policy rejects a
// response. The response body has already been read and closed.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("httpclient: unexpected response status %s", e.Status)
	}
	return fmt.Sprintf("httpclient: unexpected response status %s: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// HTTPClient returns the underlying *http.Client. Requests sent through it
// get the base URL and default headers, but bypass the status policy.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL returns a copy of the base URL, or nil if none is configured.
func (c *Client) BaseURL() *url.URL {
	if c.baseURL == nil {
		return nil
	}
	u := *c.baseURL
	return &u
}

// Header returns a copy of the default headers.
func (c *Client) Header() http.Header {
	return c.header.Clone()
}

// StatusPolicy returns the policy applied by Do.
func (c *Client) StatusPolicy() StatusPolicy {
	return c.validateStatus
}

// NewRequest creates a request for ref, which may be relative to the base URL.
// Relative references are resolved here so redirects are followed from the
// absolute URL.
func (c *Client) NewRequest(ctx context.Context, method, ref string, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid request URL %q: %w", ref, err)
	}
	if !u.IsAbs() && c.baseURL != nil {
		u = resolveReference(c.baseURL, u)
	}
	return http.NewRequestWithContext(ctx, method, u.String(), body)
}

// Do sends the request and applies the status policy to the response.
//
// When the policy rejects the status, the body is drained into a
// *StatusError and the response is not returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if c.validateStatus == nil || c.validateStatus(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}
}

// Get issues a GET request for ref.
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post issues a POST request for ref with the given content type.
func (c *Client) Post(ctx context.Context, ref, contentType string, body io.Reader) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, ref, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// PostForm issues a POST request for ref with form-encoded values.
func (c *Client) PostForm(ctx context.Context, ref string, data url.Values) (*http.Response, error) {
	return c.Post(ctx, ref, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}
