package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// HeaderTransport is an http.RoundTripper that applies client defaults to
// outgoing HTTP requests.
//
// It resolves relative request URLs against BaseURL and adds every default
// header the request does not set itself, so per-request headers always win.
// Sensitive defaults (Authorization, Cookie) are only added while a redirect
// chain stays on the host of its first request or a subdomain of it, the same
// rule http.Client applies to headers set on the request.
// The original request is never modified.
type HeaderTransport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// BaseURL is the absolute URL relative references resolve against. May be nil.
	BaseURL *url.URL

	// Header holds the default headers.
	Header http.Header
}

// NewHeaderTransport creates a HeaderTransport with a copy of the given headers.
// The base transport defaults to http.DefaultTransport if not specified.
func NewHeaderTransport(base http.RoundTripper, baseURL *url.URL, header http.Header) *HeaderTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &HeaderTransport{
		Base:    base,
		BaseURL: baseURL,
		Header:  header.Clone(),
	}
}

// RoundTrip implements http.RoundTripper interface.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil {
		return nil, fmt.Errorf("httpclient: request URL is nil")
	}

	// Clone the request to avoid modifying the original
	reqClone := req.Clone(req.Context())

	if !reqClone.URL.IsAbs() {
		if t.BaseURL == nil {
			return nil, fmt.Errorf("httpclient: relative URL %q without base URL", req.URL.String())
		}
		reqClone.URL = resolveReference(t.BaseURL, reqClone.URL)
		reqClone.Host = ""
	}

	if reqClone.Header == nil {
		reqClone.Header = make(http.Header, len(t.Header))
	}
	leftHost := req.Response != nil && !isDomainOrSubdomain(reqClone.URL.Hostname(), t.initialHost(req))
	for key, values := range t.Header {
		if _, ok := reqClone.Header[key]; ok {
			continue
		}
		if leftHost && sensitiveHeaders[key] {
			continue
		}
		reqClone.Header[key] = append([]string(nil), values...)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(reqClone)
}

// sensitiveHeaders are the default headers that are not forwarded to another host.
var sensitiveHeaders = map[string]bool{
	"Authorization":    true,
	"Www-Authenticate": true,
	"Cookie":           true,
	"Cookie2":          true,
}

// initialHost returns the hostname of the first request of a redirect chain.
func (t *HeaderTransport) initialHost(req *http.Request) string {
	for req.Response != nil && req.Response.Request != nil {
		req = req.Response.Request
	}
	if req.URL == nil {
		return ""
	}

	u := req.URL
	if !u.IsAbs() && t.BaseURL != nil {
		u = resolveReference(t.BaseURL, u)
	}
	return u.Hostname()
}

// isDomainOrSubdomain reports whether sub is parent or a subdomain of it.
func isDomainOrSubdomain(sub, parent string) bool {
	sub, parent = strings.ToLower(sub), strings.ToLower(parent)
	if sub == parent {
		return true
	}
	if parent == "" || net.ParseIP(parent) != nil {
		return false
	}
	return strings.HasSuffix(sub, "."+parent)
}

// resolveReference joins ref onto base the way API clients expect: the base
// path is kept as a prefix, so "https://api/v1" + "users" and
// "https://api/v1" + "/users" both end up at "https://api/v1/users".
func resolveReference(base, ref *url.URL) *url.URL {
	if ref.Path == "" {
		return base.ResolveReference(ref)
	}

	joined := *ref
	joined.Scheme = base.Scheme
	joined.Host = base.Host
	joined.User = base.User
	joined.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	joined.RawPath = ""
	return &joined
}
