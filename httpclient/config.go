package httpclient

import (
	"net/http"
	"time"
)

// StatusPolicy decides whether a response status code counts as success.
// Client.Do returns a *StatusError for every status the policy rejects.
type StatusPolicy func(status int) bool

// AcceptAllStatuses treats every status code as success, leaving the
// interpretation of 4xx/5xx responses to the caller. It is the default
// policy of clients built by the grant flows.
func AcceptAllStatuses(int) bool {
	return true
}

// AcceptSuccessStatuses accepts 2xx status codes only.
func AcceptSuccessStatuses(status int) bool {
	return status >= 200 && status < 300
}

// AcceptBelow returns a policy accepting every status code lower than limit,
// e.g. AcceptBelow(400) for "anything but client and server errors".
func AcceptBelow(limit int) StatusPolicy {
	return func(status int) bool {
		return status < limit
	}
}

// Config describes an HTTP client. A zero field means "not set", so that
// several configurations can be layered with Merge.
type Config struct {
	// BaseURL is the absolute URL relative request references resolve against.
	BaseURL string

	// Headers are default headers added to every request that does not
	// already carry them.
	Headers map[string]string

	// ValidateStatus is the status policy applied by Client.Do.
	ValidateStatus StatusPolicy

	// Timeout bounds each request made through the client. Zero selects
	// DefaultTimeout, NoTimeout (or any negative value) disables it.
	Timeout time.Duration

	// Transport is the base round tripper. When nil, a clone of
	// http.DefaultTransport is used.
	Transport http.RoundTripper

	// FollowRedirects toggles automatic redirect following.
	FollowRedirects *bool

	// TLS passthrough for the base transport. Ignored when Transport is set
	// to something other than *http.Transport.
	TLSCAFile             string
	TLSCertFile           string
	TLSKeyFile            string
	TLSInsecureSkipVerify bool
}

// tlsRequested reports whether any TLS setting was supplied.
func (c Config) tlsRequested() bool {
	return c.TLSCAFile != "" || c.TLSCertFile != "" || c.TLSKeyFile != "" || c.TLSInsecureSkipVerify
}

// Merge layers configurations from lowest to highest precedence.
//
// Every non-zero field of a later layer replaces the value collected so far.
// Header maps are merged key by key using canonical header keys, so a later
// layer overrides a single header without dropping the others.
// TLSInsecureSkipVerify has no zero value to tell apart from false: once a
// layer enables it, later layers cannot disable it again.
func Merge(layers ...Config) Config {
	var merged Config
	for _, layer := range layers {
		if layer.BaseURL != "" {
			merged.BaseURL = layer.BaseURL
		}
		if len(layer.Headers) > 0 {
			merged.Headers = mergeHeaders(merged.Headers, layer.Headers)
		}
		if layer.ValidateStatus != nil {
			merged.ValidateStatus = layer.ValidateStatus
		}
		if layer.Timeout != 0 {
			merged.Timeout = layer.Timeout
		}
		if layer.Transport != nil {
			merged.Transport = layer.Transport
		}
		if layer.FollowRedirects != nil {
			follow := *layer.FollowRedirects
			merged.FollowRedirects = &follow
		}
		if layer.TLSCAFile != "" {
			merged.TLSCAFile = layer.TLSCAFile
		}
		if layer.TLSCertFile != "" {
			merged.TLSCertFile = layer.TLSCertFile
		}
		if layer.TLSKeyFile != "" {
			merged.TLSKeyFile = layer.TLSKeyFile
		}
		if layer.TLSInsecureSkipVerify {
			merged.TLSInsecureSkipVerify = true
		}
	}
	return merged
}

// mergeHeaders returns a new map holding base overlaid by overlay.
func mergeHeaders(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range overlay {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

// BearerHeaders returns the header set carrying the given access token.
func BearerHeaders(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}
