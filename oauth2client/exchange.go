package oauth2client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxTokenResponseSize caps how much of a token response body is read.
const maxTokenResponseSize = 1 << 20

// exchange POSTs one token request and validates the response body.
//
// The HTTP status of the token response is not checked: a response is
// accepted whenever its body carries a bearer access token.
func exchange(ctx context.Context, s settings, tokenURL, grantType string, request any) (*oauth2.Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	form, err := encodeForm(request)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ConfigurationError{Field: "tokenURL", Reason: "cannot be used for a request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.tokenHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, &TransportError{URL: tokenURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &TransportError{URL: tokenURL, Err: fmt.Errorf("read response body: %w", err)}
	}

	token, err := parseTokenResponse(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}

	expiry := "unknown"
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.Format(time.RFC3339)
	}
	s.logf("oauth2client: obtained access token via %s grant from %s (expires: %s)", grantType, tokenURL, expiry)

	return token, nil
}

// parseTokenResponse validates a token endpoint response body.
//
// The body must be a JSON object with a non-empty string access_token and a
// token_type equal to "bearer" after trimming and lower-casing. The access
// token itself is treated as opaque.
func parseTokenResponse(statusCode int, body []byte) (*oauth2.Token, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, &ResponseShapeError{
			StatusCode: statusCode,
			Reason:     fmt.Sprintf("response body is not a JSON object: %s", abbreviate(body)),
		}
	}

	shapeError := func(reason string) error {
		errorCode, _ := stringField(fields, "error")
		description, _ := stringField(fields, "error_description")
		return &ResponseShapeError{
			StatusCode:       statusCode,
			ErrorCode:        errorCode,
			ErrorDescription: description,
			Reason:           reason,
		}
	}

	if _, ok := fields["access_token"]; !ok {
		return nil, shapeError("access_token is missing")
	}
	accessToken, ok := stringField(fields, "access_token")
	if !ok {
		return nil, shapeError(fmt.Sprintf("access_token is not a string: %s", abbreviate(fields["access_token"])))
	}
	if accessToken == "" {
		return nil, shapeError("access_token is empty")
	}

	// Only a JSON string can name the token type. Other JSON values, such as
	// ["Bearer"], are reported as they appear in the body.
	tokenType, ok := stringField(fields, "token_type")
	if !ok {
		tokenType = string(fields["token_type"])
	}
	if strings.ToLower(strings.TrimSpace(tokenType)) != "bearer" {
		return nil, &UnsupportedTokenTypeError{TokenType: tokenType}
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if refreshToken, ok := stringField(fields, "refresh_token"); ok {
		token.RefreshToken = refreshToken
	}
	if expiresIn, ok := durationField(fields, "expires_in"); ok && expiresIn > 0 {
		token.Expiry = time.Now().Add(expiresIn)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		token = token.WithExtra(raw)
	}

	return token, nil
}

// stringField returns fields[key] if it holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte{'"'}) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// durationField reads a number of seconds given as JSON number or numeric string.
func durationField(fields map[string]json.RawMessage, key string) (time.Duration, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	text := string(bytes.TrimSpace(raw))
	if s, ok := stringField(fields, key); ok {
		text = s
	}
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// abbreviate shortens body for error messages.
func abbreviate(body []byte) string {
	const limit = 128
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
