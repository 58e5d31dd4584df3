package oauth2client

import (
	"net/url"

	"github.com/gorilla/schema"
)

// Grant types sent as grant_type.
const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
)

var encoder = schema.NewEncoder()

// ClientCredentialsRequest is the form body of a client_credentials token request.
type ClientCredentialsRequest struct {
	GrantType    string `schema:"grant_type"`
	ClientID     string `schema:"client_id"`
	ClientSecret string `schema:"client_secret"`
	Scope        string `schema:"scope,omitempty"`
}

// PasswordRequest is the form body of a password token request.
type PasswordRequest struct {
	GrantType    string `schema:"grant_type"`
	ClientID     string `schema:"client_id"`
	ClientSecret string `schema:"client_secret"`
	Username     string `schema:"username"`
	Password     string `schema:"password"`
	Scope        string `schema:"scope,omitempty"`
}

func newClientCredentialsRequest(cfg GrantConfig) *ClientCredentialsRequest {
	return &ClientCredentialsRequest{
		GrantType:    GrantTypeClientCredentials,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scope:        cfg.Scope,
	}
}

func newPasswordRequest(cfg PasswordGrantConfig) *PasswordRequest {
	return &PasswordRequest{
		GrantType:    GrantTypePassword,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Scope:        cfg.Scope,
	}
}

// encodeForm encodes a tagged request struct into form values.
func encodeForm(request any) (url.Values, error) {
	form := url.Values{}
	if err := encoder.Encode(request, form); err != nil {
		return nil, err
	}
	return form, nil
}
