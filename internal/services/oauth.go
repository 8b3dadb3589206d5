package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// Supported OAuth providers.
const (
	ProviderFacebook = "facebook"
	ProviderGoogle   = "google"
)

// ErrProviderRejected is returned when a provider refuses the access token.
var ErrProviderRejected = errors.New("oauth provider rejected access token")

// OAuthProfile is the identity a provider reports for an access token.
type OAuthProfile struct {
	Service string
	ID      string
	Name    string
	Email   string
}

// OAuthProvider resolves provider access tokens into profiles.
type OAuthProvider interface {
	Profile(ctx context.Context, accessToken string) (OAuthProfile, error)
}

// userInfoProvider calls a provider's user info endpoint with the access
// token as a bearer credential.
type userInfoProvider struct {
	service  string
	endpoint string
	idField  string
	client   *http.Client
}

// NewFacebookProvider resolves tokens through the Graph API "me" endpoint.
func NewFacebookProvider(endpoint string, client *http.Client) OAuthProvider {
	return &userInfoProvider{
		service:  ProviderFacebook,
		endpoint: withQuery(endpoint, "fields", "id,name,email"),
		idField:  "id",
		client:   client,
	}
}

// NewGoogleProvider resolves tokens through the OpenID userinfo endpoint.
func NewGoogleProvider(endpoint string, client *http.Client) OAuthProvider {
	return &userInfoProvider{
		service:  ProviderGoogle,
		endpoint: endpoint,
		idField:  "sub",
		client:   client,
	}
}

func (p *userInfoProvider) Profile(ctx context.Context, accessToken string) (OAuthProfile, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return OAuthProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return OAuthProfile{}, fmt.Errorf("%s userinfo: %w", p.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return OAuthProfile{}, ErrProviderRejected
	}
	if resp.StatusCode != http.StatusOK {
		return OAuthProfile{}, fmt.Errorf("%s userinfo: unexpected status %d", p.service, resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return OAuthProfile{}, fmt.Errorf("%s userinfo: %w", p.service, err)
	}

	profile := OAuthProfile{
		Service: p.service,
		ID:      stringField(body, p.idField),
		Name:    stringField(body, "name"),
		Email:   stringField(body, "email"),
	}
	if profile.ID == "" {
		return OAuthProfile{}, ErrProviderRejected
	}
	if profile.Email == "" {
		return OAuthProfile{}, fmt.Errorf("%s userinfo: no email granted: %w", p.service, ErrProviderRejected)
	}
	return profile, nil
}

func stringField(body map[string]any, key string) string {
	value, _ := body[key].(string)
	return value
}

func withQuery(endpoint, key, value string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
