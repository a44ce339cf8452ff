package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gmail-ai-agent/internal/session"
)

// OAuthConfig returns the OAuth2 configuration for a Google client.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// TokenSource returns a token source for the credentials in creds.
//
// The access token is used until Google rejects it; the refresh token and
// client credentials are then used to obtain a new one.
func TokenSource(ctx context.Context, creds session.Credentials) oauth2.TokenSource {
	return tokenSource(ctx, OAuthConfig(creds.ClientID, creds.ClientSecret, ""), creds)
}

func tokenSource(ctx context.Context, conf *oauth2.Config, creds session.Credentials) oauth2.TokenSource {
	return conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  creds.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: creds.RefreshToken,
	})
}

// HTTPClient returns an HTTP client authenticated with creds.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, creds session.Credentials) *http.Client {
	return newHTTPClient(ctx, TokenSource(ctx, creds))
}

func newHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}

	return client
}

// Exchanger trades authorization codes for credential bundles using the
// application's own OAuth client.
type Exchanger struct {
	ClientID     string
	ClientSecret string

	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
}

// NewExchanger creates an Exchanger for the given OAuth client.
func NewExchanger(clientID, clientSecret string) *Exchanger {
	return &Exchanger{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
	}
}

// Exchange trades code for tokens. The returned bundle carries the
// application's client id and secret so it can be sealed into a session.
func (e *Exchanger) Exchange(ctx context.Context, code, redirectURI string) (*session.Credentials, error) {
	if e.ClientID == "" || e.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth client is not configured")
	}

	conf := OAuthConfig(e.ClientID, e.ClientSecret, redirectURI)
	if e.Endpoint.TokenURL != "" {
		conf.Endpoint = e.Endpoint
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("token response is missing an access or refresh token")
	}

	return &session.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ClientID:     e.ClientID,
		ClientSecret: e.ClientSecret,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// AuthCodeURL returns the consent page URL for the application's client.
func (e *Exchanger) AuthCodeURL(redirectURI, state string) string {
	conf := OAuthConfig(e.ClientID, e.ClientSecret, redirectURI)
	if e.Endpoint.AuthURL != "" {
		conf.Endpoint = e.Endpoint
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
