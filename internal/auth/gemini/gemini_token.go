// Package gemini provides OAuth2 credential handling for the generative
// language API. When OAuth credentials are configured they take precedence
// over plain API keys on the upstream path.
package gemini

import (
	"context"
	"net/http"

	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope required to call the generative language API.
const generativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

// NewTokenSource builds a self-refreshing token source from the configured
// OAuth client and refresh token. The provided HTTP client (with any proxy
// transport already attached) performs the refresh requests.
func NewTokenSource(ctx context.Context, cfg *config.Config, httpClient *http.Client) oauth2.TokenSource {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GeminiOAuth.ClientID,
		ClientSecret: cfg.GeminiOAuth.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{generativeLanguageScope},
	}

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	token := &oauth2.Token{RefreshToken: cfg.GeminiOAuth.RefreshToken}
	return oauth2.ReuseTokenSource(nil, oauthConfig.TokenSource(ctx, token))
}
