package oauthlink

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// AuthorizationURL builds the URL the end user must be redirected to in
// order to start linking an account at the given provider.
//
// codeVerifier is the caller-generated PKCE verifier; its S256 challenge is
// derived here so the later exchange can present the same verifier. The
// generically built URL is passed through the provider variant's rewrite,
// which returns it unchanged for providers without quirks.
func (e *Engine) AuthorizationURL(ctx context.Context, p *Profile, redirectURI, state, codeVerifier string) (string, error) {
	authorizeURL, _, _, err := e.endpoints(ctx, p)
	if err != nil {
		return "", err
	}
	if authorizeURL == "" {
		return "", fmt.Errorf("provider %s has no authorization endpoint configured", p.Name)
	}

	cfg := &oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(p.Scope),
		Endpoint:    oauth2.Endpoint{AuthURL: authorizeURL},
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("access_type", p.AccessType),
		oauth2.SetAuthURLParam("prompt", p.Prompt),
		oauth2.SetAuthURLParam("code_challenge", CodeChallengeS256(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", p.CodeChallengeMethod),
	}

	return variantFor(p.Name).rewriteAuthorizationURL(p, cfg.AuthCodeURL(state, opts...)), nil
}
