package oauthlink

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Provider names with dedicated quirk handling. Every other registered name
// takes the default variant.
const (
	ProviderSlack    = "SLACK"
	ProviderLinkedIn = "LINKEDIN"
)

// linkedinScope is the scope set registered in the LinkedIn developer
// console. The authorization URL must carry exactly this value; it is
// intentionally independent of Profile.Scope.
const linkedinScope = "openid profile email w_member_social"

// linkedinAccessTokenURL is the documented endpoint used by the bypass
// exchange.
const linkedinAccessTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

// variant is the closed set of provider behaviors. Each implementation
// carries the full quirk surface for one provider family: profile defaults,
// authorization URL rewriting, code exchange, and token-response
// normalization. Dispatch is total: names without a dedicated variant fall
// through to defaultVariant, which applies no rewrite and the standard
// flows.
type variant interface {
	applyProfileDefaults(p *Profile)
	rewriteAuthorizationURL(p *Profile, authorizationURL string) string
	exchange(ctx context.Context, e *Engine, p *Profile, code, state, redirectURI, codeVerifier, nonce string) (RawTokenResponse, error)
	normalize(provider string, raw RawTokenResponse, now time.Time) (*Credential, error)
}

var variants = map[string]variant{
	ProviderSlack:    slackVariant{},
	ProviderLinkedIn: linkedinVariant{},
}

func variantFor(name string) variant {
	if v, ok := variants[name]; ok {
		return v
	}
	return defaultVariant{}
}

type defaultVariant struct{}

func (defaultVariant) applyProfileDefaults(*Profile) {}

func (defaultVariant) rewriteAuthorizationURL(_ *Profile, authorizationURL string) string {
	return authorizationURL
}

func (defaultVariant) exchange(ctx context.Context, e *Engine, p *Profile, code, state, redirectURI, codeVerifier, nonce string) (RawTokenResponse, error) {
	return e.standardExchange(ctx, p, code, state, redirectURI, codeVerifier, nonce)
}

func (defaultVariant) normalize(provider string, raw RawTokenResponse, now time.Time) (*Credential, error) {
	accessToken, _ := rawString(raw, "access_token")
	if accessToken == "" {
		return nil, &InvalidResponseError{Provider: provider, Reason: "missing access_token"}
	}
	cred := &Credential{AccessToken: accessToken, Raw: raw}
	cred.TokenType, _ = rawString(raw, "token_type")
	cred.RefreshToken, _ = rawString(raw, "refresh_token")
	if expiresIn, ok := rawInt64(raw, "expires_in"); ok {
		cred.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	}
	return cred, nil
}

type slackVariant struct{}

func (slackVariant) applyProfileDefaults(*Profile) {}

// Slack distinguishes app-level from user-level scopes: the requested
// scopes must travel in user_scope while scope itself stays empty.
func (slackVariant) rewriteAuthorizationURL(_ *Profile, authorizationURL string) string {
	original, ok := scopeParam(authorizationURL)
	if !ok {
		return authorizationURL
	}
	return strings.Replace(authorizationURL,
		"scope="+original, "user_scope="+original+"&scope=", 1)
}

func (slackVariant) exchange(ctx context.Context, e *Engine, p *Profile, code, state, redirectURI, codeVerifier, nonce string) (RawTokenResponse, error) {
	return e.standardExchange(ctx, p, code, state, redirectURI, codeVerifier, nonce)
}

// Slack nests the user token under authed_user; the top-level access_token,
// when present, belongs to the bot installation and is not the linked
// credential.
func (slackVariant) normalize(provider string, raw RawTokenResponse, now time.Time) (*Credential, error) {
	authedUser, ok := raw["authed_user"].(map[string]any)
	if !ok {
		return nil, &InvalidResponseError{Provider: provider, Reason: "missing authed_user object"}
	}
	accessToken, _ := rawString(authedUser, "access_token")
	if accessToken == "" {
		return nil, &InvalidResponseError{Provider: provider, Reason: "missing access_token under authed_user"}
	}
	cred := &Credential{AccessToken: accessToken, Raw: raw}
	cred.TokenType, _ = rawString(authedUser, "token_type")
	cred.RefreshToken, _ = rawString(authedUser, "refresh_token")
	if expiresIn, ok := rawInt64(authedUser, "expires_in"); ok {
		cred.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	}
	return cred, nil
}

type linkedinVariant struct{}

// LinkedIn rejects basic-auth token requests; the secret must travel in the
// request body.
func (linkedinVariant) applyProfileDefaults(p *Profile) {
	if p.TokenEndpointAuthMethod == "" {
		p.TokenEndpointAuthMethod = AuthMethodClientSecretPost
	}
}

func (linkedinVariant) rewriteAuthorizationURL(_ *Profile, authorizationURL string) string {
	if !strings.Contains(authorizationURL, "&response_type=code") &&
		!strings.Contains(authorizationURL, "?response_type=code") {
		authorizationURL += querySeparator(authorizationURL) + "response_type=code"
	}

	// The scope parameter must exactly match the scopes registered in the
	// developer console, or LinkedIn rejects the request.
	encodedScope := strings.ReplaceAll(linkedinScope, " ", "%20")
	original, ok := scopeParam(authorizationURL)
	if !ok {
		return authorizationURL + querySeparator(authorizationURL) + "scope=" + encodedScope
	}
	return strings.Replace(authorizationURL,
		"scope="+original, "scope="+encodedScope, 1)
}

// exchange performs the documented direct token exchange. LinkedIn does not
// accept PKCE at this endpoint, so the verifier stays off the wire even
// though authorization required a challenge. The parameter set is fixed:
// client credentials always travel in the form body, independent of the
// profile's configured auth method.
func (linkedinVariant) exchange(ctx context.Context, e *Engine, p *Profile, code, _, redirectURI, _, _ string) (RawTokenResponse, error) {
	endpoint := linkedinAccessTokenURL
	if p.AccessTokenURL != "" {
		endpoint = p.AccessTokenURL
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	return e.tokenRequest(ctx, p, endpoint, form)
}

func (linkedinVariant) normalize(provider string, raw RawTokenResponse, now time.Time) (*Credential, error) {
	accessToken, _ := rawString(raw, "access_token")
	if accessToken == "" {
		return nil, &InvalidResponseError{Provider: provider, Reason: "missing access_token"}
	}
	cred := &Credential{AccessToken: accessToken, Raw: raw}
	if cred.TokenType, _ = rawString(raw, "token_type"); cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	cred.RefreshToken, _ = rawString(raw, "refresh_token")
	// LinkedIn is known to omit expires_in; assume the documented hour.
	expiresIn, ok := rawInt64(raw, "expires_in")
	if !ok {
		expiresIn = 3600
	}
	cred.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	return cred, nil
}

// scopeParam extracts the value of the first scope query parameter.
func scopeParam(authorizationURL string) (string, bool) {
	idx := strings.Index(authorizationURL, "scope=")
	if idx == -1 {
		return "", false
	}
	start := idx + len("scope=")
	end := strings.Index(authorizationURL[start:], "&")
	if end == -1 {
		end = len(authorizationURL)
	} else {
		end += start
	}
	return authorizationURL[start:end], true
}

func querySeparator(u string) string {
	if strings.Contains(u, "?") {
		return "&"
	}
	return "?"
}
