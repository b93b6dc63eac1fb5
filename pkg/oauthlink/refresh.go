package oauthlink

import (
	"context"
	"fmt"
	"net/url"
)

// Refresh performs the refresh-token grant and returns the raw provider
// response unnormalized. Callers re-run it through Normalize with the same
// provider-keyed rules, since refreshed tokens are shaped identically to
// initial ones. There is no provider-specific bypass for refresh.
func (e *Engine) Refresh(ctx context.Context, p *Profile, refreshToken string) (RawTokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("provider %s: refresh requires a refresh token", p.Name)
	}

	_, tokenURL, _, err := e.endpoints(ctx, p)
	if err != nil {
		return nil, err
	}
	endpoint := p.RefreshTokenURL
	if endpoint == "" {
		endpoint = tokenURL
	}
	if endpoint == "" {
		return nil, fmt.Errorf("provider %s has no token endpoint configured", p.Name)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return e.tokenRequest(ctx, p, endpoint, form)
}
