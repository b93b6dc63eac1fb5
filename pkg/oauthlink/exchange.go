package oauthlink

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
)

// ExchangeCode turns a provider redirect callback into a Credential.
//
// callbackParams is the query map from the provider's redirect; redirectURI
// and codeVerifier must match the values used when the authorization URL
// was built. nonce is optional: when set and the provider returned an
// id_token, its claims are validated against the provider JWKS and attached
// to the raw response under "userinfo" before normalization. Authorization
// codes are single-use, so exactly one exchange attempt is made and nothing
// is retried.
func (e *Engine) ExchangeCode(ctx context.Context, p *Profile, callbackParams url.Values, redirectURI, codeVerifier, nonce string) (*Credential, error) {
	// A provider-reported error supersedes everything else and must never
	// trigger a token-endpoint request.
	if errCode := callbackParams.Get("error"); errCode != "" {
		cbErr := &CallbackError{
			Provider:    p.Name,
			Code:        errCode,
			Description: callbackParams.Get("error_description"),
		}
		e.logger.WithFields(logrus.Fields{
			"provider": p.Name,
			"error":    errCode,
		}).Error("account linking failed with provider error")
		return nil, cbErr
	}

	code := callbackParams.Get("code")
	if code == "" {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: "callback carries neither code nor error"}
	}

	raw, err := variantFor(p.Name).exchange(ctx, e, p, code, callbackParams.Get("state"), redirectURI, codeVerifier, nonce)
	if err != nil {
		return nil, err
	}

	return Normalize(p.Name, raw, e.now())
}

// standardExchange submits the authorization-code grant through the generic
// token-endpoint path and handles optional id-token decoding.
func (e *Engine) standardExchange(ctx context.Context, p *Profile, code, state, redirectURI, codeVerifier, nonce string) (RawTokenResponse, error) {
	_, tokenURL, jwksURL, err := e.endpoints(ctx, p)
	if err != nil {
		return nil, err
	}
	if tokenURL == "" {
		return nil, fmt.Errorf("provider %s has no token endpoint configured", p.Name)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if state != "" {
		form.Set("state", state)
	}
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", codeVerifier)

	raw, err := e.tokenRequest(ctx, p, tokenURL, form)
	if err != nil {
		return nil, err
	}

	// Without a nonce the caller has opted out of identity-claim
	// verification and the id_token is left unprocessed.
	if nonce != "" {
		if idToken, _ := rawString(raw, "id_token"); idToken != "" {
			claims, err := e.decodeIDToken(ctx, p, jwksURL, idToken, nonce)
			if err != nil {
				return nil, err
			}
			raw["userinfo"] = claims
		}
	}
	return raw, nil
}
