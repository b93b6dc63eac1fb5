package oauthlink

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
)

// decodeIDToken validates an id_token signature against the provider's
// JWKS, checks the nonce claim, and returns the decoded claims.
func (e *Engine) decodeIDToken(ctx context.Context, p *Profile, jwksURL, idToken, nonce string) (map[string]any, error) {
	if jwksURL == "" {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: "id_token received but no JWKS endpoint is configured"}
	}

	set, err := jwk.Fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKs for provider %s: %w", p.Name, err)
	}

	token, err := jwt.Parse(idToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		key, exists := set.LookupKeyID(kid)
		if !exists {
			return nil, fmt.Errorf("unable to find key %s", kid)
		}

		var publicKey interface{}
		if err := key.Raw(&publicKey); err != nil {
			return nil, fmt.Errorf("failed to parse JWK: %w", err)
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: fmt.Sprintf("failed to parse id_token: %v", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: "invalid id_token"}
	}
	if claimNonce, _ := claims["nonce"].(string); claimNonce != nonce {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: "id_token nonce mismatch"}
	}
	return map[string]any(claims), nil
}
