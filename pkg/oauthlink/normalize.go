package oauthlink

import "time"

// Credential is the canonical, provider-independent result of a code
// exchange or refresh. AccessToken is always populated on a successfully
// returned Credential; normalization fails rather than return a partial
// value.
type Credential struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the absolute expiry instant, computed once at
	// normalization time as now + expires_in. Zero when the provider
	// declared no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Raw retains the complete, unmodified provider token response for
	// forward compatibility and debugging.
	Raw RawTokenResponse `json:"raw_token_response,omitempty"`
}

// Expired reports whether the credential has a known expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// Normalize maps a raw provider token response onto a Credential using the
// provider-keyed rules. It is a pure function: now is the instant used for
// expiry computation and the raw response is retained on the result
// unmodified.
func Normalize(provider string, raw RawTokenResponse, now time.Time) (*Credential, error) {
	return variantFor(provider).normalize(provider, raw, now)
}
