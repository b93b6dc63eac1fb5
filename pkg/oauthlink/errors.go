package oauthlink

import "fmt"

// CallbackError reports an error the provider sent back on the redirect
// callback (error / error_description query parameters). It is never
// retried: the authorization code and PKCE verifier are single-use, so the
// caller must restart linking from scratch.
type CallbackError struct {
	Provider    string
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	msg := fmt.Sprintf("account linking failed due to OAuth2 error from provider %s. error=%s", e.Provider, e.Code)
	if e.Description != "" {
		msg += fmt.Sprintf(", error_description=%s", e.Description)
	}
	return msg
}

// InvalidResponseError reports a successful-looking provider reply that is
// missing a field the credential contract requires, or a body that could
// not be decoded at all.
type InvalidResponseError struct {
	Provider string
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid OAuth2 response from provider %s: %s", e.Provider, e.Reason)
}

// NetworkError reports a transport-level failure talking to a provider
// token endpoint: a request that never completed (Err set) or a non-2xx
// reply (StatusCode and Body set).
type NetworkError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token endpoint request to provider %s failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("token endpoint of provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *NetworkError) Unwrap() error { return e.Err }
