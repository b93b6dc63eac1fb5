package oauthlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxTokenResponseSize bounds how much of a token-endpoint body is read.
const maxTokenResponseSize = 1 << 20

// RawTokenResponse is the untyped, provider-shaped body of a token endpoint
// reply. It is normalized immediately and retained verbatim on the
// resulting Credential.
type RawTokenResponse map[string]any

// tokenRequest is the single transport used for every token-endpoint call:
// standard exchange, bypass exchange, and refresh. Requests are
// form-encoded POSTs; client credentials go into the body for
// client_secret_post profiles and into basic auth otherwise. Errors map to
// NetworkError (transport failure or non-2xx) and InvalidResponseError
// (undecodable body). One attempt, no retries.
func (e *Engine) tokenRequest(ctx context.Context, p *Profile, endpoint string, form url.Values) (RawTokenResponse, error) {
	if limiter := e.limiters[p.Name]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Provider: p.Name, Err: err}
		}
	}

	if p.TokenEndpointAuthMethod == AuthMethodClientSecretPost {
		form.Set("client_id", p.ClientID)
		form.Set("client_secret", p.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request for provider %s: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if p.TokenEndpointAuthMethod != AuthMethodClientSecretPost {
		req.SetBasicAuth(p.ClientID, p.ClientSecret)
	}

	e.logger.WithFields(logrus.Fields{
		"provider":   p.Name,
		"endpoint":   endpoint,
		"grant_type": form.Get("grant_type"),
	}).Debug("calling token endpoint")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Provider: p.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &NetworkError{Provider: p.Name, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.WithFields(logrus.Fields{
			"provider": p.Name,
			"status":   resp.StatusCode,
		}).Error("token endpoint returned an error")
		return nil, &NetworkError{Provider: p.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	raw := RawTokenResponse{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &InvalidResponseError{Provider: p.Name, Reason: fmt.Sprintf("undecodable token response: %v", err)}
	}
	return raw, nil
}

func rawString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func rawInt64(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
