package oauthlink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// serverMetadata is the subset of a provider discovery document the engine
// needs.
type serverMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// serverMetadataFor fetches and caches the discovery document at
// metadataURL. Profiles are static, so a document is fetched at most once
// per engine.
func (e *Engine) serverMetadataFor(ctx context.Context, metadataURL string) (*serverMetadata, error) {
	e.mu.RLock()
	md, ok := e.metadata[metadataURL]
	e.mu.RUnlock()
	if ok {
		return md, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build server metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server metadata from %s: %w", metadataURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server metadata request to %s returned status %d", metadataURL, resp.StatusCode)
	}

	md = &serverMetadata{}
	if err := json.NewDecoder(resp.Body).Decode(md); err != nil {
		return nil, fmt.Errorf("failed to decode server metadata from %s: %w", metadataURL, err)
	}
	if md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" {
		return nil, fmt.Errorf("server metadata from %s is missing endpoint URLs", metadataURL)
	}

	e.mu.Lock()
	e.metadata[metadataURL] = md
	e.mu.Unlock()
	return md, nil
}

// endpoints resolves the profile's authorize/token/JWKS URLs, consulting
// the discovery document only for fields the profile leaves unset.
func (e *Engine) endpoints(ctx context.Context, p *Profile) (authorizeURL, tokenURL, jwksURL string, err error) {
	authorizeURL = p.AuthorizeURL
	tokenURL = p.AccessTokenURL
	jwksURL = p.JWKSURL
	if p.ServerMetadataURL == "" || (authorizeURL != "" && tokenURL != "" && jwksURL != "") {
		return authorizeURL, tokenURL, jwksURL, nil
	}

	md, err := e.serverMetadataFor(ctx, p.ServerMetadataURL)
	if err != nil {
		return "", "", "", err
	}
	if authorizeURL == "" {
		authorizeURL = md.AuthorizationEndpoint
	}
	if tokenURL == "" {
		tokenURL = md.TokenEndpoint
	}
	if jwksURL == "" {
		jwksURL = md.JWKSURI
	}
	return authorizeURL, tokenURL, jwksURL, nil
}
