package oauthlink

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEndpointsFromServerMetadata(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"authorization_endpoint": "https://idp.example.com/authorize",
			"token_endpoint": "https://idp.example.com/token",
			"jwks_uri": "https://idp.example.com/jwks"
		}`)
	}))
	defer server.Close()

	engine := NewEngine(nil, testLogger())
	profile := &Profile{
		Name:              "IDP",
		ClientID:          "id",
		ClientSecret:      "secret",
		ServerMetadataURL: server.URL,
	}

	authorizeURL, tokenURL, jwksURL, err := engine.endpoints(context.Background(), profile)
	if err != nil {
		t.Fatalf("failed to resolve endpoints: %v", err)
	}
	if authorizeURL != "https://idp.example.com/authorize" {
		t.Errorf("authorize endpoint mismatch: %s", authorizeURL)
	}
	if tokenURL != "https://idp.example.com/token" {
		t.Errorf("token endpoint mismatch: %s", tokenURL)
	}
	if jwksURL != "https://idp.example.com/jwks" {
		t.Errorf("jwks endpoint mismatch: %s", jwksURL)
	}

	// A second resolution must come from the cache.
	if _, _, _, err := engine.endpoints(context.Background(), profile); err != nil {
		t.Fatalf("failed to resolve endpoints again: %v", err)
	}
	if hits != 1 {
		t.Errorf("discovery document should be fetched once per engine, saw %d fetches", hits)
	}
}

func TestEndpointsProfileOverridesMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"authorization_endpoint": "https://idp.example.com/authorize",
			"token_endpoint": "https://idp.example.com/token",
			"jwks_uri": "https://idp.example.com/jwks"
		}`)
	}))
	defer server.Close()

	engine := NewEngine(nil, testLogger())
	profile := &Profile{
		Name:              "IDP",
		ClientID:          "id",
		ClientSecret:      "secret",
		AuthorizeURL:      "https://override.example.com/authorize",
		ServerMetadataURL: server.URL,
	}

	authorizeURL, tokenURL, _, err := engine.endpoints(context.Background(), profile)
	if err != nil {
		t.Fatalf("failed to resolve endpoints: %v", err)
	}
	if authorizeURL != "https://override.example.com/authorize" {
		t.Errorf("explicit profile URL should win over metadata, got %s", authorizeURL)
	}
	if tokenURL != "https://idp.example.com/token" {
		t.Errorf("unset fields should come from metadata, got %s", tokenURL)
	}
}

func TestEndpointsNoMetadataFetchWhenComplete(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	engine := NewEngine(nil, testLogger())
	profile := &Profile{
		Name:              "IDP",
		ClientID:          "id",
		ClientSecret:      "secret",
		AuthorizeURL:      "https://idp.example.com/authorize",
		AccessTokenURL:    "https://idp.example.com/token",
		JWKSURL:           "https://idp.example.com/jwks",
		ServerMetadataURL: server.URL,
	}

	if _, _, _, err := engine.endpoints(context.Background(), profile); err != nil {
		t.Fatalf("failed to resolve endpoints: %v", err)
	}
	if hits != 0 {
		t.Errorf("fully specified profiles should skip discovery, saw %d fetches", hits)
	}
}

func TestServerMetadataErrors(t *testing.T) {
	badStatus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badStatus.Close()

	missingEndpoints := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"issuer":"https://idp.example.com"}`)
	}))
	defer missingEndpoints.Close()

	engine := NewEngine(nil, testLogger())

	if _, err := engine.serverMetadataFor(context.Background(), badStatus.URL); err == nil {
		t.Errorf("non-200 discovery response should fail")
	}
	if _, err := engine.serverMetadataFor(context.Background(), missingEndpoints.URL); err == nil {
		t.Errorf("discovery document without endpoints should fail")
	}
}
