package oauthlink

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeDefaultBranch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	raw := RawTokenResponse{
		"access_token": "abc",
		"expires_in":   float64(120),
	}

	cred, err := Normalize("GOOGLE", raw, now)
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if cred.AccessToken != "abc" {
		t.Errorf("expected access token 'abc', got '%s'", cred.AccessToken)
	}
	if !cred.ExpiresAt.Equal(now.Add(120 * time.Second)) {
		t.Errorf("expected expiry at %v, got %v", now.Add(120*time.Second), cred.ExpiresAt)
	}
	if cred.TokenType != "" {
		t.Errorf("token type should not be fabricated, got '%s'", cred.TokenType)
	}
	if cred.RefreshToken != "" {
		t.Errorf("refresh token should not be fabricated, got '%s'", cred.RefreshToken)
	}
	if !reflect.DeepEqual(cred.Raw, raw) {
		t.Errorf("raw token response not retained: %v", cred.Raw)
	}
}

func TestNormalizeDefaultBranchNoExpiry(t *testing.T) {
	cred, err := Normalize("GITHUB", RawTokenResponse{"access_token": "abc", "token_type": "bearer"}, time.Now())
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if !cred.ExpiresAt.IsZero() {
		t.Errorf("expiry should be unset when expires_in is absent, got %v", cred.ExpiresAt)
	}
	if cred.TokenType != "bearer" {
		t.Errorf("expected token type 'bearer', got '%s'", cred.TokenType)
	}
}

func TestNormalizeDefaultBranchMissingAccessToken(t *testing.T) {
	_, err := Normalize("GOOGLE", RawTokenResponse{"expires_in": float64(60)}, time.Now())
	var invalidErr *InvalidResponseError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
	if invalidErr.Provider != "GOOGLE" {
		t.Errorf("expected provider GOOGLE, got '%s'", invalidErr.Provider)
	}
}

func TestNormalizeSlack(t *testing.T) {
	raw := RawTokenResponse{
		"ok":           true,
		"access_token": "xoxb-bot-token",
		"authed_user": map[string]any{
			"access_token": "x",
			"token_type":   "user",
		},
	}

	cred, err := Normalize(ProviderSlack, raw, time.Now())
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if cred.AccessToken != "x" {
		t.Errorf("expected the authed_user token 'x', got '%s'", cred.AccessToken)
	}
	if !cred.ExpiresAt.IsZero() {
		t.Errorf("expiry should be unset without expires_in, got %v", cred.ExpiresAt)
	}
	if !reflect.DeepEqual(cred.Raw, raw) {
		t.Errorf("raw token response not retained: %v", cred.Raw)
	}
}

func TestNormalizeSlackExpiry(t *testing.T) {
	now := time.Now()
	raw := RawTokenResponse{
		"authed_user": map[string]any{
			"access_token":  "x",
			"refresh_token": "r",
			"expires_in":    float64(43200),
		},
	}

	cred, err := Normalize(ProviderSlack, raw, now)
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if !cred.ExpiresAt.Equal(now.Add(43200 * time.Second)) {
		t.Errorf("unexpected expiry %v", cred.ExpiresAt)
	}
	if cred.RefreshToken != "r" {
		t.Errorf("expected refresh token 'r', got '%s'", cred.RefreshToken)
	}
}

func TestNormalizeSlackMissingAccessToken(t *testing.T) {
	_, err := Normalize(ProviderSlack, RawTokenResponse{"authed_user": map[string]any{}}, time.Now())
	var invalidErr *InvalidResponseError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}

	_, err = Normalize(ProviderSlack, RawTokenResponse{"access_token": "bot-only"}, time.Now())
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidResponseError without authed_user, got %v", err)
	}
}

func TestNormalizeLinkedInDefaults(t *testing.T) {
	now := time.Now()
	raw := RawTokenResponse{"access_token": "y"}

	cred, err := Normalize(ProviderLinkedIn, raw, now)
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if cred.TokenType != "Bearer" {
		t.Errorf("expected default token type 'Bearer', got '%s'", cred.TokenType)
	}
	if !cred.ExpiresAt.Equal(now.Add(3600 * time.Second)) {
		t.Errorf("expected default 3600s expiry, got %v", cred.ExpiresAt)
	}
	if !reflect.DeepEqual(cred.Raw, raw) {
		t.Errorf("raw token response not retained: %v", cred.Raw)
	}
}

func TestNormalizeLinkedInExplicitFields(t *testing.T) {
	now := time.Now()
	raw := RawTokenResponse{
		"access_token": "y",
		"token_type":   "bearer",
		"expires_in":   float64(5184000),
	}

	cred, err := Normalize(ProviderLinkedIn, raw, now)
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}
	if cred.TokenType != "bearer" {
		t.Errorf("provider token type should be preserved, got '%s'", cred.TokenType)
	}
	if !cred.ExpiresAt.Equal(now.Add(5184000 * time.Second)) {
		t.Errorf("unexpected expiry %v", cred.ExpiresAt)
	}
}

func TestNormalizeLinkedInMissingAccessToken(t *testing.T) {
	_, err := Normalize(ProviderLinkedIn, RawTokenResponse{"expires_in": float64(60)}, time.Now())
	var invalidErr *InvalidResponseError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()

	cred := &Credential{AccessToken: "a"}
	if cred.Expired(now) {
		t.Errorf("credential without expiry should never report expired")
	}

	cred.ExpiresAt = now.Add(-time.Minute)
	if !cred.Expired(now) {
		t.Errorf("credential past its expiry should report expired")
	}

	cred.ExpiresAt = now.Add(time.Minute)
	if cred.Expired(now) {
		t.Errorf("credential before its expiry should not report expired")
	}
}
