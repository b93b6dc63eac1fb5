package refresher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/y0ug/linkhub/internal/linkstore"
	"github.com/y0ug/linkhub/pkg/oauthlink"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func testStore(t *testing.T) linkstore.Store {
	t.Helper()
	store, err := linkstore.NewBoltStore(filepath.Join(t.TempDir(), "linkhub.db"), testLogger())
	if err != nil {
		t.Fatalf("failed to open bolt store: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func testRefresher(t *testing.T, store linkstore.Store, tokenURL string) *Refresher {
	t.Helper()
	registry := oauthlink.NewRegistry()
	err := registry.Register(&oauthlink.Profile{
		Name:           "ACME",
		ClientID:       "id",
		ClientSecret:   "secret",
		AuthorizeURL:   "https://acme.example.com/authorize",
		AccessTokenURL: tokenURL,
	})
	if err != nil {
		t.Fatalf("failed to register profile: %v", err)
	}

	return NewRefresher(Config{
		PollInterval: time.Minute,
		Window:       10 * time.Minute,
		Store:        store,
		Registry:     registry,
		Engine:       oauthlink.NewEngine(nil, testLogger()),
		Logger:       testLogger(),
	}, 2)
}

func expiringAccount(refreshToken string) linkstore.LinkedAccount {
	now := time.Now().UTC()
	return linkstore.LinkedAccount{
		ProjectID: "proj1",
		Provider:  "ACME",
		OwnerID:   "alice",
		Enabled:   true,
		Credential: oauthlink.Credential{
			AccessToken:  "old-tok",
			RefreshToken: refreshToken,
			ExpiresAt:    now.Add(time.Minute),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSweepRefreshesExpiringAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse refresh request form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type mismatch: %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "rt" {
			t.Errorf("refresh_token mismatch: %s", r.PostForm.Get("refresh_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-tok","expires_in":3600}`)
	}))
	defer server.Close()

	store := testStore(t)
	ctx := context.Background()
	if err := store.PutAccount(ctx, expiringAccount("rt")); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	r := testRefresher(t, store, server.URL)
	r.Sweep(ctx)

	got, err := store.GetAccount(ctx, "proj1", "ACME", "alice")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if got.Credential.AccessToken != "new-tok" {
		t.Errorf("access token should be refreshed, got '%s'", got.Credential.AccessToken)
	}
	// The provider omitted a new refresh token; the stored one survives.
	if got.Credential.RefreshToken != "rt" {
		t.Errorf("stored refresh token should be preserved, got '%s'", got.Credential.RefreshToken)
	}
	if got.Credential.ExpiresAt.Before(time.Now().Add(30 * time.Minute)) {
		t.Errorf("expiry should move forward, got %v", got.Credential.ExpiresAt)
	}
	if !got.Enabled {
		t.Errorf("account should stay enabled")
	}
}

func TestSweepDisablesOnRejectedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer server.Close()

	store := testStore(t)
	ctx := context.Background()
	if err := store.PutAccount(ctx, expiringAccount("rt")); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	r := testRefresher(t, store, server.URL)
	r.Sweep(ctx)

	got, err := store.GetAccount(ctx, "proj1", "ACME", "alice")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if got.Enabled {
		t.Errorf("account should be disabled after invalid_grant")
	}
	if got.Credential.AccessToken != "old-tok" {
		t.Errorf("credential should be untouched, got '%s'", got.Credential.AccessToken)
	}
}

func TestSweepLeavesTransientFailuresForNextPass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `upstream down`)
	}))
	defer server.Close()

	store := testStore(t)
	ctx := context.Background()
	if err := store.PutAccount(ctx, expiringAccount("rt")); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	r := testRefresher(t, store, server.URL)
	r.Sweep(ctx)

	got, err := store.GetAccount(ctx, "proj1", "ACME", "alice")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if !got.Enabled {
		t.Errorf("transient failures must not disable the account")
	}
	if got.Credential.AccessToken != "old-tok" {
		t.Errorf("credential should be untouched, got '%s'", got.Credential.AccessToken)
	}
}

func TestSweepSkipsAccountsWithoutRefreshToken(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	store := testStore(t)
	ctx := context.Background()
	if err := store.PutAccount(ctx, expiringAccount("")); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	r := testRefresher(t, store, server.URL)
	r.Sweep(ctx)

	if hits != 0 {
		t.Errorf("accounts without a refresh token must not be refreshed, saw %d requests", hits)
	}
}
