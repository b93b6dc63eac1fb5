package oauthlink

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func testRegistry(t *testing.T, profiles ...*Profile) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, p := range profiles {
		if err := registry.Register(p); err != nil {
			t.Fatalf("failed to register profile '%s': %v", p.Name, err)
		}
	}
	return registry
}

func TestAuthorizationURLDefaultProvider(t *testing.T) {
	registry := testRegistry(t, &Profile{
		Name:         "ACME",
		ClientID:     "client123",
		ClientSecret: "secret",
		Scope:        "read write",
		AuthorizeURL: "https://acme.example.com/oauth/authorize",
	})
	profile, _ := registry.Get("ACME")

	engine := NewEngine(nil, testLogger())
	authURL, err := engine.AuthorizationURL(context.Background(), profile,
		"https://platform.example.com/callback", "state123", "verifier123")
	if err != nil {
		t.Fatalf("failed to build authorization URL: %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("authorization URL does not parse: %v", err)
	}
	q := parsed.Query()

	if q.Get("client_id") != "client123" {
		t.Errorf("client_id mismatch: %s", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://platform.example.com/callback" {
		t.Errorf("redirect_uri mismatch: %s", q.Get("redirect_uri"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type mismatch: %s", q.Get("response_type"))
	}
	if q.Get("scope") != "read write" {
		t.Errorf("scope mismatch: %s", q.Get("scope"))
	}
	if q.Get("state") != "state123" {
		t.Errorf("state mismatch: %s", q.Get("state"))
	}
	if q.Get("access_type") != "offline" {
		t.Errorf("access_type mismatch: %s", q.Get("access_type"))
	}
	if q.Get("prompt") != "consent" {
		t.Errorf("prompt mismatch: %s", q.Get("prompt"))
	}
	if q.Get("code_challenge") != CodeChallengeS256("verifier123") {
		t.Errorf("code_challenge is not the S256 hash of the verifier: %s", q.Get("code_challenge"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method mismatch: %s", q.Get("code_challenge_method"))
	}
}

func TestSlackScopeRewrite(t *testing.T) {
	in := "https://slack.com/oauth/v2/authorize?client_id=a&scope=read+write&state=s"
	want := "https://slack.com/oauth/v2/authorize?client_id=a&user_scope=read+write&scope=&state=s"

	got := slackVariant{}.rewriteAuthorizationURL(nil, in)
	if got != want {
		t.Errorf("slack rewrite mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSlackScopeRewriteTrailingScope(t *testing.T) {
	in := "https://slack.com/oauth/v2/authorize?client_id=a&scope=read"
	want := "https://slack.com/oauth/v2/authorize?client_id=a&user_scope=read&scope="

	got := slackVariant{}.rewriteAuthorizationURL(nil, in)
	if got != want {
		t.Errorf("slack rewrite mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSlackScopeRewriteNoScope(t *testing.T) {
	in := "https://slack.com/oauth/v2/authorize?client_id=a&state=s"
	if got := (slackVariant{}).rewriteAuthorizationURL(nil, in); got != in {
		t.Errorf("URL without scope should pass through unchanged, got %s", got)
	}
}

func TestAuthorizationURLSlack(t *testing.T) {
	registry := testRegistry(t, &Profile{
		Name:         ProviderSlack,
		ClientID:     "slack-client",
		ClientSecret: "secret",
		Scope:        "channels:read chat:write",
		AuthorizeURL: "https://slack.com/oauth/v2/authorize",
	})
	profile, _ := registry.Get(ProviderSlack)

	engine := NewEngine(nil, testLogger())
	authURL, err := engine.AuthorizationURL(context.Background(), profile,
		"https://platform.example.com/callback", "st", "ver")
	if err != nil {
		t.Fatalf("failed to build authorization URL: %v", err)
	}

	if !strings.Contains(authURL, "user_scope=channels%3Aread+chat%3Awrite&scope=") {
		t.Errorf("requested scopes should move to user_scope with scope emptied: %s", authURL)
	}
}

func TestAuthorizationURLLinkedInForcesScope(t *testing.T) {
	registry := testRegistry(t, &Profile{
		Name:         ProviderLinkedIn,
		ClientID:     "li-client",
		ClientSecret: "secret",
		Scope:        "read",
		AuthorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
	})
	profile, _ := registry.Get(ProviderLinkedIn)

	engine := NewEngine(nil, testLogger())
	authURL, err := engine.AuthorizationURL(context.Background(), profile,
		"https://platform.example.com/callback", "st", "ver")
	if err != nil {
		t.Fatalf("failed to build authorization URL: %v", err)
	}

	if !strings.Contains(authURL, "scope=openid%20profile%20email%20w_member_social") {
		t.Errorf("scope should be forced to the console-registered set: %s", authURL)
	}
	if strings.Contains(authURL, "scope=read") {
		t.Errorf("requested scope should have been overwritten: %s", authURL)
	}
	if !strings.Contains(authURL, "response_type=code") {
		t.Errorf("response_type=code missing: %s", authURL)
	}
}

func TestLinkedInRewriteAppendsMissingParams(t *testing.T) {
	in := "https://www.linkedin.com/oauth/v2/authorization?client_id=a"
	got := linkedinVariant{}.rewriteAuthorizationURL(nil, in)

	if !strings.Contains(got, "&response_type=code") {
		t.Errorf("response_type should be appended: %s", got)
	}
	if !strings.Contains(got, "&scope=openid%20profile%20email%20w_member_social") {
		t.Errorf("scope should be appended: %s", got)
	}
}

func TestVariantDispatchIsTotal(t *testing.T) {
	// Unknown names must take the default variant, not a partial one.
	if _, ok := variantFor("NO_SUCH_PROVIDER").(defaultVariant); !ok {
		t.Errorf("unknown provider should dispatch to defaultVariant")
	}
	if _, ok := variantFor(ProviderSlack).(slackVariant); !ok {
		t.Errorf("SLACK should dispatch to slackVariant")
	}
	if _, ok := variantFor(ProviderLinkedIn).(linkedinVariant); !ok {
		t.Errorf("LINKEDIN should dispatch to linkedinVariant")
	}
}

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("failed to generate PKCE pair: %v", err)
	}
	if verifier == "" || challenge == "" {
		t.Fatalf("PKCE pair should not be empty")
	}
	if challenge != CodeChallengeS256(verifier) {
		t.Errorf("challenge does not match the verifier")
	}

	other, _, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("failed to generate PKCE pair: %v", err)
	}
	if other == verifier {
		t.Errorf("verifiers should be random")
	}
}
