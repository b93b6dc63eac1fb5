package oauthlink

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultProfiles carries baseline endpoint configuration for well-known
// providers. Entries are copied at load time; client credentials always
// come from the environment.
var DefaultProfiles = map[string]Profile{
	"GOOGLE": {
		Name:              "GOOGLE",
		ServerMetadataURL: "https://accounts.google.com/.well-known/openid-configuration",
		Scope:             "openid profile email",
	},
	"GITHUB": {
		Name:           "GITHUB",
		AuthorizeURL:   "https://github.com/login/oauth/authorize",
		AccessTokenURL: "https://github.com/login/oauth/access_token",
		Scope:          "read:user user:email",
	},
	ProviderSlack: {
		Name:           ProviderSlack,
		AuthorizeURL:   "https://slack.com/oauth/v2/authorize",
		AccessTokenURL: "https://slack.com/api/oauth.v2.access",
		Scope:          "channels:read chat:write",
	},
	ProviderLinkedIn: {
		Name:           ProviderLinkedIn,
		AuthorizeURL:   "https://www.linkedin.com/oauth/v2/authorization",
		AccessTokenURL: linkedinAccessTokenURL,
		Scope:          linkedinScope,
	},
}

// RegistryFromEnv builds a Registry from the OAUTH2_PROVIDERS list and the
// matching OAUTH2_<NAME>_* variables, starting from DefaultProfiles where
// available.
func RegistryFromEnv() (*Registry, error) {
	providersEnv := getEnv("OAUTH2_PROVIDERS", "")
	if providersEnv == "" {
		return nil, fmt.Errorf("OAUTH2_PROVIDERS is not set")
	}

	registry := NewRegistry()
	for _, name := range strings.Split(providersEnv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		profile, err := loadProfile(name)
		if err != nil {
			return nil, fmt.Errorf("error loading config for provider '%s': %w", name, err)
		}
		if err := registry.Register(profile); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// loadProfile loads the configuration for a single provider, overlaying
// environment variables on the defaults.
func loadProfile(name string) (*Profile, error) {
	prefix := fmt.Sprintf("OAUTH2_%s_", strings.ToUpper(name))

	profile := Profile{Name: name}
	if def, ok := DefaultProfiles[name]; ok {
		profile = def
	}

	profile.ClientID = getEnv(prefix+"CLIENT_ID", profile.ClientID)
	profile.ClientSecret = getEnv(prefix+"CLIENT_SECRET", profile.ClientSecret)
	profile.Scope = getEnv(prefix+"SCOPE", profile.Scope)
	profile.AuthorizeURL = getEnv(prefix+"AUTHORIZE_URL", profile.AuthorizeURL)
	profile.AccessTokenURL = getEnv(prefix+"ACCESS_TOKEN_URL", profile.AccessTokenURL)
	profile.RefreshTokenURL = getEnv(prefix+"REFRESH_TOKEN_URL", profile.RefreshTokenURL)
	profile.ServerMetadataURL = getEnv(prefix+"SERVER_METADATA_URL", profile.ServerMetadataURL)
	profile.JWKSURL = getEnv(prefix+"JWKS_URL", profile.JWKSURL)
	profile.TokenEndpointAuthMethod = getEnv(prefix+"TOKEN_ENDPOINT_AUTH_METHOD", profile.TokenEndpointAuthMethod)
	profile.Prompt = getEnv(prefix+"PROMPT", profile.Prompt)
	profile.AccessType = getEnv(prefix+"ACCESS_TYPE", profile.AccessType)

	if profile.ClientID == "" {
		return nil, fmt.Errorf("%sCLIENT_ID is not set", prefix)
	}
	if profile.ClientSecret == "" {
		return nil, fmt.Errorf("%sCLIENT_SECRET is not set", prefix)
	}
	return &profile, nil
}

// RateLimitersFromEnv installs a token-endpoint rate limiter on the engine
// for every registered provider that sets OAUTH2_<NAME>_TOKEN_RPS
// (requests per second, float) and optionally OAUTH2_<NAME>_TOKEN_BURST.
func RateLimitersFromEnv(e *Engine, registry *Registry) error {
	for _, name := range registry.Names() {
		prefix := fmt.Sprintf("OAUTH2_%s_", strings.ToUpper(name))
		rpsStr := getEnv(prefix+"TOKEN_RPS", "")
		if rpsStr == "" {
			continue
		}
		rps, err := strconv.ParseFloat(rpsStr, 64)
		if err != nil {
			return fmt.Errorf("invalid %sTOKEN_RPS value: %w", prefix, err)
		}
		burst, err := strconv.Atoi(getEnv(prefix+"TOKEN_BURST", "1"))
		if err != nil {
			return fmt.Errorf("invalid %sTOKEN_BURST value: %w", prefix, err)
		}
		e.SetRateLimiter(name, rate.NewLimiter(rate.Limit(rps), burst))
	}
	return nil
}

// getEnv retrieves the value of the environment variable named by the key.
// It returns the value, or the defaultValue if the variable is not present.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
