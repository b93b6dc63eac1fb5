package oauthlink

import (
	"fmt"
	"sort"
)

// Token endpoint client authentication methods.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
)

// Profile is the immutable registration of a single OAuth2 provider.
// Name is the dispatch key for all quirk handling and never changes after
// registration. Either explicit endpoint URLs or a ServerMetadataURL must be
// configured; when a discovery document is used the explicit fields are
// normally left unset.
type Profile struct {
	Name         string
	ClientID     string
	ClientSecret string

	// Scope is the space-delimited set of requested permissions.
	Scope string

	AuthorizeURL      string
	AccessTokenURL    string
	RefreshTokenURL   string
	ServerMetadataURL string

	// JWKSURL overrides the discovery document's jwks_uri for id-token
	// validation.
	JWKSURL string

	// TokenEndpointAuthMethod selects how client credentials are presented
	// at the token endpoint. Empty means client_secret_basic unless the
	// provider variant requires otherwise.
	TokenEndpointAuthMethod string

	Prompt              string
	CodeChallengeMethod string
	AccessType          string
}

// Registry holds the provider profiles a process was configured with. It is
// built once at startup and read-only afterwards; callers pass it explicitly
// into the engine's entry points.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register validates a profile, applies defaults, and adds it to the
// registry. Registering the same name twice is an error.
func (r *Registry) Register(p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("provider profile requires a name")
	}
	if _, exists := r.profiles[p.Name]; exists {
		return fmt.Errorf("provider '%s' is already registered", p.Name)
	}
	if p.ClientID == "" {
		return fmt.Errorf("provider '%s' requires a client id", p.Name)
	}
	if p.AuthorizeURL == "" && p.ServerMetadataURL == "" {
		return fmt.Errorf("provider '%s' requires an authorize URL or a server metadata URL", p.Name)
	}

	if p.Prompt == "" {
		p.Prompt = "consent"
	}
	if p.CodeChallengeMethod == "" {
		p.CodeChallengeMethod = "S256"
	}
	if p.AccessType == "" {
		p.AccessType = "offline"
	}
	variantFor(p.Name).applyProfileDefaults(p)
	if p.TokenEndpointAuthMethod == "" {
		p.TokenEndpointAuthMethod = AuthMethodClientSecretBasic
	}

	r.profiles[p.Name] = p
	return nil
}

// Get returns the profile registered under name.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider '%s'", name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
