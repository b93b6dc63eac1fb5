// Package oauthlink links end-user accounts at third-party OAuth2 providers
// to platform records using the authorization-code grant with PKCE. It
// builds authorization redirects, exchanges callback codes for tokens
// without server-held browser session state, normalizes provider-shaped
// token responses into one canonical Credential, and refreshes expired
// tokens. Per-provider protocol deviations are absorbed by a closed set of
// provider variants so they never leak into calling code.
package oauthlink

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 15 * time.Second

// Engine performs code exchange and refresh against provider token
// endpoints. It holds no per-request state; one Engine is safely shared
// across concurrent linking attempts.
type Engine struct {
	client   *http.Client
	logger   *logrus.Logger
	limiters map[string]*rate.Limiter

	// metadata caches fetched discovery documents by URL.
	mu       sync.RWMutex
	metadata map[string]*serverMetadata

	now func() time.Time
}

// NewEngine initializes an Engine. A nil client gets a default one with a
// bounded timeout; a nil logger gets a fresh logrus instance.
func NewEngine(client *http.Client, logger *logrus.Logger) *Engine {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		client:   client,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		metadata: make(map[string]*serverMetadata),
		now:      time.Now,
	}
}

// SetRateLimiter bounds outbound token-endpoint calls for one provider.
// Call during setup, before the engine is shared.
func (e *Engine) SetRateLimiter(provider string, limiter *rate.Limiter) {
	e.limiters[provider] = limiter
}
