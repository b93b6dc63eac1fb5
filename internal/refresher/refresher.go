// Package refresher keeps stored credentials alive by sweeping the link
// store for accounts nearing expiry and refreshing them through the
// provider token endpoints.
package refresher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/y0ug/linkhub/internal/linkstore"
	"github.com/y0ug/linkhub/internal/notifications"
	"github.com/y0ug/linkhub/pkg/oauthlink"
)

// Config holds the configuration for the refresh process.
type Config struct {
	PollInterval time.Duration
	Window       time.Duration
	Store        linkstore.Store
	Registry     *oauthlink.Registry
	Engine       *oauthlink.Engine
	Notifier     *notifications.Notifier
	Logger       *logrus.Logger
}

// Refresher handles the periodic refresh of linked-account credentials.
type Refresher struct {
	Config Config
	sem    *semaphore.Weighted
}

// NewRefresher initializes a new Refresher.
func NewRefresher(config Config, maxConcurrency int64) *Refresher {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Refresher{
		Config: config,
		sem:    semaphore.NewWeighted(maxConcurrency),
	}
}

// Start begins the refresh process.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.Config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Config.Logger.Info("Refresher stopped due to context cancellation")
			return
		default:
			r.Sweep(ctx)
			select {
			case <-ctx.Done():
				r.Config.Logger.Info("Refresher stopped due to context cancellation")
				return
			case <-ticker.C:
			}
		}
	}
}

// Sweep refreshes every enabled account whose credential expires within
// the configured window.
func (r *Refresher) Sweep(ctx context.Context) {
	var wg sync.WaitGroup

	accounts, err := r.Config.Store.ListExpiring(ctx, time.Now().Add(r.Config.Window))
	if err != nil {
		r.Config.Logger.WithError(err).Error("Failed to list expiring accounts")
		return
	}

	for _, account := range accounts {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.Config.Logger.WithError(err).Error("Failed to acquire semaphore")
			continue
		}

		wg.Add(1)
		go func(acct linkstore.LinkedAccount) {
			defer wg.Done()
			defer r.sem.Release(1)
			r.refreshAccount(ctx, acct)
		}(account)
	}

	wg.Wait()
}

// refreshAccount refreshes a single account's credential and persists the
// result.
func (r *Refresher) refreshAccount(ctx context.Context, account linkstore.LinkedAccount) {
	logger := r.Config.Logger.WithFields(logrus.Fields{
		"project":  account.ProjectID,
		"provider": account.Provider,
		"owner":    account.OwnerID,
	})

	if account.Credential.RefreshToken == "" {
		logger.Debug("Skipping account without a refresh token")
		return
	}

	profile, err := r.Config.Registry.Get(account.Provider)
	if err != nil {
		logger.WithError(err).Warn("No profile registered for stored account")
		return
	}

	raw, err := r.Config.Engine.Refresh(ctx, profile, account.Credential.RefreshToken)
	if err != nil {
		if refreshRejected(err) {
			logger.WithError(err).Warn("Refresh token rejected; disabling account")
			if dbErr := r.Config.Store.SetEnabled(ctx, account.ProjectID, account.Provider, account.OwnerID, false); dbErr != nil {
				logger.WithError(dbErr).Error("Failed to disable account")
			}
			if r.Config.Notifier != nil {
				r.Config.Notifier.NotifyAccountDisabled(account.ProjectID, account.Provider, account.OwnerID, err)
			}
			return
		}
		// Transient failure; the next sweep picks the account up again.
		logger.WithError(err).Error("Failed to refresh credential")
		return
	}

	credential, err := oauthlink.Normalize(account.Provider, raw, time.Now())
	if err != nil {
		logger.WithError(err).Error("Failed to normalize refreshed credential")
		return
	}

	// Providers may omit the refresh token on refresh; keep the stored one.
	if credential.RefreshToken == "" {
		credential.RefreshToken = account.Credential.RefreshToken
	}

	account.Credential = *credential
	account.UpdatedAt = time.Now()
	if err := r.Config.Store.PutAccount(ctx, account); err != nil {
		logger.WithError(err).Error("Failed to persist refreshed credential")
		return
	}

	logger.WithField("expires_at", credential.ExpiresAt).Info("Credential refreshed")
}

// refreshRejected reports whether the provider rejected the refresh token
// itself, as opposed to a transient transport failure.
func refreshRejected(err error) bool {
	var netErr *oauthlink.NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	if netErr.StatusCode < 400 || netErr.StatusCode >= 500 {
		return false
	}
	return strings.Contains(netErr.Body, "invalid_grant")
}
