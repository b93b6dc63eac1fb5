package linkstore

import (
	"context"
	"errors"
	"time"

	"github.com/y0ug/linkhub/pkg/oauthlink"
)

// LinkedAccount ties a provider credential to a platform project and the
// end user who granted it.
type LinkedAccount struct {
	ProjectID  string               `json:"project_id"`
	Provider   string               `json:"provider"`
	OwnerID    string               `json:"owner_id"`
	Enabled    bool                 `json:"enabled"`
	Credential oauthlink.Credential `json:"credential"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Store defines the methods required for linked-account storage and
// retrieval. Accounts are keyed by (project, provider, owner).
type Store interface {
	// Initialize sets up the necessary tables or buckets.
	Initialize(ctx context.Context) error

	Close(ctx context.Context) error

	// PutAccount inserts or overwrites a linked account.
	PutAccount(ctx context.Context, account LinkedAccount) error

	// GetAccount retrieves a specific linked account.
	GetAccount(ctx context.Context, projectID, provider, ownerID string) (LinkedAccount, error)

	// ListAccounts retrieves all linked accounts for a project.
	ListAccounts(ctx context.Context, projectID string) ([]LinkedAccount, error)

	// DeleteAccount removes a linked account.
	DeleteAccount(ctx context.Context, projectID, provider, ownerID string) error

	// ListExpiring retrieves enabled accounts whose credential expires
	// before the given time. Accounts without an expiry are skipped.
	ListExpiring(ctx context.Context, before time.Time) ([]LinkedAccount, error)

	// SetEnabled flips the enabled flag on an account.
	SetEnabled(ctx context.Context, projectID, provider, ownerID string, enabled bool) error
}

var ErrAccountNotFound = errors.New("linked account not found")
