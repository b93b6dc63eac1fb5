package linkstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

const accountsBucket = "LinkedAccounts"

// BoltStore implements the Store interface using bbolt.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	logger *logrus.Logger
	mu     sync.RWMutex
}

// NewBoltStore initializes a new BoltStore instance.
func NewBoltStore(path string, logger *logrus.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	store := &BoltStore{
		db:     db,
		path:   path,
		logger: logger,
	}

	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// Initialize sets up the necessary buckets.
func (b *BoltStore) Initialize(ctx context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(accountsBucket)); err != nil {
			return fmt.Errorf("create %s bucket: %w", accountsBucket, err)
		}
		return nil
	})
}

// Close closes the BoltDB connection.
func (b *BoltStore) Close(ctx context.Context) error {
	return b.db.Close()
}

// PutAccount inserts or overwrites a linked account.
func (b *BoltStore) PutAccount(ctx context.Context, account LinkedAccount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal LinkedAccount: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		return bucket.Put(accountKey(account.ProjectID, account.Provider, account.OwnerID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store linked account: %w", err)
	}

	return nil
}

// GetAccount retrieves a specific linked account.
func (b *BoltStore) GetAccount(ctx context.Context, projectID, provider, ownerID string) (LinkedAccount, error) {
	var account LinkedAccount

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		val := bucket.Get(accountKey(projectID, provider, ownerID))
		if val == nil {
			return ErrAccountNotFound
		}
		return json.Unmarshal(val, &account)
	})
	if err != nil {
		return account, err
	}

	return account, nil
}

// ListAccounts retrieves all linked accounts for a project.
func (b *BoltStore) ListAccounts(ctx context.Context, projectID string) ([]LinkedAccount, error) {
	var accounts []LinkedAccount

	prefix := projectKeyPrefix(projectID)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var account LinkedAccount
			if err := json.Unmarshal(v, &account); err != nil {
				b.logger.WithError(err).Warnf("Failed to unmarshal linked account for key %s", string(k))
				continue
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// DeleteAccount removes a linked account.
func (b *BoltStore) DeleteAccount(ctx context.Context, projectID, provider, ownerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		key := accountKey(projectID, provider, ownerID)
		if bucket.Get(key) == nil {
			return ErrAccountNotFound
		}
		return bucket.Delete(key)
	})
}

// ListExpiring retrieves enabled accounts whose credential expires before
// the given time.
func (b *BoltStore) ListExpiring(ctx context.Context, before time.Time) ([]LinkedAccount, error) {
	var accounts []LinkedAccount

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		return bucket.ForEach(func(k, v []byte) error {
			var account LinkedAccount
			if err := json.Unmarshal(v, &account); err != nil {
				b.logger.WithError(err).Warnf("Failed to unmarshal linked account for key %s", string(k))
				return nil
			}
			if !account.Enabled || account.Credential.ExpiresAt.IsZero() {
				return nil
			}
			if account.Credential.ExpiresAt.Before(before) {
				accounts = append(accounts, account)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// SetEnabled flips the enabled flag on an account.
func (b *BoltStore) SetEnabled(ctx context.Context, projectID, provider, ownerID string, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", accountsBucket)
		}
		key := accountKey(projectID, provider, ownerID)
		val := bucket.Get(key)
		if val == nil {
			return ErrAccountNotFound
		}
		var account LinkedAccount
		if err := json.Unmarshal(val, &account); err != nil {
			return fmt.Errorf("failed to unmarshal LinkedAccount: %w", err)
		}
		account.Enabled = enabled
		account.UpdatedAt = time.Now()
		data, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal LinkedAccount: %w", err)
		}
		return bucket.Put(key, data)
	})
}
