package linkstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements the Store interface using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore initializes a new RedisStore instance.
func NewRedisStore(cfg *StoreConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	return &RedisStore{client: rdb}, nil
}

// Initialize sets up necessary Redis structures if needed.
func (r *RedisStore) Initialize(ctx context.Context) error {
	// Redis is schema-less; initialization is not necessary.
	return nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close(ctx context.Context) error {
	return r.client.Close()
}

func redisAccountKey(projectID, provider, ownerID string) string {
	return fmt.Sprintf("account:%s", accountKey(projectID, provider, ownerID))
}

func redisProjectKey(projectID string) string {
	return fmt.Sprintf("project:%s", projectID)
}

// PutAccount inserts or overwrites a linked account and indexes it under
// its project.
func (r *RedisStore) PutAccount(ctx context.Context, account LinkedAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal LinkedAccount: %w", err)
	}

	key := redisAccountKey(account.ProjectID, account.Provider, account.OwnerID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return err
	}
	return r.client.SAdd(ctx, redisProjectKey(account.ProjectID), key).Err()
}

// GetAccount retrieves a specific linked account.
func (r *RedisStore) GetAccount(ctx context.Context, projectID, provider, ownerID string) (LinkedAccount, error) {
	var account LinkedAccount

	key := redisAccountKey(projectID, provider, ownerID)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return account, ErrAccountNotFound
		}
		return account, err
	}

	if err := json.Unmarshal([]byte(val), &account); err != nil {
		return account, fmt.Errorf("failed to unmarshal LinkedAccount: %w", err)
	}
	return account, nil
}

// ListAccounts retrieves all linked accounts for a project via the project
// index set.
func (r *RedisStore) ListAccounts(ctx context.Context, projectID string) ([]LinkedAccount, error) {
	keys, err := r.client.SMembers(ctx, redisProjectKey(projectID)).Result()
	if err != nil {
		return nil, err
	}

	var accounts []LinkedAccount
	for _, key := range keys {
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				// Stale index entry; drop it.
				r.client.SRem(ctx, redisProjectKey(projectID), key)
				continue
			}
			return nil, err
		}
		var account LinkedAccount
		if err := json.Unmarshal([]byte(val), &account); err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// DeleteAccount removes a linked account and its index entry.
func (r *RedisStore) DeleteAccount(ctx context.Context, projectID, provider, ownerID string) error {
	key := redisAccountKey(projectID, provider, ownerID)
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrAccountNotFound
	}
	return r.client.SRem(ctx, redisProjectKey(projectID), key).Err()
}

// ListExpiring retrieves enabled accounts whose credential expires before
// the given time.
func (r *RedisStore) ListExpiring(ctx context.Context, before time.Time) ([]LinkedAccount, error) {
	var accounts []LinkedAccount

	iter := r.client.Scan(ctx, 0, "account:*", 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var account LinkedAccount
		if err := json.Unmarshal([]byte(val), &account); err != nil {
			continue
		}
		if !account.Enabled || account.Credential.ExpiresAt.IsZero() {
			continue
		}
		if account.Credential.ExpiresAt.Before(before) {
			accounts = append(accounts, account)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// SetEnabled flips the enabled flag on an account.
func (r *RedisStore) SetEnabled(ctx context.Context, projectID, provider, ownerID string, enabled bool) error {
	account, err := r.GetAccount(ctx, projectID, provider, ownerID)
	if err != nil {
		return err
	}
	account.Enabled = enabled
	account.UpdatedAt = time.Now()
	return r.PutAccount(ctx, account)
}
