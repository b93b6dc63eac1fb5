package linkstore

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// StoreConfig holds the storage-related configuration.
type StoreConfig struct {
	Type      string
	Path      string
	RedisAddr string
	RedisPass string
	RedisDB   int
}

// LoadStoreConfig loads storage configuration from environment variables.
func LoadStoreConfig() (*StoreConfig, error) {
	storeType := os.Getenv("STORE_TYPE")
	if storeType == "" {
		return nil, fmt.Errorf("STORE_TYPE environment variable is required")
	}

	config := &StoreConfig{
		Type: storeType,
	}

	switch storeType {
	case "bolt", "sqlite":
		config.Path = os.Getenv("STORE_PATH")
		if config.Path == "" {
			return nil, fmt.Errorf("STORE_PATH is required for %s", storeType)
		}
	case "redis":
		config.RedisAddr = os.Getenv("REDIS_ADDR")
		if config.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for Redis")
		}
		config.RedisPass = os.Getenv("REDIS_PASSWORD")
		dbStr := os.Getenv("REDIS_DB")
		if dbStr == "" {
			config.RedisDB = 0 // default DB
		} else {
			db, err := strconv.Atoi(dbStr)
			if err != nil {
				return nil, fmt.Errorf("invalid REDIS_DB value: %v", err)
			}
			config.RedisDB = db
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_TYPE: %s", storeType)
	}

	return config, nil
}

// New builds the Store backend named by the config.
func New(config *StoreConfig, logger *logrus.Logger) (Store, error) {
	switch config.Type {
	case "bolt":
		return NewBoltStore(config.Path, logger)
	case "redis":
		return NewRedisStore(config)
	case "sqlite":
		return NewSQLiteStore(config.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported STORE_TYPE: %s", config.Type)
	}
}
