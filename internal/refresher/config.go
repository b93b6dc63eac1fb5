package refresher

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// LoadConfig loads refresher timing configuration from environment
// variables. Collaborators are wired in by the caller.
func LoadConfig(logger *logrus.Logger) Config {
	pollInterval, err := strconv.Atoi(os.Getenv("REFRESH_POLL_INTERVAL_MINUTES"))
	if err != nil || pollInterval <= 0 {
		pollInterval = 5
		logger.Infof("Invalid or missing REFRESH_POLL_INTERVAL_MINUTES. Defaulting to %d minutes.", pollInterval)
	}

	window, err := strconv.Atoi(os.Getenv("REFRESH_WINDOW_MINUTES"))
	if err != nil || window <= 0 {
		window = 15
		logger.Infof("Invalid or missing REFRESH_WINDOW_MINUTES. Defaulting to %d minutes.", window)
	}

	return Config{
		PollInterval: time.Duration(pollInterval) * time.Minute,
		Window:       time.Duration(window) * time.Minute,
		Logger:       logger,
	}
}

// MaxConcurrencyFromEnv reads the sweep concurrency bound.
func MaxConcurrencyFromEnv() int64 {
	n, err := strconv.Atoi(os.Getenv("REFRESH_MAX_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 4
	}
	return int64(n)
}
