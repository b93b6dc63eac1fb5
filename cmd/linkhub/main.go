package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/y0ug/linkhub/internal/linkstore"
	"github.com/y0ug/linkhub/internal/notifications"
	"github.com/y0ug/linkhub/internal/refresher"
	"github.com/y0ug/linkhub/internal/webserver"
	"github.com/y0ug/linkhub/pkg/oauthlink"
)

func main() {
	ctx := context.Background()

	// Initialize Logrus
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found. Proceeding with environment variables.")
	}

	// Load storage configuration
	storeConfig, err := linkstore.LoadStoreConfig()
	if err != nil {
		logger.Fatalf("Failed to load store configuration: %v", err)
	}

	// Initialize the link store
	store, err := linkstore.New(storeConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize %s store: %v", storeConfig.Type, err)
	}
	defer store.Close(ctx)
	logger.Infof("%s store initialized successfully", storeConfig.Type)

	// Load provider profiles from the environment
	registry, err := oauthlink.RegistryFromEnv()
	if err != nil {
		logger.Fatalf("Failed to load provider configuration: %v", err)
	}
	for _, name := range registry.Names() {
		logger.Infof("Provider registered: %s", name)
	}

	// Initialize the engine with optional per-provider token rate limits
	engine := oauthlink.NewEngine(nil, logger)
	if err := oauthlink.RateLimitersFromEnv(engine, registry); err != nil {
		logger.Fatalf("Failed to configure rate limiters: %v", err)
	}

	// Initialize Notifier when configured
	var notifier *notifications.Notifier
	if notificationCfg, err := notifications.LoadNotificationConfig(); err != nil {
		logger.Warnf("Notifications disabled: %v", err)
	} else {
		notifier, err = notifications.NewNotifier(notificationCfg.ShoutrrrURLs, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize notifier: %v", err)
		}
		logger.Info("Notifier initialized successfully")
	}

	// Initialize the refresher
	refresherConfig := refresher.LoadConfig(logger)
	refresherConfig.Store = store
	refresherConfig.Registry = registry
	refresherConfig.Engine = engine
	refresherConfig.Notifier = notifier

	ref := refresher.NewRefresher(refresherConfig, refresher.MaxConcurrencyFromEnv())

	webServerConfig, err := webserver.NewWebserverConfig()
	if err != nil {
		logger.Fatalf("Failed to load webserver configuration: %v", err)
	}
	if webServerConfig.APIKey == "" {
		logger.Warn("API_KEY not set; the API is unauthenticated")
	}

	// Initialize Web Server
	webServer := webserver.NewWebServer(store, engine, registry, webServerConfig, logger)

	// Create a cancellable context
	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start the web server
	server, err := webserver.StartWebServer(ctxCancel, webServer)
	if err != nil {
		logger.Fatalf("Failed to start web server: %v", err)
	}

	// Start the refresh loop in a separate goroutine
	go func() {
		logger.Info("Starting credential refresh process")
		ref.Start(ctxCancel)
	}()

	// Listen for OS signals to handle graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	logger.Infof("Received signal: %s. Initiating shutdown...", sig)

	// Initiate shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Failed to gracefully shutdown the server: %v", err)
	}

	logger.Info("Shutdown complete. Exiting.")
}
