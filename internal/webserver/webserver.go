package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/y0ug/linkhub/internal/linkstore"
	"github.com/y0ug/linkhub/pkg/oauthlink"
)

const pendingLinkTTL = 10 * time.Minute

// WebServer holds the data needed for handling HTTP requests.
type WebServer struct {
	Store    linkstore.Store
	Engine   *oauthlink.Engine
	Registry *oauthlink.Registry
	config   *WebserverConfig
	pending  *pendingStore
	Logger   *logrus.Logger
}

// NewWebServer initializes a new WebServer.
func NewWebServer(store linkstore.Store, engine *oauthlink.Engine, registry *oauthlink.Registry, config *WebserverConfig, logger *logrus.Logger) *WebServer {
	return &WebServer{
		Store:    store,
		Engine:   engine,
		Registry: registry,
		config:   config,
		pending:  newPendingStore(pendingLinkTTL),
		Logger:   logger,
	}
}

// StartWebServer starts the HTTP server.
func StartWebServer(ctx context.Context, ws *WebServer) (*http.Server, error) {
	router := ws.InitRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   ws.config.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		Debug:            false,
	}

	handler := cors.New(corsOptions).Handler(router)

	server := &http.Server{
		Addr:    ws.config.ListenTo,
		Handler: handler,
	}

	go func() {
		ws.Logger.Infof("Server starting on %s", ws.config.ListenTo)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.Logger.Errorf("ListenAndServe(): %v", err)
		}
	}()

	return server, nil
}

// InitRouter initializes the HTTP routes.
func (ws *WebServer) InitRouter() *mux.Router {
	r := mux.NewRouter()

	// The provider redirects the end user's browser here, so it cannot
	// carry the API key.
	r.HandleFunc("/api/link/{provider}/callback", ws.handleLinkCallback).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(ws.apiKeyMiddleware)

	api.HandleFunc("/providers", ws.handleProviders).Methods(http.MethodGet)
	api.HandleFunc("/link/{provider}/start", ws.handleLinkStart).Methods(http.MethodGet)
	api.HandleFunc("/accounts", ws.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{provider}/{owner}", ws.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{provider}/{owner}", ws.handleDeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{provider}/{owner}/refresh", ws.handleForceRefresh).Methods(http.MethodPost)

	return r
}

// apiKeyMiddleware guards the API with a shared key. With no key
// configured the guard is disabled.
func (ws *WebServer) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ws.config.APIKey != "" && r.Header.Get("X-API-Key") != ws.config.APIKey {
			WriteErrorResponse(w, "Invalid or missing API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
