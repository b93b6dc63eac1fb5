package webserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/y0ug/linkhub/internal/linkstore"
	"github.com/y0ug/linkhub/pkg/oauthlink"
)

// providerInfo is the public view of a registered provider.
type providerInfo struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// linkStartResponse carries the redirect target for a new linking attempt.
type linkStartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// handleProviders handles the GET /api/providers endpoint.
func (ws *WebServer) handleProviders(w http.ResponseWriter, r *http.Request) {
	var providers []providerInfo
	for _, name := range ws.Registry.Names() {
		profile, err := ws.Registry.Get(name)
		if err != nil {
			continue
		}
		providers = append(providers, providerInfo{Name: profile.Name, Scope: profile.Scope})
	}
	WriteSuccessResponse(w, "Providers retrieved successfully", providers)
}

// handleLinkStart handles the GET /api/link/{provider}/start endpoint.
func (ws *WebServer) handleLinkStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := mux.Vars(r)["provider"]

	query := r.URL.Query()
	projectID := query.Get("project_id")
	ownerID := query.Get("owner_id")
	redirectURI := query.Get("redirect_uri")
	if projectID == "" || ownerID == "" || redirectURI == "" {
		WriteErrorResponse(w, "project_id, owner_id and redirect_uri are required", http.StatusBadRequest)
		return
	}

	profile, err := ws.Registry.Get(provider)
	if err != nil {
		WriteErrorResponse(w, "Unknown provider", http.StatusNotFound)
		return
	}

	state, err := oauthlink.GenerateState()
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to generate state")
		WriteErrorResponse(w, "Failed to start linking", http.StatusInternalServerError)
		return
	}
	codeVerifier, _, err := oauthlink.GeneratePKCE()
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to generate PKCE verifier")
		WriteErrorResponse(w, "Failed to start linking", http.StatusInternalServerError)
		return
	}

	var nonce string
	if strings.Contains(profile.Scope, "openid") {
		if nonce, err = oauthlink.GenerateNonce(); err != nil {
			ws.Logger.WithError(err).Error("Failed to generate nonce")
			WriteErrorResponse(w, "Failed to start linking", http.StatusInternalServerError)
			return
		}
	}

	authURL, err := ws.Engine.AuthorizationURL(ctx, profile, redirectURI, state, codeVerifier)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to build authorization URL")
		WriteErrorResponse(w, "Failed to start linking", http.StatusInternalServerError)
		return
	}

	ws.pending.add(state, pendingLink{
		ProjectID:    projectID,
		Provider:     provider,
		OwnerID:      ownerID,
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
		Nonce:        nonce,
	})

	WriteSuccessResponse(w, "Linking started", linkStartResponse{
		AuthorizationURL: authURL,
		State:            state,
	})
}

// handleLinkCallback handles the GET /api/link/{provider}/callback endpoint.
func (ws *WebServer) handleLinkCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := mux.Vars(r)["provider"]

	query := r.URL.Query()
	state := query.Get("state")
	if state == "" {
		WriteErrorResponse(w, "state parameter is required", http.StatusBadRequest)
		return
	}

	link, ok := ws.pending.consume(state)
	if !ok || link.Provider != provider {
		WriteErrorResponse(w, "Unknown or expired state", http.StatusBadRequest)
		return
	}

	profile, err := ws.Registry.Get(provider)
	if err != nil {
		WriteErrorResponse(w, "Unknown provider", http.StatusNotFound)
		return
	}

	credential, err := ws.Engine.ExchangeCode(ctx, profile, query, link.RedirectURI, link.CodeVerifier, link.Nonce)
	if err != nil {
		ws.writeExchangeError(w, provider, err)
		return
	}

	now := time.Now()
	account := linkstore.LinkedAccount{
		ProjectID:  link.ProjectID,
		Provider:   provider,
		OwnerID:    link.OwnerID,
		Enabled:    true,
		Credential: *credential,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing, err := ws.Store.GetAccount(ctx, link.ProjectID, provider, link.OwnerID); err == nil {
		account.CreatedAt = existing.CreatedAt
	}

	if err := ws.Store.PutAccount(ctx, account); err != nil {
		ws.Logger.WithError(err).Error("Failed to persist linked account")
		WriteErrorResponse(w, "Failed to persist linked account", http.StatusInternalServerError)
		return
	}

	WriteSuccessResponse(w, "Account linked successfully", account)
}

// writeExchangeError maps the engine's error taxonomy onto HTTP statuses.
func (ws *WebServer) writeExchangeError(w http.ResponseWriter, provider string, err error) {
	var cbErr *oauthlink.CallbackError
	var invalidErr *oauthlink.InvalidResponseError
	var netErr *oauthlink.NetworkError

	switch {
	case errors.As(err, &cbErr):
		ws.Logger.WithField("provider", provider).Warnf("Provider returned callback error: %v", cbErr)
		WriteErrorResponseData(w, "Provider rejected the authorization", map[string]string{
			"error":             cbErr.Code,
			"error_description": cbErr.Description,
		}, http.StatusBadRequest)
	case errors.As(err, &invalidErr):
		ws.Logger.WithField("provider", provider).Errorf("Invalid provider response: %v", invalidErr)
		WriteErrorResponse(w, "Provider returned an invalid response", http.StatusBadGateway)
	case errors.As(err, &netErr):
		ws.Logger.WithField("provider", provider).Errorf("Token endpoint call failed: %v", netErr)
		WriteErrorResponse(w, "Failed to reach the provider", http.StatusBadGateway)
	default:
		ws.Logger.WithField("provider", provider).Errorf("Exchange failed: %v", err)
		WriteErrorResponse(w, "Failed to complete linking", http.StatusInternalServerError)
	}
}

// handleListAccounts handles the GET /api/accounts endpoint.
func (ws *WebServer) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteErrorResponse(w, "project_id is required", http.StatusBadRequest)
		return
	}

	accounts, err := ws.Store.ListAccounts(ctx, projectID)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to list accounts")
		WriteErrorResponse(w, "Failed to retrieve accounts", http.StatusInternalServerError)
		return
	}

	WriteSuccessResponse(w, "Accounts retrieved successfully", accounts)
}

// handleGetAccount handles the GET /api/accounts/{provider}/{owner} endpoint.
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteErrorResponse(w, "project_id is required", http.StatusBadRequest)
		return
	}

	account, err := ws.Store.GetAccount(ctx, projectID, vars["provider"], vars["owner"])
	if err != nil {
		if errors.Is(err, linkstore.ErrAccountNotFound) {
			WriteErrorResponse(w, "Account not found", http.StatusNotFound)
			return
		}
		ws.Logger.WithError(err).Error("Failed to get account")
		WriteErrorResponse(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}

	WriteSuccessResponse(w, "Account retrieved successfully", account)
}

// handleDeleteAccount handles the DELETE /api/accounts/{provider}/{owner} endpoint.
func (ws *WebServer) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteErrorResponse(w, "project_id is required", http.StatusBadRequest)
		return
	}

	err := ws.Store.DeleteAccount(ctx, projectID, vars["provider"], vars["owner"])
	if err != nil {
		if errors.Is(err, linkstore.ErrAccountNotFound) {
			WriteErrorResponse(w, "Account not found", http.StatusNotFound)
			return
		}
		ws.Logger.WithError(err).Error("Failed to delete account")
		WriteErrorResponse(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	WriteSuccessResponse(w, "Account deleted successfully", nil)
}

// handleForceRefresh handles the POST /api/accounts/{provider}/{owner}/refresh endpoint.
func (ws *WebServer) handleForceRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	provider := vars["provider"]

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteErrorResponse(w, "project_id is required", http.StatusBadRequest)
		return
	}

	account, err := ws.Store.GetAccount(ctx, projectID, provider, vars["owner"])
	if err != nil {
		if errors.Is(err, linkstore.ErrAccountNotFound) {
			WriteErrorResponse(w, "Account not found", http.StatusNotFound)
			return
		}
		ws.Logger.WithError(err).Error("Failed to get account")
		WriteErrorResponse(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}

	if account.Credential.RefreshToken == "" {
		WriteErrorResponse(w, "Account has no refresh token", http.StatusConflict)
		return
	}

	profile, err := ws.Registry.Get(provider)
	if err != nil {
		WriteErrorResponse(w, "Unknown provider", http.StatusNotFound)
		return
	}

	raw, err := ws.Engine.Refresh(ctx, profile, account.Credential.RefreshToken)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to refresh credential")
		WriteErrorResponse(w, "Failed to refresh credential", http.StatusBadGateway)
		return
	}

	credential, err := oauthlink.Normalize(provider, raw, time.Now())
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to normalize refreshed credential")
		WriteErrorResponse(w, "Provider returned an invalid response", http.StatusBadGateway)
		return
	}
	if credential.RefreshToken == "" {
		credential.RefreshToken = account.Credential.RefreshToken
	}

	account.Credential = *credential
	account.UpdatedAt = time.Now()
	if err := ws.Store.PutAccount(ctx, account); err != nil {
		ws.Logger.WithError(err).Error("Failed to persist refreshed credential")
		WriteErrorResponse(w, "Failed to persist refreshed credential", http.StatusInternalServerError)
		return
	}

	WriteSuccessResponse(w, "Credential refreshed successfully", account)
}
