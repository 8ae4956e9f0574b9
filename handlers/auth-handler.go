package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"marketplace-auth/audit"
	"marketplace-auth/auth"
	"marketplace-auth/config"
	"marketplace-auth/identity"
	"marketplace-auth/middleware"
	"marketplace-auth/models"
	"marketplace-auth/store"
	"marketplace-auth/utils"

	"github.com/gorilla/mux"
)

var (
	generateToken        = utils.GenerateToken
	generateRefreshToken = utils.GenerateRefreshToken
	muxVar               = func(r *http.Request, key string) string { return mux.Vars(r)[key] }
)

type JSONResponse map[string]interface{}

// AuthFlows is the slice of the orchestrator the HTTP layer needs.
type AuthFlows interface {
	SignUpWithPassword(ctx context.Context, email, password, displayName, userType string, dispatch auth.Dispatcher) auth.SignUpOutcome
	SignInWithPassword(ctx context.Context, email, password string, dispatch auth.Dispatcher) auth.LoginOutcome
	SignInWithProvider(ctx context.Context, kind identity.ProviderKind, credential, userType string, dispatch auth.Dispatcher) auth.LoginOutcome
	SignOut(ctx context.Context, refreshToken string, dispatch auth.Dispatcher) auth.LogoutOutcome
}

type AuthHandler struct {
	cfg        config.Config
	flows      AuthFlows
	tokenStore store.RefreshTokenStore
	trail      *audit.Trail
}

func NewAuthHandler(cfg config.Config, flows AuthFlows, tokenStore store.RefreshTokenStore, trail *audit.Trail) *AuthHandler {
	return &AuthHandler{cfg: cfg, flows: flows, tokenStore: tokenStore, trail: trail}
}

// eventCollector buffers the transitions a flow emits so they can be
// replayed to the client's state layer in the response body.
type eventCollector struct {
	events []auth.Event
}

func (c *eventCollector) Dispatch(event auth.Event) {
	c.events = append(c.events, event)
}

func (h *AuthHandler) dispatcher(collector *eventCollector) auth.Dispatcher {
	if h.trail != nil {
		return h.trail.Wrap(collector)
	}
	return collector
}

func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		CompleteName string `json:"completeName"`
		UserType     string `json:"userType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if req.Email == "" || req.Password == "" || req.CompleteName == "" {
		return middleware.NewAppError(http.StatusBadRequest, "Email, password and name are required", nil)
	}
	if req.UserType != models.UserTypePhotographer && req.UserType != models.UserTypeTraveller {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid user type", nil)
	}

	collector := &eventCollector{}
	outcome := h.flows.SignUpWithPassword(r.Context(), req.Email, req.Password, req.CompleteName, req.UserType, h.dispatcher(collector))
	if outcome.Failed {
		writeFlowError(w, statusForAuthError(outcome.Err), outcome.Err, collector.events)
		return nil
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{
		"status":      "OK",
		"message":     "User created",
		"uid":         outcome.UID,
		"destination": outcome.Destination,
		"events":      collector.events,
	})
	return nil
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if req.Email == "" || req.Password == "" {
		return middleware.NewAppError(http.StatusBadRequest, "Email and password are required", nil)
	}

	collector := &eventCollector{}
	outcome := h.flows.SignInWithPassword(r.Context(), req.Email, req.Password, h.dispatcher(collector))
	return h.respondLogin(w, r.Context(), outcome, collector)
}

func (h *AuthHandler) ProviderLoginHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	kind, err := providerFromPath(r)
	if err != nil {
		return err
	}

	var req struct {
		AccessToken string `json:"accessToken"`
		UserType    string `json:"userType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if req.AccessToken == "" {
		return middleware.NewAppError(http.StatusBadRequest, "Provider access token is required", nil)
	}
	if req.UserType == "" {
		req.UserType = models.UserTypeTraveller
	}
	if req.UserType != models.UserTypePhotographer && req.UserType != models.UserTypeTraveller {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid user type", nil)
	}

	collector := &eventCollector{}
	outcome := h.flows.SignInWithProvider(r.Context(), kind, req.AccessToken, req.UserType, h.dispatcher(collector))
	return h.respondLogin(w, r.Context(), outcome, collector)
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	providerRefresh := ""
	if refreshToken, err := readCookie(r, h.cfg.Session.RefreshCookieName); err == nil {
		refreshHash := utils.HashRefreshToken(refreshToken)
		if session, found, err := h.tokenStore.Get(r.Context(), refreshHash); err == nil && found {
			providerRefresh = session.ProviderRefreshToken
			_ = h.tokenStore.Revoke(r.Context(), refreshHash)
		}
	}

	collector := &eventCollector{}
	outcome := h.flows.SignOut(r.Context(), providerRefresh, h.dispatcher(collector))

	clearCookie(w, h.cfg, h.cfg.Session.AccessCookieName)
	clearCookie(w, h.cfg, h.cfg.Session.RefreshCookieName)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(JSONResponse{
		"message":     "Logged out successfully",
		"destination": outcome.Destination,
		"events":      collector.events,
	})
	return nil
}

func (h *AuthHandler) respondLogin(w http.ResponseWriter, ctx context.Context, outcome auth.LoginOutcome, collector *eventCollector) error {
	if outcome.State == auth.StateFailed {
		writeFlowError(w, statusForAuthError(outcome.Err), outcome.Err, collector.events)
		return nil
	}

	accessToken, err := h.issueSession(ctx, w, outcome.Session, outcome.Metadata.UserType)
	if err != nil {
		log.Printf("handlers: issuing session for %s failed: %v", outcome.Session.UID, err)
		return middleware.NewAppError(http.StatusInternalServerError, "Could not establish session", err)
	}

	response := JSONResponse{
		"session":      outcome.Session,
		"destination":  outcome.Destination,
		"events":       collector.events,
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(h.cfg.Session.AccessTokenTTL.Seconds()),
	}
	if outcome.State == auth.StateMetadataFetched {
		response["metadata"] = outcome.Metadata
	}
	json.NewEncoder(w).Encode(response)
	return nil
}

func (h *AuthHandler) issueSession(ctx context.Context, w http.ResponseWriter, session models.Session, userType string) (string, error) {
	claims := utils.Claims{UID: session.UID, UserType: userType}
	accessToken, err := generateToken(claims, h.cfg.Session.AccessTokenTTL, h.cfg.Session.Issuer, h.cfg.Session.TokenSecret)
	if err != nil {
		return "", err
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	refreshHash := utils.HashRefreshToken(refreshToken)

	if h.tokenStore == nil {
		return "", errors.New("token store not configured")
	}
	if err := h.tokenStore.Save(ctx, refreshHash, store.RefreshSession{
		UID:                  session.UID,
		UserType:             userType,
		ProviderRefreshToken: session.RefreshToken,
		IssuedAt:             time.Now().UTC(),
	}, h.cfg.Session.RefreshTokenTTL); err != nil {
		return "", err
	}

	setCookie(w, h.cfg, h.cfg.Session.AccessCookieName, accessToken, h.cfg.Session.AccessTokenTTL)
	setCookie(w, h.cfg, h.cfg.Session.RefreshCookieName, refreshToken, h.cfg.Session.RefreshTokenTTL)
	return accessToken, nil
}

func providerFromPath(r *http.Request) (identity.ProviderKind, error) {
	switch muxVar(r, "provider") {
	case "google":
		return identity.ProviderGoogle, nil
	case "facebook":
		return identity.ProviderFacebook, nil
	default:
		return "", middleware.NewAppError(http.StatusBadRequest, "Unsupported sign-in provider", nil)
	}
}

// statusForAuthError maps flow failures onto HTTP statuses; the error
// message itself is always surfaced verbatim.
func statusForAuthError(err error) int {
	var transport *identity.TransportError
	var mismatch *auth.ProviderMismatchError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrPopupClosed):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotVerified):
		return http.StatusForbidden
	case errors.As(err, &mismatch):
		return http.StatusConflict
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeFlowError(w http.ResponseWriter, status int, err error, events []auth.Event) {
	message := "Authentication failed"
	if err != nil {
		message = err.Error()
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		"error":  message,
		"events": events,
	})
}

func setCookie(w http.ResponseWriter, cfg config.Config, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearCookie(w http.ResponseWriter, cfg config.Config, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func readCookie(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
