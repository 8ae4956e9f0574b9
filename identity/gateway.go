package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace-auth/config"
	"marketplace-auth/models"
)

// ProviderKind identifies a sign-in provider as registered with the
// identity provider.
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google.com"
	ProviderFacebook ProviderKind = "facebook.com"
)

// DisplayName returns the human-readable provider name used in
// user-facing messages. An unknown kind is a programming error.
func (p ProviderKind) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderFacebook:
		return "Facebook"
	case ProviderPassword:
		return "Email"
	default:
		panic(fmt.Sprintf("unknown provider kind: %q", p))
	}
}

// FederatedIdentity is what a federated provider hands back on success.
type FederatedIdentity struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	RefreshToken  string
}

// SignUpResult carries the new subject id plus the refresh token of the
// provider session the sign-up call opened, so the caller can revoke it.
type SignUpResult struct {
	SubjectID    string
	RefreshToken string
}

// Gateway wraps the identity provider's sign-in/sign-up/sign-out REST
// contract. It holds no internal state, performs no retries, and maps
// provider error codes onto the package error set.
type Gateway interface {
	SignUpWithPassword(ctx context.Context, email, password string) (SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (models.Session, error)
	SignInWithProvider(ctx context.Context, kind ProviderKind, credential string) (FederatedIdentity, error)
	SignOut(ctx context.Context, refreshToken string) error
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.IdentityConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type signUpResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) SignUpWithPassword(ctx context.Context, email, password string) (SignUpResult, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var response signUpResponse
	if err := c.post(ctx, "accounts:signUp", body, &response); err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{SubjectID: response.LocalID, RefreshToken: response.RefreshToken}, nil
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	Verified     bool   `json:"emailVerified"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (models.Session, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var response signInResponse
	if err := c.post(ctx, "accounts:signInWithPassword", body, &response); err != nil {
		return models.Session{}, err
	}
	return models.Session{
		UID:           response.LocalID,
		Email:         response.Email,
		EmailVerified: response.Verified,
		DisplayName:   response.DisplayName,
		PhotoURL:      response.PhotoURL,
		RefreshToken:  response.RefreshToken,
	}, nil
}

func (c *Client) SignInWithProvider(ctx context.Context, kind ProviderKind, credential string) (FederatedIdentity, error) {
	body := map[string]interface{}{
		"postBody":            fmt.Sprintf("access_token=%s&providerId=%s", url.QueryEscape(credential), kind),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	var response signInResponse
	if err := c.post(ctx, "accounts:signInWithIdp", body, &response); err != nil {
		return FederatedIdentity{}, err
	}
	return FederatedIdentity{
		UID:           response.LocalID,
		Email:         response.Email,
		DisplayName:   response.DisplayName,
		PhotoURL:      response.PhotoURL,
		EmailVerified: response.Verified,
		RefreshToken:  response.RefreshToken,
	}, nil
}

func (c *Client) SignOut(ctx context.Context, refreshToken string) error {
	body := map[string]interface{}{"refreshToken": refreshToken}
	return c.post(ctx, "sessions:revoke", body, nil)
}

type providerErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s/v1/%s", c.baseURL, endpoint)
	if c.apiKey != "" {
		target = fmt.Sprintf("%s?key=%s", target, url.QueryEscape(c.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errBody providerErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
			return &TransportError{Op: endpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
		}
		// Provider errors read "CODE : human readable detail" or just "CODE".
		code, detail, found := strings.Cut(errBody.Error.Message, " : ")
		if !found {
			detail = code
		}
		return mapProviderCode(code, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: endpoint, Err: err}
	}
	return nil
}
