package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-auth/config"

	"github.com/stretchr/testify/assert"
)

func testClient(serverURL string) *Client {
	return NewClient(config.IdentityConfig{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Timeout: time.Second,
	})
}

func providerError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
		},
	})
}

func TestSignUpWithPasswordSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new@example.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"localId":      "uid-123",
			"email":        "new@example.com",
			"refreshToken": "provider-refresh",
		})
	}))
	defer server.Close()

	result, err := testClient(server.URL).SignUpWithPassword(context.Background(), "new@example.com", "password123")
	assert.NoError(t, err)
	assert.Equal(t, "uid-123", result.SubjectID)
	assert.Equal(t, "provider-refresh", result.RefreshToken)
}

func TestSignUpWithPasswordEmailExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerError(w, http.StatusBadRequest, "EMAIL_EXISTS")
	}))
	defer server.Close()

	_, err := testClient(server.URL).SignUpWithPassword(context.Background(), "dup@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignUpWithPasswordWeakPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
	}))
	defer server.Close()

	_, err := testClient(server.URL).SignUpWithPassword(context.Background(), "new@example.com", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignInWithPasswordSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"localId":       "uid-123",
			"email":         "user@example.com",
			"displayName":   "Test User",
			"photoUrl":      "https://photos.example.com/u.jpg",
			"emailVerified": true,
			"refreshToken":  "provider-refresh",
		})
	}))
	defer server.Close()

	session, err := testClient(server.URL).SignInWithPassword(context.Background(), "user@example.com", "password123")
	assert.NoError(t, err)
	assert.Equal(t, "uid-123", session.UID)
	assert.Equal(t, "user@example.com", session.Email)
	assert.Equal(t, "Test User", session.DisplayName)
	assert.True(t, session.EmailVerified)
	assert.Equal(t, "provider-refresh", session.RefreshToken)
}

func TestSignInWithPasswordInvalidCredentials(t *testing.T) {
	for _, code := range []string{"INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providerError(w, http.StatusBadRequest, code)
		}))

		_, err := testClient(server.URL).SignInWithPassword(context.Background(), "user@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "code %s", code)
		server.Close()
	}
}

func TestSignInWithProviderSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithIdp", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["postBody"], "providerId=google.com")
		assert.Equal(t, true, body["returnIdpCredential"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"localId":       "uid-456",
			"email":         "google@example.com",
			"displayName":   "Google User",
			"emailVerified": true,
			"refreshToken":  "provider-refresh",
		})
	}))
	defer server.Close()

	ident, err := testClient(server.URL).SignInWithProvider(context.Background(), ProviderGoogle, "oauth-token")
	assert.NoError(t, err)
	assert.Equal(t, "uid-456", ident.UID)
	assert.Equal(t, "google@example.com", ident.Email)
	assert.True(t, ident.EmailVerified)
}

func TestSignInWithProviderPopupClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerError(w, http.StatusBadRequest, "USER_CANCELLED")
	}))
	defer server.Close()

	_, err := testClient(server.URL).SignInWithProvider(context.Background(), ProviderFacebook, "oauth-token")
	assert.ErrorIs(t, err, ErrPopupClosed)
}

func TestSignOut(t *testing.T) {
	var revoked string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions:revoke", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		revoked = body["refreshToken"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, testClient(server.URL).SignOut(context.Background(), "provider-refresh"))
	assert.Equal(t, "provider-refresh", revoked)
}

func TestPostUnknownProviderCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerError(w, http.StatusBadRequest, "SOMETHING_NEW : detail text")
	}))
	defer server.Close()

	_, err := testClient(server.URL).SignUpWithPassword(context.Background(), "new@example.com", "password123")
	var providerErr *ProviderError
	assert.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "SOMETHING_NEW", providerErr.Code)
	assert.Equal(t, "detail text", providerErr.Error())
}

func TestPostTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := testClient(server.URL).SignUpWithPassword(context.Background(), "new@example.com", "password123")
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "accounts:signUp", transportErr.Op)
}

func TestPostMalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).SignUpWithPassword(context.Background(), "new@example.com", "password123")
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestProviderDisplayName(t *testing.T) {
	assert.Equal(t, "Google", ProviderGoogle.DisplayName())
	assert.Equal(t, "Facebook", ProviderFacebook.DisplayName())
	assert.Equal(t, "Email", ProviderPassword.DisplayName())
	assert.Panics(t, func() { ProviderKind("unknown").DisplayName() })
}
