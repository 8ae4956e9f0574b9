package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-auth/config"

	"github.com/stretchr/testify/assert"
)

func TestSendPostsEnvPrefixedText(t *testing.T) {
	var payload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/slack-integration/notify-userbase-status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(config.APIConfig{Hostname: server.URL, Timeout: time.Second}, "dev")
	notifier.send("[dev] New user registered via Email - Name: Test User, Email: user@example.com, Type: photographer")

	assert.Equal(t, "[dev] New user registered via Email - Name: Test User, Email: user@example.com, Type: photographer", payload["text"])
}

func TestRegistrationNoticeAddsEnvPrefix(t *testing.T) {
	received := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(config.APIConfig{Hostname: server.URL, Timeout: time.Second}, "prod")
	notifier.RegistrationNotice("hello")

	select {
	case payload := <-received:
		assert.Equal(t, "[prod] hello", payload["text"])
	case <-time.After(2 * time.Second):
		t.Fatal("notice was never dispatched")
	}
}

func TestSendSwallowsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(config.APIConfig{Hostname: server.URL, Timeout: time.Second}, "dev")
	assert.NotPanics(t, func() { notifier.send("hello") })
}

func TestSendSwallowsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	notifier := NewSlackNotifier(config.APIConfig{Hostname: server.URL, Timeout: time.Second}, "dev")
	assert.NotPanics(t, func() { notifier.send("hello") })
}
