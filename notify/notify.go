// Package notify posts registration notices to the Slack integration
// endpoint. Dispatch is fire-and-forget: the triggering flow never waits
// for the result, and failures are logged and counted, never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"marketplace-auth/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Sink interface {
	RegistrationNotice(text string)
}

type SlackNotifier struct {
	hostname   string
	appEnv     string
	timeout    time.Duration
	httpClient *http.Client
	failures   metric.Int64Counter
}

func NewSlackNotifier(cfg config.APIConfig, appEnv string) *SlackNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	failures, err := otel.Meter("marketplace-auth/notify").Int64Counter("notify.dispatch.failures")
	if err != nil {
		log.Printf("notify: failed to create dispatch failure counter: %v", err)
	}
	return &SlackNotifier{
		hostname:   cfg.Hostname,
		appEnv:     appEnv,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		failures:   failures,
	}
}

// RegistrationNotice dispatches the notice in the background and returns
// immediately.
func (n *SlackNotifier) RegistrationNotice(text string) {
	go n.send(fmt.Sprintf("[%s] %s", n.appEnv, text))
}

func (n *SlackNotifier) send(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		n.recordFailure(ctx, err)
		return
	}

	target := n.hostname + "/api/slack-integration/notify-userbase-status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		n.recordFailure(ctx, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.recordFailure(ctx, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.recordFailure(ctx, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (n *SlackNotifier) recordFailure(ctx context.Context, err error) {
	log.Printf("notify: slack dispatch failed: %v", err)
	if n.failures != nil {
		n.failures.Add(ctx, 1)
	}
}
