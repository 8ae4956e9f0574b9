// Package email dispatches verification emails through the email service
// endpoint, under the same fire-and-forget contract as the Slack sink.
package email

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

type VerificationSender interface {
	SendVerification(receiverEmail, receiverName, uid string)
}

type Client struct {
	hostname   string
	timeout    time.Duration
	httpClient *http.Client
	failures   metric.Int64Counter
}

func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	failures, err := otel.Meter("marketplace-auth/email").Int64Counter("email.dispatch.failures")
	if err != nil {
		log.Printf("email: failed to create dispatch failure counter: %v", err)
	}
	return &Client{
		hostname:   cfg.Hostname,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		failures:   failures,
	}
}

// SendVerification dispatches in the background and returns immediately.
// A lost verification email is recoverable by the user; a blocked
// sign-up flow is not.
func (c *Client) SendVerification(receiverEmail, receiverName, uid string) {
	go c.send(receiverEmail, receiverName, uid)
}

func (c *Client) send(receiverEmail, receiverName, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"receiverEmail": receiverEmail,
		"receiverName":  receiverName,
		"uid":           uid,
	})
	if err != nil {
		c.recordFailure(ctx, err)
		return
	}

	target := c.hostname + "/api/email-service/email-verification"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		c.recordFailure(ctx, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.recordFailure(ctx, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	log.Printf("email: verification dispatch failed: %v", err)
	if c.failures != nil {
		c.failures.Add(ctx, 1)
	}
}
