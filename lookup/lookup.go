// Package lookup resolves which sign-in providers an email address is
// registered under, via the companion API's accountType endpoint.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketplace-auth/config"
	"marketplace-auth/identity"
)

type Resolver interface {
	ProvidersForEmail(ctx context.Context, email string) ([]identity.ProviderKind, error)
}

type Client struct {
	hostname   string
	httpClient *http.Client
}

func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		hostname:   cfg.Hostname,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type accountTypeResponse struct {
	Data []struct {
		ProviderID string `json:"providerId"`
	} `json:"data"`
	Message string `json:"message"`
}

func (c *Client) ProvidersForEmail(ctx context.Context, email string) ([]identity.ProviderKind, error) {
	target := fmt.Sprintf("%s/api/auth/accountType/?email=%s", c.hostname, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account type lookup: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("account type lookup: %w", err)
	}

	// Failures carry a message meant to be shown to the user as-is, but
	// an intermediary may answer with a non-JSON body.
	if resp.StatusCode >= http.StatusBadRequest {
		var failure accountTypeResponse
		if err := json.Unmarshal(raw, &failure); err == nil && failure.Message != "" {
			return nil, errors.New(failure.Message)
		}
		return nil, fmt.Errorf("account type lookup: unexpected status %d", resp.StatusCode)
	}

	var body accountTypeResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("account type lookup: %w", err)
	}

	providers := make([]identity.ProviderKind, 0, len(body.Data))
	for _, item := range body.Data {
		providers = append(providers, identity.ProviderKind(item.ProviderID))
	}
	return providers, nil
}
