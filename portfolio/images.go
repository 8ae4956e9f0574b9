package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketplace-auth/config"
)

// ImageClient calls the Cloudinary integration's delete endpoint.
type ImageClient struct {
	hostname   string
	httpClient *http.Client
}

func NewImageClient(cfg config.APIConfig) *ImageClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ImageClient{
		hostname:   cfg.Hostname,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ImageClient) Delete(ctx context.Context, publicIDs []string) error {
	encoded, err := json.Marshal(publicIDs)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s/api/cloudinary-images/delete?public_ids=%s", c.hostname, url.QueryEscape(string(encoded)))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("image delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("image delete: unexpected status %d", resp.StatusCode)
	}
	return nil
}
