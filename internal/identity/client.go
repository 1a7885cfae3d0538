// Package identity calls the hosted auth service's admin API.
package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"luminix/internal/domain"
)

// Client deletes identities with the service role key.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New returns nil when the auth service is not configured.
func New(baseURL, serviceKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(serviceKey) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DeleteUser removes an identity. An unknown id yields domain.ErrNotFound.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	endpoint := c.baseURL + "/auth/v1/admin/users/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: auth service: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: identity %s", domain.ErrNotFound, id)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: auth service status %d: %s", domain.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
