// Package commerce talks to the commerce platform's storefront and admin GraphQL APIs.
// The platform is the source of truth for carts, variants and customers.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"luminix/internal/domain"
)

// Config holds connection settings. BaseURL overrides https://{Domain} (used by tests).
type Config struct {
	Domain          string
	APIVersion      string
	StorefrontToken string
	AdminToken      string
	Timeout         time.Duration
	BaseURL         string
	HTTPClient      *http.Client
}

// Client issues GraphQL requests against both API variants.
type Client struct {
	httpClient      *http.Client
	storefrontURL   string
	adminURL        string
	storefrontToken string
	adminToken      string
	logger          *log.Logger
}

type api int

const (
	storefrontAPI api = iota
	adminAPI
)

const maxResponseBytes = 4 << 20

// New validates cfg and returns a Client.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Domain) == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: commerce domain", domain.ErrConfig)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2025-01"
	}
	base := "https://" + strings.TrimSuffix(strings.TrimSpace(cfg.Domain), "/")
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient:      httpClient,
		storefrontURL:   base + "/api/" + version + "/graphql.json",
		adminURL:        base + "/admin/api/" + version + "/graphql.json",
		storefrontToken: cfg.StorefrontToken,
		adminToken:      cfg.AdminToken,
		logger:          logger,
	}, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse[T any] struct {
	Data   T          `json:"data"`
	Errors []gqlError `json:"errors"`
}

// do posts one GraphQL operation and decodes its data into T.
func do[T any](ctx context.Context, c *Client, target api, query string, vars map[string]any) (T, error) {
	var zero T

	url, header, token := c.storefrontURL, "X-Shopify-Storefront-Access-Token", c.storefrontToken
	if target == adminAPI {
		url, header, token = c.adminURL, "X-Shopify-Access-Token", c.adminToken
	}
	if token == "" {
		return zero, fmt.Errorf("%w: %s", domain.ErrConfig, header)
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return zero, fmt.Errorf("marshal graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(header, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%w: commerce request: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return zero, fmt.Errorf("%w: read commerce response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Printf("commerce: status=%d body=%s", resp.StatusCode, truncate(raw, 256))
		return zero, fmt.Errorf("%w: commerce status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var out gqlResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: decode commerce response: %v", domain.ErrUpstream, err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			if e.Extensions.Code != "" {
				msgs = append(msgs, e.Message+" ("+e.Extensions.Code+")")
			} else {
				msgs = append(msgs, e.Message)
			}
		}
		return zero, fmt.Errorf("%w: graphql: %s", domain.ErrUpstream, strings.Join(msgs, "; "))
	}
	return out.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// UserError is a field-level validation error reported by a platform mutation.
type UserError struct {
	Field   string
	Message string
	Code    string
}

func (e *UserError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *UserError) Unwrap() error { return domain.ErrValidation }

type userErrorPayload struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// ErrStaleDigest is returned when a metafield write carried an outdated compare digest.
var ErrStaleDigest = errors.New("metafield changed concurrently")

func firstUserError(errs []userErrorPayload) error {
	if len(errs) == 0 {
		return nil
	}
	e := errs[0]
	switch e.Code {
	case "STALE_OBJECT", "INVALID_COMPARE_DIGEST":
		return ErrStaleDigest
	}
	return &UserError{Field: strings.Join(e.Field, "."), Message: e.Message, Code: e.Code}
}
