// Package order ingests signed order webhooks into the orders table.
package order

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"luminix/internal/domain"
)

type orderUpserter interface {
	Upsert(ctx context.Context, o domain.Order) (bool, error)
}

type Outcome int

const (
	Accepted Outcome = iota + 1
	// Dropped orders carry no resolvable customer email. They count as success.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome Outcome
	OrderID string
	Created bool
}

// Service verifies and stores order webhook deliveries.
type Service struct {
	repo   orderUpserter
	secret string
	logger *log.Logger
}

func New(repo orderUpserter, secret string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, secret: secret, logger: logger}
}

// Sign returns the base64 HMAC-SHA256 of body, as sent in the signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against the raw body.
func (s *Service) Verify(body []byte, signature string) error {
	if s.secret == "" {
		return fmt.Errorf("%w: webhook secret", domain.ErrConfig)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing webhook signature", domain.ErrUnauthorized)
	}
	if !hmac.Equal([]byte(Sign(s.secret, body)), []byte(signature)) {
		return fmt.Errorf("%w: webhook signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

// Ingest verifies the delivery before parsing it, then upserts the order.
func (s *Service) Ingest(ctx context.Context, body []byte, signature string) (Result, error) {
	if err := s.Verify(body, signature); err != nil {
		return Result{}, err
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Result{}, fmt.Errorf("%w: malformed order payload: %v", domain.ErrValidation, err)
	}
	return s.Store(ctx, p)
}

// Store normalizes and upserts an already trusted payload.
func (s *Service) Store(ctx context.Context, p Payload) (Result, error) {
	o, ok := Normalize(p)
	if !ok {
		s.logger.Printf("order: dropped id=%s reason=no_email", p.ID)
		return Result{Outcome: Dropped, OrderID: string(p.ID)}, nil
	}
	if o.ShopifyOrderID == "" {
		return Result{}, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	created, err := s.repo.Upsert(ctx, o)
	if err != nil {
		return Result{}, err
	}
	s.logger.Printf("order: stored id=%s number=%s created=%t", o.ShopifyOrderID, o.OrderNumber, created)
	return Result{Outcome: Accepted, OrderID: o.ShopifyOrderID, Created: created}, nil
}
