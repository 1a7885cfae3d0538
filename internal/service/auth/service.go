// Package auth implements email code sign-in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"luminix/internal/domain"
	"luminix/internal/mail"
	"luminix/internal/verification"
)

type customerDirectory interface {
	FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error)
}

type mailer interface {
	SendVerification(ctx context.Context, m mail.VerificationMail) error
}

// Service issues codes and turns verified emails into platform customers.
// send-code and verify-code must share the same store.
type Service struct {
	codes     verification.Store
	customers customerDirectory
	mailer    mailer
	ttl       time.Duration
	now       func() time.Time
	logger    *log.Logger
}

func New(codes verification.Store, customers customerDirectory, mailer mailer, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = verification.DefaultTTL
	}
	return &Service{codes: codes, customers: customers, mailer: mailer, ttl: ttl, now: time.Now, logger: logger}
}

type SendCodeInput struct {
	Email     string
	FirstName string
	LastName  string
}

// SendCode issues a code and publishes the verification mail.
func (s *Service) SendCode(ctx context.Context, in SendCodeInput) error {
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	names := verification.Names{FirstName: strings.TrimSpace(in.FirstName), LastName: strings.TrimSpace(in.LastName)}
	code, err := s.codes.Issue(ctx, email, names)
	if err != nil {
		return err
	}
	err = s.mailer.SendVerification(ctx, mail.VerificationMail{
		To:        email,
		FirstName: names.FirstName,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	})
	if err != nil {
		s.logger.Printf("auth: send code email=%s err=%v", email, err)
		if errors.Is(err, domain.ErrUpstream) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return nil
}

// VerifyCode consumes the code and returns the matching platform customer,
// creating one with the names given at send-code time when none exists.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*domain.Customer, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: email and code are required", domain.ErrValidation)
	}
	names, err := s.codes.Consume(ctx, email, code)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindCustomerByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	customer, err = s.customers.CreateCustomer(ctx, email, names.FirstName, names.LastName)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("auth: created customer id=%s", customer.ID)
	return customer, nil
}
