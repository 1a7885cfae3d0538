// Package profile keeps a relational profile row in step with every auth identity.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"luminix/internal/domain"
	profilerepo "luminix/internal/repository/profile"
)

type identityDeleter interface {
	DeleteUser(ctx context.Context, id string) error
}

// Service reconciles profiles for password, magic-link and OAuth identities.
type Service struct {
	repo     profilerepo.Repository
	identity identityDeleter
	logger   *log.Logger
}

// New builds a Service. identity may be nil; DeleteProfile then reports domain.ErrConfig.
func New(repo profilerepo.Repository, identity identityDeleter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, identity: identity, logger: logger}
}

// EnsureInput describes an identity that has just signed in.
type EnsureInput struct {
	IdentityID  string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

type EnsureResult struct {
	IsNewUser  bool
	NeedsPhone bool
	Profile    *domain.Profile
}

// EnsureProfile creates the profile on first sign-in and reports whether a phone number
// still has to be collected.
func (s *Service) EnsureProfile(ctx context.Context, in EnsureInput) (EnsureResult, error) {
	id, err := identityID(in.IdentityID)
	if err != nil {
		return EnsureResult{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return EnsureResult{NeedsPhone: !existing.HasPhone(), Profile: existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return EnsureResult{}, err
	}

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return EnsureResult{}, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone != "" && !domain.ValidPhone(phone) {
		s.logger.Printf("profile: ignoring malformed provider phone id=%s", id)
		phone = ""
	}
	needsPhone := phone == ""
	if needsPhone {
		phone = domain.PhoneNotProvided
	}

	created, err := s.repo.Insert(ctx, domain.Profile{
		ID:          id,
		Email:       email,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: phone,
		DisplayName: domain.BuildDisplayName(in.FirstName, in.LastName, email),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// A concurrent sign-in created the row first.
		existing, err := s.repo.Get(ctx, id)
		if err != nil {
			return EnsureResult{}, err
		}
		return EnsureResult{NeedsPhone: !existing.HasPhone(), Profile: existing}, nil
	}
	if err != nil {
		return EnsureResult{}, err
	}
	s.logger.Printf("profile: created id=%s needs_phone=%t", id, needsPhone)
	return EnsureResult{IsNewUser: true, NeedsPhone: needsPhone, Profile: created}, nil
}

// CreateInput is the password signup payload. PhoneNumber is mandatory.
type CreateInput struct {
	IdentityID  string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// CreateProfile validates the phone number before anything is written, then upserts the row.
func (s *Service) CreateProfile(ctx context.Context, in CreateInput) (*domain.Profile, error) {
	phone := strings.TrimSpace(in.PhoneNumber)
	if !domain.ValidPhone(phone) {
		return nil, fmt.Errorf("%w: phone number must be exactly 10 digits", domain.ErrValidation)
	}
	id, err := identityID(in.IdentityID)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	return s.repo.Upsert(ctx, domain.Profile{
		ID:          id,
		Email:       email,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: phone,
		DisplayName: domain.BuildDisplayName(in.FirstName, in.LastName, email),
	})
}

// UpdateInput carries a profile edit. Nil fields are unchanged.
type UpdateInput struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
}

func (s *Service) UpdateProfile(ctx context.Context, identity string, in UpdateInput) (*domain.Profile, error) {
	id, err := identityID(identity)
	if err != nil {
		return nil, err
	}
	var changes profilerepo.Changes
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if !domain.ValidPhone(phone) {
			return nil, fmt.Errorf("%w: phone number must be exactly 10 digits", domain.ErrValidation)
		}
		changes.PhoneNumber = &phone
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	first, last := current.FirstName, current.LastName
	if in.FirstName != nil {
		first = strings.TrimSpace(*in.FirstName)
		changes.FirstName = &first
	}
	if in.LastName != nil {
		last = strings.TrimSpace(*in.LastName)
		changes.LastName = &last
	}
	if changes.FirstName != nil || changes.LastName != nil {
		display := domain.BuildDisplayName(first, last, current.Email)
		changes.DisplayName = &display
	}
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) GetProfile(ctx context.Context, identity string) (*domain.Profile, error) {
	id, err := identityID(identity)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// DeleteProfile removes the identity at the auth service, then the profile row.
func (s *Service) DeleteProfile(ctx context.Context, identity string) error {
	id, err := identityID(identity)
	if err != nil {
		return err
	}
	if s.identity == nil {
		return fmt.Errorf("%w: auth service admin client", domain.ErrConfig)
	}
	if err := s.identity.DeleteUser(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.logger.Printf("profile: deleted id=%s", id)
	return nil
}

func identityID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: user id must be a UUID", domain.ErrValidation)
	}
	return id.String(), nil
}
