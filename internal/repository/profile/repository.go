package profile

import (
	"context"

	"luminix/internal/domain"
)

// Changes holds the editable profile fields. Nil fields are left untouched.
type Changes struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DisplayName *string
}

// Repository persists profiles keyed by auth identity id.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	// Insert fails with domain.ErrAlreadyExists when a row for the id exists.
	Insert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
	Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, id string, ch Changes) (*domain.Profile, error)
	Delete(ctx context.Context, id string) error
}
