package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks malformed input, e.g. a bad phone number.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a bad signature, token or verification code.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream marks a commerce platform, auth service or mail transport failure.
	ErrUpstream = errors.New("upstream failure")
	// ErrPersistence marks a relational store failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrConfig marks a missing required secret or endpoint.
	ErrConfig = errors.New("missing configuration")
)
