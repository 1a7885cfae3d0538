// Package verification stores short-lived one-time email codes.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var (
	ErrCodeNotFound = errors.New("no verification code for this email")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("verification code does not match")
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

// Names are the optional signup names carried from send-code to verify-code.
type Names struct {
	FirstName string
	LastName  string
}

// Store issues and consumes codes. At most one live code exists per email.
type Store interface {
	Issue(ctx context.Context, email string, names Names) (string, error)
	Consume(ctx context.Context, email, code string) (Names, error)
	// Sweep deletes expired records and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

type record struct {
	code      string
	names     Names
	expiresAt time.Time
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var codeSpan = big.NewInt(900000)

// GenerateCode returns a uniformly random code in 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// check applies the consume rules to a looked-up record.
// remove reports whether the record must be deleted.
func check(rec record, found bool, code string, now time.Time) (names Names, remove bool, err error) {
	switch {
	case !found:
		return Names{}, false, ErrCodeNotFound
	case now.After(rec.expiresAt):
		return Names{}, true, ErrCodeExpired
	case subtle.ConstantTimeCompare([]byte(rec.code), []byte(strings.TrimSpace(code))) != 1:
		return Names{}, false, ErrCodeMismatch
	default:
		return rec.names, true, nil
	}
}
