// Package session verifies the bearer tokens issued by the hosted auth service.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"luminix/internal/domain"
)

// Claims identifies the signed-in user.
type Claims struct {
	UserID string
	Email  string
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed session tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify accepts "Bearer <token>" or a bare token.
func (v *Verifier) Verify(raw string) (Claims, error) {
	if len(v.secret) == 0 {
		return Claims{}, fmt.Errorf("%w: session secret", domain.ErrConfig)
	}
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return Claims{}, fmt.Errorf("%w: missing session token", domain.ErrUnauthorized)
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(v.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: invalid session token: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: session token has no subject", domain.ErrUnauthorized)
	}
	return Claims{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token the way the auth service does. Used by tooling and tests.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required to issue a token")
	}
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
