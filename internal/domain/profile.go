package domain

import (
	"strings"
	"time"
)

// PhoneNotProvided marks a phone number that was never collected (OAuth sign-ups).
// Callers must treat it the same as an empty phone number.
const PhoneNotProvided = "not_provided"

// Profile is the relational row paired one-to-one with an auth identity.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasPhone reports whether a real phone number is stored.
func (p Profile) HasPhone() bool {
	phone := strings.TrimSpace(p.PhoneNumber)
	return phone != "" && phone != PhoneNotProvided
}

// BuildDisplayName joins first and last name, falling back to the local part of the email.
func BuildDisplayName(first, last, email string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// ValidPhone reports whether phone is exactly 10 ASCII digits.
func ValidPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}
