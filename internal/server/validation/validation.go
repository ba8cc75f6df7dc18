// Package validation holds the request checks run by the transports before
// a call reaches the services. Each check returns the user-facing message of
// the first rule that fails, or "".
package validation

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/server/password"
)

const (
	MsgInvalidBody         = "Invalid request body"
	MsgInvalidEmail        = "Invalid email"
	MsgInvalidPassword     = "Invalid password"
	MsgPasswordTooShort    = "Password must be at least 8 characters long"
	MsgPasswordTooLong     = "Password must be at most 72 bytes long"
	MsgWeakPassword        = "Password is too weak"
	MsgInvalidOTP          = "Invalid OTP"
	MsgMissingRefreshToken = "Refresh token is required"
	MsgMissingContentType  = "Content type is required"
)

// Email accepts a bare addr-spec with a dotted domain.
func Email(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return MsgInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return MsgInvalidEmail
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return MsgInvalidEmail
	}
	return ""
}

// NewPassword applies p to a password being set.
func NewPassword(p password.Policy, plain string) string {
	switch err := p.Validate(plain); {
	case err == nil:
		return ""
	case errors.Is(err, password.ErrPasswordTooShort):
		return MsgPasswordTooShort
	case errors.Is(err, password.ErrPasswordTooLong):
		return MsgPasswordTooLong
	case errors.Is(err, password.ErrWeakPassword):
		return MsgWeakPassword
	default:
		return MsgInvalidPassword
	}
}

// Password only requires presence. Used for login.
func Password(plain string) string {
	if plain == "" {
		return MsgInvalidPassword
	}
	return ""
}

func OTP(code string) string {
	if code == "" {
		return MsgInvalidOTP
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return MsgInvalidOTP
		}
	}
	return ""
}

func RefreshToken(token string) string {
	if strings.TrimSpace(token) == "" {
		return MsgMissingRefreshToken
	}
	return ""
}

func ContentType(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return MsgMissingContentType
	}
	return ""
}

// First returns the first non-empty message.
func First(msgs ...string) string {
	for _, m := range msgs {
		if m != "" {
			return m
		}
	}
	return ""
}
