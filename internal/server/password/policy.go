package password

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes long")
	ErrWeakPassword     = errors.New("password is too weak")
)

// Policy describes which plaintext passwords are acceptable.
type Policy struct {
	MinLength      int
	MaxBytes       int
	RejectVeryWeak bool
}

// DefaultPolicy mirrors bcrypt's input limit.
func DefaultPolicy() Policy {
	return Policy{MinLength: 8, MaxBytes: 72, RejectVeryWeak: true}
}

// Validate checks plain against the policy. Length is counted in runes,
// the upper bound in bytes.
func (p Policy) Validate(plain string) error {
	if utf8.RuneCountInString(plain) < p.MinLength {
		return ErrPasswordTooShort
	}
	if p.MaxBytes > 0 && len(plain) > p.MaxBytes {
		return ErrPasswordTooLong
	}
	if p.RejectVeryWeak && looksVeryWeak(plain) {
		return ErrWeakPassword
	}
	return nil
}

func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	allSame := true
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if r != first {
			allSame = false
			break
		}
	}
	if allSame {
		return true
	}

	onlyDigits := true
	for _, r := range s {
		if !unicode.IsDigit(r) {
			onlyDigits = false
			break
		}
	}
	if onlyDigits && utf8.RuneCountInString(s) < 12 {
		return true
	}

	switch strings.ToLower(s) {
	case "password", "password1", "password123", "12345678", "123456789", "qwerty123", "qwertyuiop", "iloveyou":
		return true
	}

	return false
}
