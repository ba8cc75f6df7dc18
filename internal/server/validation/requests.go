package validation

import "github.com/dmitrijs2005/authkeeper/internal/server/password"

// Request is implemented by every inbound body. Validate returns the first
// failing rule's message, or "".
type Request interface {
	Validate(p password.Policy) string
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate(p password.Policy) string {
	return First(Email(r.Email), NewPassword(p, r.Password))
}

// LoginRequest does not apply the policy so accounts created under an older
// one can still sign in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate(password.Policy) string {
	return First(Email(r.Email), Password(r.Password))
}

// RefreshTokenRequest is the body of refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshTokenRequest) Validate(password.Policy) string {
	return RefreshToken(r.RefreshToken)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Validate(password.Policy) string {
	return Email(r.Email)
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (r *ResetPasswordRequest) Validate(p password.Policy) string {
	return First(Email(r.Email), OTP(r.OTP), NewPassword(p, r.NewPassword))
}

type AvatarUploadRequest struct {
	ContentType string `json:"contentType"`
}

func (r *AvatarUploadRequest) Validate(password.Policy) string {
	return ContentType(r.ContentType)
}

// Empty is the body of calls that take no input.
type Empty struct{}

func (*Empty) Validate(password.Policy) string { return "" }
