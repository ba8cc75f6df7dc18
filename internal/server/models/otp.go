package models

import "time"

// OTPPurpose tags what a one-time code authorizes.
type OTPPurpose string

const (
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTP is a one-time code record. At most one unused record exists per
// (Email, Purpose).
type OTP struct {
	ID        string
	Email     string
	Code      string
	Purpose   OTPPurpose
	IsUsed    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
