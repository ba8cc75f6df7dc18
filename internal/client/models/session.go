// Package models holds the client-side views of server responses.
package models

import "time"

// Session is the signed-in state kept between authctl runs.
type Session struct {
	Email                 string
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Expired reports whether the refresh token can no longer be used at now.
func (s *Session) Expired(now time.Time) bool {
	return s.RefreshTokenExpiresAt.IsZero() || !now.Before(s.RefreshTokenExpiresAt)
}

// TokenPair mirrors the server's token pair payload.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// Profile is the account summary returned by the server.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	AvatarKey string    `json:"avatarKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SignIn is the register and login payload.
type SignIn struct {
	TokenPair
	User Profile `json:"user"`
}

// AvatarUpload is a presigned PUT target.
type AvatarUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
