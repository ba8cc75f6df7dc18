package models

import "time"

// TokenPair is issued together on every session event.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// SessionView is the wire shape returned by register and login.
type SessionView struct {
	AccessToken           string         `json:"accessToken"`
	RefreshToken          string         `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time      `json:"refreshTokenExpiresAt"`
	User                  AccountSummary `json:"user"`
}
