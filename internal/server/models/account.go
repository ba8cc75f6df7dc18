// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is the single user entity. PasswordHash never leaves the server;
// use Summary for anything returned to a caller.
type Account struct {
	ID                    string
	Email                 string
	PasswordHash          string
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	IsActive              bool
	AvatarKey             *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AccountSummary is the public view of an Account.
type AccountSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	AvatarKey string    `json:"avatarKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Account) Summary() AccountSummary {
	s := AccountSummary{
		ID:        a.ID,
		Email:     a.Email,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.AvatarKey != nil {
		s.AvatarKey = *a.AvatarKey
	}
	return s
}
