// Package accounts persists Account records and their single active
// refresh token.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error)
	SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error
	FindByRefreshToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (string, error)
	ClearRefreshToken(ctx context.Context, token string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetAvatarKey(ctx context.Context, id, key string) error
}
