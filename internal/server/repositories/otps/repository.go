// Package otps persists one-time codes.
package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error)
	PurgeStale(ctx context.Context, now time.Time) (int64, error)
}
