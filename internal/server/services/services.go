// Package services contains server-side business logic: the session
// lifecycle, the OTP password reset flow and avatar uploads.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// CredentialHasher is satisfied by *password.Hasher.
type CredentialHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
	VerifyDummy(plain string) bool
}

// TokenIssuer is satisfied by *auth.Issuer.
type TokenIssuer interface {
	IssuePair(account *models.Account) (*models.TokenPair, error)
	VerifyKind(token string, kind auth.Kind) (*auth.Claims, error)
}

// NormalizeEmail lower-cases and trims an email address. Accounts and OTPs
// are always keyed by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func observe(rec metrics.Recorder, op string, start time.Time, err *error) {
	rec.Record(op, *err, time.Since(start))
}

// internalError logs cause and hides it behind common.ErrorInternal.
func internalError(ctx context.Context, l logging.Logger, msg string, cause error) error {
	l.Error(ctx, msg, "error", cause)
	return common.ErrorInternal
}
