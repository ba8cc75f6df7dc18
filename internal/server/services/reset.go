package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/otp"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// ErrInvalidOTP covers wrong, expired and already used codes alike.
var ErrInvalidOTP = fmt.Errorf("%w: invalid or expired otp", common.ErrorBadRequest)

type ResetPasswordInput struct {
	Email       string
	OTP         string
	NewPassword string
}

// PasswordResetService issues password reset codes by email and redeems
// them. Per (email, purpose) the flow is NoChallenge -> Challenged ->
// Consumed or Expired.
type PasswordResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      CredentialHasher
	mailer      mailer.Mailer
	log         logging.Logger
	metrics     metrics.Recorder

	otpLength int
	otpTTL    time.Duration

	now      func() time.Time
	generate func(length int) (string, error)
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, hasher CredentialHasher, ml mailer.Mailer,
	cfg *config.Config, l logging.Logger, rec metrics.Recorder) *PasswordResetService {
	return &PasswordResetService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		mailer:      ml,
		log:         l.With("module", "password_reset_service"),
		metrics:     rec,
		otpLength:   cfg.OTPLength,
		otpTTL:      cfg.OTPValidityDuration,
		now:         time.Now,
		generate:    otp.Generate,
	}
}

// ForgotPassword replaces any unused reset code for email with a fresh one
// and emails it. Returns the normalized email. If delivery fails the code
// stays valid and common.ErrorInternal is returned.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) (_ string, err error) {
	defer observe(s.metrics, metrics.OpForgotPassword, time.Now(), &err)

	email = NormalizeEmail(email)

	if _, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", internalError(ctx, s.log, "forgot password: lookup", err)
	}

	code, err := s.generate(s.otpLength)
	if err != nil {
		return "", internalError(ctx, s.log, "forgot password: generate otp", err)
	}

	record := &models.OTP{
		Email:     email,
		Code:      code,
		Purpose:   models.OTPPurposePasswordReset,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if _, err := s.repomanager.OTPs(s.db).Upsert(ctx, record); err != nil {
		return "", internalError(ctx, s.log, "forgot password: store otp", err)
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:       email,
		Subject:  "Your password reset code",
		Template: mailer.TemplateForgotPassword,
		Data: map[string]any{
			"otp":              code,
			"expiresInMinutes": int(s.otpTTL.Minutes()),
		},
	})
	if err != nil {
		return "", internalError(ctx, s.log, "forgot password: send email", err)
	}

	return email, nil
}

// ResetPassword redeems a reset code and sets a new password. Consuming the
// code, updating the hash and revoking the session commit together.
func (s *PasswordResetService) ResetPassword(ctx context.Context, in ResetPasswordInput) (err error) {
	defer observe(s.metrics, metrics.OpResetPassword, time.Now(), &err)

	email := NormalizeEmail(in.Email)

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return internalError(ctx, s.log, "reset password: hash", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.OTPs(tx).Consume(ctx, email, in.OTP, models.OTPPurposePasswordReset, s.now()); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrInvalidOTP
			}
			return err
		}

		accounts := s.repomanager.Accounts(tx)
		account, err := accounts.GetByEmailForUpdate(ctx, email)
		if err != nil {
			return err
		}

		return accounts.UpdatePassword(ctx, account.ID, hash)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidOTP):
		return ErrInvalidOTP
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	default:
		return internalError(ctx, s.log, "reset password: update", err)
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:       email,
		Subject:  "Your password was changed",
		Template: mailer.TemplatePasswordResetSuccess,
		Data:     map[string]any{"email": email},
	})
	if err != nil {
		s.log.Warn(ctx, "reset password: confirmation email not sent", "error", err)
	}

	return nil
}

// PurgeStaleOTPs removes used and expired codes.
func (s *PasswordResetService) PurgeStaleOTPs(ctx context.Context) (int64, error) {
	n, err := s.repomanager.OTPs(s.db).PurgeStale(ctx, s.now())
	if err != nil {
		return 0, internalError(ctx, s.log, "purge otps", err)
	}
	return n, nil
}
