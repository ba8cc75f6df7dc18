package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account models.AccountSummary
	Tokens  models.TokenPair
}

func (r *AuthResult) View() models.SessionView {
	return models.SessionView{
		AccessToken:           r.Tokens.AccessToken,
		RefreshToken:          r.Tokens.RefreshToken,
		RefreshTokenExpiresAt: r.Tokens.RefreshTokenExpiresAt,
		User:                  r.Account,
	}
}

// SessionService runs register, login, refresh and logout. Each account
// holds at most one live refresh token; every session event overwrites it.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      CredentialHasher
	issuer      TokenIssuer
	log         logging.Logger
	metrics     metrics.Recorder
	now         func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher CredentialHasher, issuer TokenIssuer,
	l logging.Logger, rec metrics.Recorder) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		log:         l.With("module", "session_service"),
		metrics:     rec,
		now:         time.Now,
	}
}

// Register creates an active account and its first session in one
// transaction. A taken email yields common.ErrorConflict.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer observe(s.metrics, metrics.OpRegister, time.Now(), &err)

	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.ErrorBadRequest
	}

	_, err = s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrorConflict
	case !errors.Is(err, common.ErrorNotFound):
		return nil, internalError(ctx, s.log, "register: lookup", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internalError(ctx, s.log, "register: hash", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		account, err := repo.Create(ctx, &models.Account{Email: email, PasswordHash: hash, IsActive: true})
		if err != nil {
			return err
		}

		pair, err := s.issuer.IssuePair(account)
		if err != nil {
			return err
		}

		if err := repo.SetRefreshToken(ctx, account.ID, pair.RefreshToken, pair.RefreshTokenExpiresAt); err != nil {
			return err
		}

		res = &AuthResult{Account: account.Summary(), Tokens: *pair}
		return nil
	})
	if err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, internalError(ctx, s.log, "register: create", err)
	}

	s.log.Info(ctx, "account registered", "account_id", res.Account.ID)
	return res, nil
}

// Login verifies credentials and rotates the account's refresh token.
// Unknown email, wrong password and inactive account are indistinguishable.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (res *AuthResult, err error) {
	defer observe(s.metrics, metrics.OpLogin, time.Now(), &err)

	email := NormalizeEmail(in.Email)

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(in.Password)
			return nil, common.ErrorUnauthorized
		}
		return nil, internalError(ctx, s.log, "login: lookup", err)
	}

	passwordOK := s.hasher.Verify(in.Password, account.PasswordHash)
	if !passwordOK || !account.IsActive {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issuer.IssuePair(account)
	if err != nil {
		return nil, internalError(ctx, s.log, "login: issue tokens", err)
	}

	if err := repo.SetRefreshToken(ctx, account.ID, pair.RefreshToken, pair.RefreshTokenExpiresAt); err != nil {
		return nil, internalError(ctx, s.log, "login: persist refresh token", err)
	}

	account.RefreshToken = &pair.RefreshToken
	account.RefreshTokenExpiresAt = &pair.RefreshTokenExpiresAt

	return &AuthResult{Account: account.Summary(), Tokens: *pair}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// token must verify cryptographically and be the one persisted on the
// account; it is single-use. All rejections are common.ErrorUnauthorized
// and leave stored state untouched.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	defer observe(s.metrics, metrics.OpRefresh, time.Now(), &err)

	claims, err := s.issuer.VerifyKind(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		now := s.now()

		account, err := repo.FindByRefreshToken(ctx, refreshToken, now)
		if err != nil {
			return err
		}
		if account.ID != claims.AccountID() {
			return common.ErrorNotFound
		}

		p, err := s.issuer.IssuePair(account)
		if err != nil {
			return err
		}

		if _, err := repo.RotateRefreshToken(ctx, refreshToken, p.RefreshToken, p.RefreshTokenExpiresAt, now); err != nil {
			return err
		}

		pair = p
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, internalError(ctx, s.log, "refresh: rotate", err)
	}

	return pair, nil
}

// Logout revokes refreshToken. Unknown or empty tokens are not an error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer observe(s.metrics, metrics.OpLogout, time.Now(), &err)

	if refreshToken == "" {
		return nil
	}

	if err := s.repomanager.Accounts(s.db).ClearRefreshToken(ctx, refreshToken); err != nil {
		return internalError(ctx, s.log, "logout: clear refresh token", err)
	}
	return nil
}

// Me returns the summary of the account behind an access token.
func (s *SessionService) Me(ctx context.Context, accountID string) (*models.AccountSummary, error) {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internalError(ctx, s.log, "me: lookup", err)
	}

	summary := account.Summary()
	return &summary, nil
}
