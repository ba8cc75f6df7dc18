package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

const accountColumns = `id, email, password_hash, refresh_token, refresh_token_expires_at, is_active, avatar_key, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.RefreshToken, &a.RefreshTokenExpiresAt,
		&a.IsActive, &a.AvatarKey, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Create inserts a new account. A duplicate email yields common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, account.Email, account.PasswordHash, account.IsActive).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// GetByEmailForUpdate row-locks the account until the surrounding
// transaction ends.
func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 FOR UPDATE`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// SetRefreshToken overwrites the active refresh token. Previous tokens are
// not retained.
func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	query :=
		`UPDATE accounts
		 SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, token, expiresAt)
}

// FindByRefreshToken returns the active account currently holding token,
// provided it has not expired at now. The row stays locked inside a
// transaction.
func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE refresh_token = $1 AND refresh_token_expires_at > $2 AND is_active
		 FOR UPDATE`
	return scanAccount(r.db.QueryRowContext(ctx, query, token, now))
}

// RotateRefreshToken swaps oldToken for newToken in one statement. It
// returns the account id, or common.ErrorNotFound if oldToken is not the
// live token of any account.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (string, error) {
	query :=
		`UPDATE accounts
		 SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE refresh_token = $1 AND refresh_token_expires_at > $4 AND is_active
		 RETURNING id`

	var id string
	err := r.db.QueryRowContext(ctx, query, oldToken, newToken, expiresAt, now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// ClearRefreshToken revokes token wherever it is held. Unknown tokens are
// not an error.
func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, token string) error {
	query :=
		`UPDATE accounts
		 SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = now()
		 WHERE refresh_token = $1`

	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdatePassword stores a new hash and revokes the active session.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE accounts
		 SET password_hash = $2, refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, id, key string) error {
	query :=
		`UPDATE accounts
		 SET avatar_key = $2, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, id, key)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
