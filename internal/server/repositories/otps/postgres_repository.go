package otps

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores otp as the only unused code for its (email, purpose),
// replacing any earlier unused one in the same statement.
func (r *PostgresRepository) Upsert(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	query :=
		`INSERT INTO otps (email, otp, purpose, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email, purpose) WHERE NOT is_used
		 DO UPDATE SET otp = EXCLUDED.otp, expires_at = EXCLUDED.expires_at, created_at = now()
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, otp.Email, otp.Code, string(otp.Purpose), otp.ExpiresAt).
		Scan(&otp.ID, &otp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	otp.IsUsed = false
	return otp, nil
}

// Consume marks the matching unused, unexpired code as used and returns it.
// common.ErrorNotFound covers wrong, expired and already used codes alike.
func (r *PostgresRepository) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	query :=
		`UPDATE otps
		 SET is_used = true
		 WHERE email = $1 AND otp = $2 AND purpose = $3 AND NOT is_used AND expires_at > $4
		 RETURNING id, expires_at, created_at`

	otp := &models.OTP{Email: email, Code: code, Purpose: purpose, IsUsed: true}
	err := r.db.QueryRowContext(ctx, query, email, code, string(purpose), now).
		Scan(&otp.ID, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return otp, nil
}

// PurgeStale deletes used codes and codes that expired before now.
func (r *PostgresRepository) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM otps WHERE is_used OR expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
