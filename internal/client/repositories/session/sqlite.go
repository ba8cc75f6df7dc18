// Package session stores the single signed-in session of authctl in SQLite.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.Session, error) {
	var (
		s         models.Session
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT email, access_token, refresh_token, refresh_token_expires_at
		FROM session WHERE id = 1`).Scan(&s.Email, &s.AccessToken, &s.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.RefreshTokenExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (id, email, access_token, refresh_token, refresh_token_expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			refresh_token_expires_at = excluded.refresh_token_expires_at,
			updated_at = excluded.updated_at
	`, s.Email, s.AccessToken, s.RefreshToken, s.RefreshTokenExpiresAt.Unix(), r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
