package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "email", "password_hash", "refresh_token", "refresh_token_expires_at", "is_active", "avatar_key", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(email,\s*password_hash,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at,\s*updated_at$`

	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "hash", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("a-1", now, now))

	got, err := repo.Create(context.Background(), &models.Account{Email: "alice@example.com", PasswordHash: "hash", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), &models.Account{Email: "alice@example.com", PasswordHash: "hash", IsActive: true})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	exp := now.Add(time.Hour)
	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`

	mock.ExpectQuery(q).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("a-1", "alice@example.com", "hash", "rt", exp, true, nil, now, now))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "rt", *got.RefreshToken)
	require.NotNil(t, got.RefreshTokenExpiresAt)
	assert.True(t, exp.Equal(*got.RefreshTokenExpiresAt))
	assert.Nil(t, got.AvatarKey)
	assert.True(t, got.IsActive)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+accounts\s+WHERE\s+email`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("a-1").
		WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), "a-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByEmailForUpdate_Locks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("a-1", "alice@example.com", "hash", nil, nil, true, "avatars/k", now, now))

	got, err := repo.GetByEmailForUpdate(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
	require.NotNil(t, got.AvatarKey)
	assert.Equal(t, "avatars/k", *got.AvatarKey)
}

func TestSetRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Now().Add(time.Hour)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*\$2,\s*refresh_token_expires_at\s*=\s*\$3.*WHERE\s+id\s*=\s*\$1$`

	mock.ExpectExec(q).WithArgs("a-1", "rt", exp).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetRefreshToken(context.Background(), "a-1", "rt", exp))

	mock.ExpectExec(q).WithArgs("missing", "rt", exp).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetRefreshToken(context.Background(), "missing", "rt", exp), common.ErrorNotFound)
}

func TestFindByRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^SELECT.*FROM\s+accounts\s+WHERE\s+refresh_token\s*=\s*\$1\s+AND\s+refresh_token_expires_at\s*>\s*\$2.*FOR\s+UPDATE$`

	mock.ExpectQuery(q).WithArgs("rt", now).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("a-1", "alice@example.com", "hash", "rt", now.Add(time.Hour), true, nil, now, now))

	got, err := repo.FindByRefreshToken(context.Background(), "rt", now)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)

	mock.ExpectQuery(q).WithArgs("expired", now).WillReturnRows(sqlmock.NewRows(columns))
	_, err = repo.FindByRefreshToken(context.Background(), "expired", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRotateRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	exp := now.Add(time.Hour)
	q := `(?s)^UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*\$2.*WHERE\s+refresh_token\s*=\s*\$1\s+AND\s+refresh_token_expires_at\s*>\s*\$4.*RETURNING\s+id$`

	mock.ExpectQuery(q).WithArgs("old", "new", exp, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a-1"))

	id, err := repo.RotateRefreshToken(context.Background(), "old", "new", exp, now)
	require.NoError(t, err)
	assert.Equal(t, "a-1", id)

	// second use of the same token matches nothing
	mock.ExpectQuery(q).WithArgs("old", "newer", exp, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.RotateRefreshToken(context.Background(), "old", "newer", exp, now)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClearRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*NULL,\s*refresh_token_expires_at\s*=\s*NULL.*WHERE\s+refresh_token\s*=\s*\$1$`

	mock.ExpectExec(q).WithArgs("rt").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ClearRefreshToken(context.Background(), "rt"))

	mock.ExpectExec(q).WithArgs("unknown").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.ClearRefreshToken(context.Background(), "unknown"), "logout is idempotent")

	mock.ExpectExec(q).WithArgs("rt").WillReturnError(errors.New("db down"))
	require.Error(t, repo.ClearRefreshToken(context.Background(), "rt"))
}

func TestUpdatePassword_ClearsSession(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$2,\s*refresh_token\s*=\s*NULL,\s*refresh_token_expires_at\s*=\s*NULL.*WHERE\s+id\s*=\s*\$1$`

	mock.ExpectExec(q).WithArgs("a-1", "newhash").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), "a-1", "newhash"))

	mock.ExpectExec(q).WithArgs("gone", "newhash").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "gone", "newhash"), common.ErrorNotFound)
}

func TestSetAvatarKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+accounts\s+SET\s+avatar_key\s*=\s*\$2.*WHERE\s+id\s*=\s*\$1$`

	mock.ExpectExec(q).WithArgs("a-1", "avatars/k").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetAvatarKey(context.Background(), "a-1", "avatars/k"))

	mock.ExpectExec(q).WithArgs("a-1", "avatars/k").WillReturnResult(sqlmock.NewErrorResult(errors.New("rows")))
	require.Error(t, repo.SetAvatarKey(context.Background(), "a-1", "avatars/k"))
}
