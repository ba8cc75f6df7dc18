package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/otps"
)

// memStore is an in-memory stand-in for the Postgres schema. It ignores
// the DBTX it is handed, so transactions are observed through sqlmock only.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	otps     []*models.OTP
	seq      int

	accountsErr error
	createErr   error
	otpsErr     error
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*models.Account{}}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	if a.RefreshToken != nil {
		t := *a.RefreshToken
		c.RefreshToken = &t
	}
	if a.RefreshTokenExpiresAt != nil {
		e := *a.RefreshTokenExpiresAt
		c.RefreshTokenExpiresAt = &e
	}
	return &c
}

func (s *memStore) byEmail(email string) *models.Account {
	for _, a := range s.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (s *memStore) unusedOTPs(email string, purpose models.OTPPurpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.otps {
		if o.Email == email && o.Purpose == purpose && !o.IsUsed {
			n++
		}
	}
	return n
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return nil, r.s.accountsErr
	}
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	if r.s.byEmail(a.Email) != nil {
		return nil, common.ErrorConflict
	}
	now := time.Now()
	a.ID = r.s.nextID("acc")
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.accounts[a.ID] = cloneAccount(a)
	return a, nil
}

func (r memAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return nil, r.s.accountsErr
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneAccount(a), nil
}

func (r memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return nil, r.s.accountsErr
	}
	a := r.s.byEmail(email)
	if a == nil {
		return nil, common.ErrorNotFound
	}
	return cloneAccount(a), nil
}

func (r memAccounts) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	return r.GetByEmail(ctx, email)
}

func (r memAccounts) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return r.s.accountsErr
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.RefreshToken, a.RefreshTokenExpiresAt = &token, &expiresAt
	return nil
}

func (r memAccounts) FindByRefreshToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return nil, r.s.accountsErr
	}
	for _, a := range r.s.accounts {
		if a.RefreshToken != nil && *a.RefreshToken == token && a.RefreshTokenExpiresAt.After(now) && a.IsActive {
			return cloneAccount(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return "", r.s.accountsErr
	}
	for _, a := range r.s.accounts {
		if a.RefreshToken != nil && *a.RefreshToken == oldToken && a.RefreshTokenExpiresAt.After(now) && a.IsActive {
			a.RefreshToken, a.RefreshTokenExpiresAt = &newToken, &expiresAt
			return a.ID, nil
		}
	}
	return "", common.ErrorNotFound
}

func (r memAccounts) ClearRefreshToken(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return r.s.accountsErr
	}
	for _, a := range r.s.accounts {
		if a.RefreshToken != nil && *a.RefreshToken == token {
			a.RefreshToken, a.RefreshTokenExpiresAt = nil, nil
		}
	}
	return nil
}

func (r memAccounts) UpdatePassword(ctx context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return r.s.accountsErr
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = hash
	a.RefreshToken, a.RefreshTokenExpiresAt = nil, nil
	return nil
}

func (r memAccounts) SetAvatarKey(ctx context.Context, id, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.accountsErr != nil {
		return r.s.accountsErr
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.AvatarKey = &key
	return nil
}

type memOTPs struct{ s *memStore }

func (r memOTPs) Upsert(ctx context.Context, o *models.OTP) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.otpsErr != nil {
		return nil, r.s.otpsErr
	}
	for _, cur := range r.s.otps {
		if cur.Email == o.Email && cur.Purpose == o.Purpose && !cur.IsUsed {
			cur.Code, cur.ExpiresAt = o.Code, o.ExpiresAt
			o.ID = cur.ID
			return o, nil
		}
	}
	o.ID = r.s.nextID("otp")
	c := *o
	r.s.otps = append(r.s.otps, &c)
	return o, nil
}

func (r memOTPs) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.otpsErr != nil {
		return nil, r.s.otpsErr
	}
	for _, o := range r.s.otps {
		if o.Email == email && o.Code == code && o.Purpose == purpose && !o.IsUsed && o.ExpiresAt.After(now) {
			o.IsUsed = true
			c := *o
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memOTPs) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.otpsErr != nil {
		return 0, r.s.otpsErr
	}
	kept := r.s.otps[:0]
	var n int64
	for _, o := range r.s.otps {
		if o.IsUsed || !o.ExpiresAt.After(now) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	r.s.otps = kept
	return n, nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository   { return memAccounts{m.s} }
func (m *fakeRepoManager) OTPs(db dbx.DBTX) otps.Repository           { return memOTPs{m.s} }

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) last() mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakePresigner struct {
	url string
	err error

	key         string
	contentType string
	ttl         time.Duration
}

func (f *fakePresigner) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	f.key, f.contentType, f.ttl = key, contentType, ttl
	return f.url, f.err
}

type recordCall struct {
	op  string
	err error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordCall
}

func (f *fakeRecorder) Record(op string, err error, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordCall{op, err})
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}
