package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvatarFixture(t *testing.T) (*AvatarService, *memStore, *fakePresigner) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	store := newMemStore()
	p := &fakePresigner{url: "http://s3/avatars/presigned"}
	svc := NewAvatarService(db, &fakeRepoManager{store}, p, logging.Nop{}, metrics.Nop{})
	svc.now = func() time.Time { return time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC) }
	return svc, store, p
}

func TestAvatarStorageKey(t *testing.T) {
	key := AvatarStorageKey(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^avatars/2025/02/03/[0-9a-f-]{36}$`), key)
}

func TestPresignUpload(t *testing.T) {
	svc, store, p := newAvatarFixture(t)
	acc, err := memAccounts{store}.Create(context.Background(), &models.Account{Email: "a@b.c", IsActive: true})
	require.NoError(t, err)

	up, err := svc.PresignUpload(context.Background(), acc.ID, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "http://s3/avatars/presigned", up.URL)
	assert.Equal(t, p.key, up.Key)
	assert.Equal(t, "image/png", p.contentType)
	assert.Equal(t, 15*time.Minute, p.ttl)
	assert.Equal(t, time.Date(2025, 2, 3, 10, 15, 0, 0, time.UTC), up.ExpiresAt)

	stored, err := memAccounts{store}.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AvatarKey)
	assert.Equal(t, up.Key, *stored.AvatarKey)
}

func TestPresignUpload_Errors(t *testing.T) {
	svc, store, p := newAvatarFixture(t)

	_, err := svc.PresignUpload(context.Background(), "acc-1", "application/pdf")
	assert.ErrorIs(t, err, common.ErrorBadRequest)

	_, err = svc.PresignUpload(context.Background(), "missing", "image/jpeg")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	p.err = errors.New("sign failed")
	_, err = svc.PresignUpload(context.Background(), "acc-1", "image/gif")
	assert.ErrorIs(t, err, common.ErrorInternal)

	p.err = nil
	store.accountsErr = errors.New("db down")
	_, err = svc.PresignUpload(context.Background(), "acc-1", "image/gif")
	assert.ErrorIs(t, err, common.ErrorInternal)
}
