package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/storage"
	"github.com/google/uuid"
)

const avatarUploadTTL = 15 * time.Minute

var ErrUnsupportedContentType = fmt.Errorf("%w: unsupported content type", common.ErrorBadRequest)

var avatarContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// AvatarUpload is a presigned PUT for a new avatar object.
type AvatarUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AvatarService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   storage.Presigner
	log         logging.Logger
	metrics     metrics.Recorder
	now         func() time.Time
}

func NewAvatarService(db *sql.DB, m repomanager.RepositoryManager, p storage.Presigner, l logging.Logger, rec metrics.Recorder) *AvatarService {
	return &AvatarService{
		db:          db,
		repomanager: m,
		presigner:   p,
		log:         l.With("module", "avatar_service"),
		metrics:     rec,
		now:         time.Now,
	}
}

// AvatarStorageKey builds avatars/<yyyy>/<mm>/<dd>/<uuid>.
func AvatarStorageKey(t time.Time) string {
	return fmt.Sprintf("avatars/%04d/%02d/%02d/%s", t.Year(), t.Month(), t.Day(), uuid.NewString())
}

// PresignUpload stores a fresh avatar key on the account and returns a
// presigned URL the client PUTs the image to.
func (s *AvatarService) PresignUpload(ctx context.Context, accountID, contentType string) (_ *AvatarUpload, err error) {
	defer observe(s.metrics, metrics.OpAvatarUpload, time.Now(), &err)

	if _, ok := avatarContentTypes[contentType]; !ok {
		return nil, ErrUnsupportedContentType
	}

	now := s.now().UTC()
	key := AvatarStorageKey(now)

	url, err := s.presigner.PresignPut(ctx, key, contentType, avatarUploadTTL)
	if err != nil {
		return nil, internalError(ctx, s.log, "avatar: presign", err)
	}

	if err := s.repomanager.Accounts(s.db).SetAvatarKey(ctx, accountID, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internalError(ctx, s.log, "avatar: store key", err)
	}

	return &AvatarUpload{Key: key, URL: url, ExpiresAt: now.Add(avatarUploadTTL)}, nil
}
