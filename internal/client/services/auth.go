// Package services contains the authctl application services. AuthService
// drives the server API and keeps the signed-in session in the local store.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/netx"
)

// MaxAvatarBytes caps the size of an uploaded avatar.
const MaxAvatarBytes = 5 << 20

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// AuthService is what the CLI needs from the client side.
//
// All methods honor context cancellation. Methods that need a session return
// ErrNotLoggedIn when none is stored.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*models.Profile, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	Me(ctx context.Context) (*models.Profile, error)
	UploadAvatar(ctx context.Context, path string) (*models.AvatarUpload, error)
	CurrentEmail(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client   client.Client
	sessions session.Repository
	now      func() time.Time
}

func NewAuthService(c client.Client, sessions session.Repository) AuthService {
	return &authService{client: c, sessions: sessions, now: time.Now}
}

// uploadFn is swapped in tests.
var uploadFn = netx.UploadToPresignedURL

func (a *authService) Register(ctx context.Context, email, password string) (*models.Profile, error) {
	res, err := a.client.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.save(ctx, res.User.Email, &res.TokenPair); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.save(ctx, res.User.Email, &res.TokenPair); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (a *authService) save(ctx context.Context, email string, pair *models.TokenPair) error {
	s := &models.Session{
		Email:                 email,
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
	}
	if err := a.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

func (a *authService) current(ctx context.Context) (*models.Session, error) {
	s, err := a.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotLoggedIn
	}
	return s, nil
}

// Refresh rotates the stored token pair. A rejected refresh token clears the
// local session.
func (a *authService) Refresh(ctx context.Context) error {
	s, err := a.current(ctx)
	if err != nil {
		return err
	}
	_, err = a.refresh(ctx, s)
	return err
}

func (a *authService) refresh(ctx context.Context, s *models.Session) (*models.Session, error) {
	if s.Expired(a.now()) {
		_ = a.sessions.Clear(ctx)
		return nil, ErrSessionExpired
	}

	pair, err := a.client.Refresh(ctx, s.RefreshToken)
	if errors.Is(err, client.ErrUnauthorized) {
		_ = a.sessions.Clear(ctx)
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}

	if err := a.save(ctx, s.Email, pair); err != nil {
		return nil, err
	}
	return a.current(ctx)
}

// Logout revokes the refresh token on the server and forgets the session.
// A token the server no longer accepts still ends the local session.
func (a *authService) Logout(ctx context.Context) error {
	s, err := a.current(ctx)
	if err != nil {
		return err
	}

	if err := a.client.Logout(ctx, s.RefreshToken); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return a.sessions.Clear(ctx)
}

func (a *authService) ForgotPassword(ctx context.Context, email string) error {
	return a.client.ForgotPassword(ctx, email)
}

// ResetPassword ends any local session: the server revokes all sessions of
// the account on reset.
func (a *authService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if err := a.client.ResetPassword(ctx, email, otp, newPassword); err != nil {
		return err
	}

	s, err := a.sessions.Get(ctx)
	if err == nil && s != nil && s.Email == email {
		return a.sessions.Clear(ctx)
	}
	return nil
}

func (a *authService) Me(ctx context.Context) (*models.Profile, error) {
	var p *models.Profile
	err := a.withAccess(ctx, func(token string) error {
		var err error
		p, err = a.client.Me(ctx, token)
		return err
	})
	return p, err
}

// UploadAvatar obtains a presigned URL and PUTs the file to it.
func (a *authService) UploadAvatar(ctx context.Context, path string) (*models.AvatarUpload, error) {
	data, err := filex.ReadFileLimited(path, MaxAvatarBytes)
	if err != nil {
		return nil, err
	}
	contentType := netx.DetectContentType(data)

	var target *models.AvatarUpload
	err = a.withAccess(ctx, func(token string) error {
		var err error
		target, err = a.client.AvatarUploadURL(ctx, token, contentType)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := uploadFn(ctx, target.URL, contentType, data); err != nil {
		return nil, fmt.Errorf("avatar upload error: %w", err)
	}
	return target, nil
}

// withAccess runs call with the stored access token and retries once after a
// refresh if the server rejects it.
func (a *authService) withAccess(ctx context.Context, call func(token string) error) error {
	s, err := a.current(ctx)
	if err != nil {
		return err
	}

	err = call(s.AccessToken)
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}

	s, err = a.refresh(ctx, s)
	if err != nil {
		return err
	}
	return call(s.AccessToken)
}

// CurrentEmail returns "" when nobody is signed in.
func (a *authService) CurrentEmail(ctx context.Context) (string, error) {
	s, err := a.sessions.Get(ctx)
	if err != nil || s == nil {
		return "", err
	}
	return s.Email, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
