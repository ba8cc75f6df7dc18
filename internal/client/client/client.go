// Package client talks to the authkeeper server over HTTP or gRPC. Both
// transports decode the same response envelope and report failures as
// *APIError, ErrUnavailable or ErrUnauthorized.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, password string) (*models.SignIn, error)
	Login(ctx context.Context, email, password string) (*models.SignIn, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	Me(ctx context.Context, accessToken string) (*models.Profile, error)
	AvatarUploadURL(ctx context.Context, accessToken, contentType string) (*models.AvatarUpload, error)
}

// envelope is the uniform body of every server response.
type envelope struct {
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

// result turns env into an error or decodes its data into out (if non-nil).
func (env *envelope) result(out any) error {
	if !env.Success {
		return &APIError{StatusCode: env.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// New builds the client for the configured transport.
func New(c *config.Config) (Client, error) {
	switch c.Transport {
	case config.TransportGRPC:
		return NewGRPCClient(c.GRPCAddr)
	case config.TransportHTTP, "":
		return NewHTTPClient(c.ServerURL, c.RequestTimeout), nil
	}
	return nil, fmt.Errorf("unknown transport %q", c.Transport)
}
