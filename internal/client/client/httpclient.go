package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

const maxResponseBytes = 1 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*models.SignIn, error) {
	var out models.SignIn
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.SignIn, error) {
	var out models.SignIn
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var out models.TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", "", body, nil)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/forgot-password", "", body, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/reset-password", "", body, nil)
}

func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AvatarUploadURL(ctx context.Context, accessToken, contentType string) (*models.AvatarUpload, error) {
	var out models.AvatarUpload
	body := map[string]string{"contentType": contentType}
	if err := c.do(ctx, http.MethodPost, "/api/v1/users/me/avatar", accessToken, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
		}
		return fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	return env.result(out)
}
