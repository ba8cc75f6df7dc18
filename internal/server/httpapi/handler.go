// Package httpapi exposes the account services over HTTP. Every response,
// including failures raised by middleware, is an envelope.Envelope whose
// statusCode equals the HTTP status.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/validation"
)

type SessionManager interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, accountID string) (*models.AccountSummary, error)
}

type PasswordResetter interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
}

type AvatarUploader interface {
	PresignUpload(ctx context.Context, accountID, contentType string) (*services.AvatarUpload, error)
}

type AccessVerifier interface {
	VerifyKind(token string, kind auth.Kind) (*auth.Claims, error)
}

type Handler struct {
	sessions SessionManager
	resets   PasswordResetter
	avatars  AvatarUploader
	verifier AccessVerifier
	policy   password.Policy
	metrics  http.Handler
	timeout  time.Duration
	log      logging.Logger
}

// NewHandler builds the handler set. metricsHandler may be nil, in which
// case /metrics is not mounted.
func NewHandler(sessions SessionManager, resets PasswordResetter, avatars AvatarUploader, verifier AccessVerifier,
	metricsHandler http.Handler, timeout time.Duration, l logging.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		resets:   resets,
		avatars:  avatars,
		verifier: verifier,
		policy:   password.DefaultPolicy(),
		metrics:  metricsHandler,
		timeout:  timeout,
		log:      l.With("module", "http"),
	}
}

type emailResponse struct {
	Email string `json:"email"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.sessions.Register(r.Context(), services.RegisterInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, envelope.OpRegister, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpRegister, res.View()))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.sessions.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, envelope.OpLogin, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpLogin, res.View()))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req validation.RefreshTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, envelope.OpRefresh, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpRefresh, pair))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req validation.RefreshTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, envelope.OpLogout, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpLogout, nil))
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req validation.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	email, err := h.resets.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, envelope.OpForgotPassword, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpForgotPassword, emailResponse{Email: email}))
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req validation.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.resets.ResetPassword(r.Context(), services.ResetPasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(w, r, envelope.OpResetPassword, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpResetPassword, nil))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	summary, err := h.sessions.Me(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, envelope.OpMe, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpMe, summary))
}

func (h *Handler) AvatarUpload(w http.ResponseWriter, r *http.Request) {
	var req validation.AvatarUploadRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, _ := auth.AccountIDFromContext(r.Context())

	upload, err := h.avatars.PresignUpload(r.Context(), accountID, req.ContentType)
	if err != nil {
		h.fail(w, r, envelope.OpAvatarUpload, err)
		return
	}

	h.write(w, r, envelope.OK(envelope.OpAvatarUpload, upload))
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, envelope.OK(envelope.OpPing, nil))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op envelope.Operation, err error) {
	env := envelope.Fail(op, err)
	if env.StatusCode >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "operation", string(op), "error", err)
	}
	h.write(w, r, env)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, env envelope.Envelope) {
	writeEnvelope(r.Context(), w, env, h.log)
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, env envelope.Envelope, l logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		l.Error(ctx, "error writing response", "error", err)
	}
}
