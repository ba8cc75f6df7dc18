package grpc

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
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

type AccessVerifier interface {
	VerifyKind(token string, kind auth.Kind) (*auth.Claims, error)
}

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.RegisterRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.sessions.Register(ctx, services.RegisterInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, s.fail(ctx, envelope.OpRegister, err)
	}

	s.logger.Info(ctx, "Registered", "account_id", res.Account.ID)
	return reply(envelope.OK(envelope.OpRegister, res.View()))
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.LoginRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.sessions.Login(ctx, services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, s.fail(ctx, envelope.OpLogin, err)
	}

	return reply(envelope.OK(envelope.OpLogin, res.View()))
}

func (s *GRPCServer) Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.RefreshTokenRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	pair, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.fail(ctx, envelope.OpRefresh, err)
	}

	return reply(envelope.OK(envelope.OpRefresh, pair))
}

func (s *GRPCServer) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.RefreshTokenRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	if err := s.sessions.Logout(ctx, req.RefreshToken); err != nil {
		return nil, s.fail(ctx, envelope.OpLogout, err)
	}

	return reply(envelope.OK(envelope.OpLogout, nil))
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.ForgotPasswordRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	email, err := s.resets.ForgotPassword(ctx, req.Email)
	if err != nil {
		return nil, s.fail(ctx, envelope.OpForgotPassword, err)
	}

	return reply(envelope.OK(envelope.OpForgotPassword, map[string]string{"email": email}))
}

func (s *GRPCServer) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.ResetPasswordRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	err := s.resets.ResetPassword(ctx, services.ResetPasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return nil, s.fail(ctx, envelope.OpResetPassword, err)
	}

	return reply(envelope.OK(envelope.OpResetPassword, nil))
}

// Me requires the access token interceptor to have run.
func (s *GRPCServer) Me(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req validation.Empty
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		return nil, s.fail(ctx, envelope.OpMe, common.ErrorUnauthorized)
	}

	summary, err := s.sessions.Me(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, envelope.OpMe, err)
	}

	return reply(envelope.OK(envelope.OpMe, summary))
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return reply(envelope.OK(envelope.OpPing, nil))
}

// decode maps the Struct onto req with the same strictness as the HTTP
// transport: unknown fields and wrong types are rejected.
func (s *GRPCServer) decode(in *structpb.Struct, req validation.Request) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return statusFromEnvelope(envelope.Invalid(validation.MsgInvalidBody), codes.InvalidArgument)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return statusFromEnvelope(envelope.Invalid(validation.MsgInvalidBody), codes.InvalidArgument)
	}

	if msg := req.Validate(s.policy); msg != "" {
		return statusFromEnvelope(envelope.Invalid(msg), codes.InvalidArgument)
	}
	return nil
}

func (s *GRPCServer) fail(ctx context.Context, op envelope.Operation, err error) error {
	code := envelope.GRPCCode(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "call failed", "operation", string(op), "error", err)
	}
	return statusFromEnvelope(envelope.Fail(op, err), code)
}

func reply(env envelope.Envelope) (*structpb.Struct, error) {
	out, err := toStruct(env)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// statusFromEnvelope returns a status error carrying env as its only detail.
func statusFromEnvelope(env envelope.Envelope, code codes.Code) error {
	st := status.New(code, env.Message)
	body, err := toStruct(env)
	if err != nil {
		return st.Err()
	}
	if withDetails, err := st.WithDetails(body); err == nil {
		st = withDetails
	}
	return st.Err()
}

func toStruct(env envelope.Envelope) (*structpb.Struct, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// EnvelopeFromError extracts the envelope attached by the server to a
// failed call.
func EnvelopeFromError(err error) (*structpb.Struct, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if body, ok := d.(*structpb.Struct); ok {
			return body, true
		}
	}
	return nil, false
}
