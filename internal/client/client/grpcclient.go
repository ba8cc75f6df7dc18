package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type GRPCClient struct {
	conn   *grpc.ClientConn
	client *gs.Client
}

func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn, client: gs.NewClient(conn)}, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return c.call(ctx, gs.MethodPing, nil, nil)
}

func (c *GRPCClient) Register(ctx context.Context, email, password string) (*models.SignIn, error) {
	var out models.SignIn
	in := map[string]any{"email": email, "password": password}
	if err := c.call(ctx, gs.MethodRegister, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Login(ctx context.Context, email, password string) (*models.SignIn, error) {
	var out models.SignIn
	in := map[string]any{"email": email, "password": password}
	if err := c.call(ctx, gs.MethodLogin, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var out models.TokenPair
	if err := c.call(ctx, gs.MethodRefresh, map[string]any{"refreshToken": refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Logout(ctx context.Context, refreshToken string) error {
	return c.call(ctx, gs.MethodLogout, map[string]any{"refreshToken": refreshToken}, nil)
}

func (c *GRPCClient) ForgotPassword(ctx context.Context, email string) error {
	return c.call(ctx, gs.MethodForgotPassword, map[string]any{"email": email}, nil)
}

func (c *GRPCClient) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	in := map[string]any{"email": email, "otp": otp, "newPassword": newPassword}
	return c.call(ctx, gs.MethodResetPassword, in, nil)
}

func (c *GRPCClient) Me(ctx context.Context, accessToken string) (*models.Profile, error) {
	var out models.Profile
	if err := c.call(withAccessToken(ctx, accessToken), gs.MethodMe, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvatarUploadURL is only exposed over HTTP.
func (c *GRPCClient) AvatarUploadURL(context.Context, string, string) (*models.AvatarUpload, error) {
	return nil, ErrNotSupported
}

func (c *GRPCClient) call(ctx context.Context, method string, in map[string]any, out any) error {
	if in == nil {
		in = map[string]any{}
	}
	resp, err := c.client.Call(ctx, method, in)
	if err != nil {
		return mapError(err)
	}
	env, err := decodeStruct(resp)
	if err != nil {
		return err
	}
	return env.result(out)
}

func decodeStruct(s *structpb.Struct) (*envelope, error) {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// mapError prefers the envelope attached to the status; bare statuses are
// translated by code.
func mapError(err error) error {
	if body, ok := gs.EnvelopeFromError(err); ok {
		env, derr := decodeStruct(body)
		if derr == nil {
			return env.result(nil)
		}
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.Unauthenticated:
		return ErrUnauthorized
	}
	return err
}
