package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// protectedMethods need a valid access token.
var protectedMethods = map[string]struct{}{
	FullMethod(MethodMe): {},
}

// accessToken reads the token from the access_token key, falling back to
// "authorization: Bearer <token>".
func accessToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 && values[0] != "" {
		return values[0]
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		return auth.ParseBearer(values[0])
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	token := accessToken(ctx)
	if token == "" {
		return nil, statusFromEnvelope(envelope.Fail(envelope.OpMe, common.ErrorUnauthorized), codes.Unauthenticated)
	}

	claims, err := s.verifier.VerifyKind(token, auth.KindAccess)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "error", err)
		return nil, statusFromEnvelope(envelope.Fail(envelope.OpMe, common.ErrorUnauthorized), codes.Unauthenticated)
	}

	return handler(auth.WithAccountID(ctx, claims.AccountID()), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Info(ctx, "call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
