package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address  string
	sessions SessionManager
	resets   PasswordResetter
	verifier AccessVerifier
	policy   password.Policy
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, sessions SessionManager, resets PasswordResetter, verifier AccessVerifier) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
		resets:   resets,
		verifier: verifier,
		policy:   password.DefaultPolicy(),
	}
}

// NewServer builds a grpc.Server with the interceptor chain and the
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&AuthServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
