package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Requests and replies
// are google.protobuf.Struct values so clients need no generated stubs.
const ServiceName = "authkeeper.v1.AuthService"

const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodRefresh        = "Refresh"
	MethodLogout         = "Logout"
	MethodForgotPassword = "ForgotPassword"
	MethodResetPassword  = "ResetPassword"
	MethodMe             = "Me"
	MethodPing           = "Ping"
)

// FullMethod returns "/authkeeper.v1.AuthService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type AuthServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ForgotPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AuthServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRegister, Handler: unaryHandler(MethodRegister, AuthServiceServer.Register)},
		{MethodName: MethodLogin, Handler: unaryHandler(MethodLogin, AuthServiceServer.Login)},
		{MethodName: MethodRefresh, Handler: unaryHandler(MethodRefresh, AuthServiceServer.Refresh)},
		{MethodName: MethodLogout, Handler: unaryHandler(MethodLogout, AuthServiceServer.Logout)},
		{MethodName: MethodForgotPassword, Handler: unaryHandler(MethodForgotPassword, AuthServiceServer.ForgotPassword)},
		{MethodName: MethodResetPassword, Handler: unaryHandler(MethodResetPassword, AuthServiceServer.ResetPassword)},
		{MethodName: MethodMe, Handler: unaryHandler(MethodMe, AuthServiceServer.Me)},
		{MethodName: MethodPing, Handler: unaryHandler(MethodPing, AuthServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authkeeper/v1/auth.proto",
}

// Client calls AuthService over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in as the request body. Failures come back as
// status errors whose details carry the envelope.
func (c *Client) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
