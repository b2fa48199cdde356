package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "passkeeper.PassFileService"

const (
	MethodRegister     = "Register"
	MethodGetSalt      = "GetSalt"
	MethodLogin        = "Login"
	MethodRefreshToken = "RefreshToken"
	MethodPing         = "Ping"
	MethodGetList      = "GetList"
	MethodGetInfo      = "GetInfo"
	MethodGetContent   = "GetContent"
	MethodAdd          = "Add"
	MethodSaveInfo     = "SaveInfo"
	MethodSaveContent  = "SaveContent"
	MethodDelete       = "Delete"
)

// FullMethod returns the gRPC method path of a PassFileService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// IsPublic reports whether fullMethod can be called without an access
// token.
func IsPublic(fullMethod string) bool {
	switch fullMethod {
	case FullMethod(MethodRegister), FullMethod(MethodGetSalt), FullMethod(MethodLogin),
		FullMethod(MethodRefreshToken), FullMethod(MethodPing):
		return true
	}
	return false
}

// PassFileServer is the server API of PassFileService.
type PassFileServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)

	GetList(context.Context, *GetListRequest) (*GetListResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	GetContent(context.Context, *GetContentRequest) (*GetContentResponse, error)
	Add(context.Context, *AddRequest) (*AddResponse, error)
	SaveInfo(context.Context, *SaveInfoRequest) (*SaveInfoResponse, error)
	SaveContent(context.Context, *SaveContentRequest) (*SaveContentResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
}

func unary[Req, Resp any](name string, call func(PassFileServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PassFileServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PassFileServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes PassFileService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PassFileServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, PassFileServer.Register),
		unary(MethodGetSalt, PassFileServer.GetSalt),
		unary(MethodLogin, PassFileServer.Login),
		unary(MethodRefreshToken, PassFileServer.RefreshToken),
		unary(MethodPing, PassFileServer.Ping),
		unary(MethodGetList, PassFileServer.GetList),
		unary(MethodGetInfo, PassFileServer.GetInfo),
		unary(MethodGetContent, PassFileServer.GetContent),
		unary(MethodAdd, PassFileServer.Add),
		unary(MethodSaveInfo, PassFileServer.SaveInfo),
		unary(MethodSaveContent, PassFileServer.SaveContent),
		unary(MethodDelete, PassFileServer.Delete),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "passkeeper",
}

func RegisterPassFileServer(s grpc.ServiceRegistrar, srv PassFileServer) {
	s.RegisterService(&ServiceDesc, srv)
}
