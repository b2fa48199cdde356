// Package grpc exposes the user and passfile services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/passkeeper/internal/logging"
	"github.com/dmitrijs2005/passkeeper/internal/rpc"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
	"github.com/dmitrijs2005/passkeeper/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	CheckVerifier(ctx context.Context, userID int64, verifierCandidate []byte) error
	UserIDFromAccessToken(token string) (int64, error)
}

type PassFileService interface {
	List(ctx context.Context, userID int64, typ int) ([]*models.PassFile, error)
	Get(ctx context.Context, userID, id int64) (*models.PassFile, error)
	GetContent(ctx context.Context, userID, id int64, version int) ([]byte, error)
	Add(ctx context.Context, userID int64, pf *models.PassFile) (*models.PassFile, error)
	SaveInfo(ctx context.Context, userID int64, pf *models.PassFile) (*models.PassFile, error)
	SaveContent(ctx context.Context, userID, id int64, data []byte) (*models.PassFile, error)
	Delete(ctx context.Context, userID, id int64) error
}

type GRPCServer struct {
	address   string
	users     UserService
	passfiles PassFileService
	logger    logging.Logger
}

var _ rpc.PassFileServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us UserService, ps PassFileService) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		passfiles: ps,
	}
}

// NewServer returns a grpc.Server with the passfile service and its
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	rpc.RegisterPassFileServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
