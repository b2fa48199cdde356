package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/rpc"
	"github.com/dmitrijs2005/passkeeper/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	result, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "id", result.ID)
	return &rpc.RegisterResponse{}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	salt, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	tokens, err := s.users.Login(ctx, req.Username, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) GetList(ctx context.Context, req *rpc.GetListRequest) (*rpc.GetListResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.passfiles.List(ctx, userID, req.Type)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	items := make([]rpc.PassFileInfo, 0, len(list))
	for _, pf := range list {
		items = append(items, toInfo(pf))
	}
	return &rpc.GetListResponse{Items: items}, nil
}

func (s *GRPCServer) GetInfo(ctx context.Context, req *rpc.GetInfoRequest) (*rpc.GetInfoResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	pf, err := s.passfiles.Get(ctx, userID, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetInfoResponse{Info: toInfo(pf)}, nil
}

func (s *GRPCServer) GetContent(ctx context.Context, req *rpc.GetContentRequest) (*rpc.GetContentResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.passfiles.GetContent(ctx, userID, req.ID, req.Version)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetContentResponse{Data: data}, nil
}

func (s *GRPCServer) Add(ctx context.Context, req *rpc.AddRequest) (*rpc.AddResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	pf, err := s.passfiles.Add(ctx, userID, fromInfo(req.Info))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.AddResponse{Info: toInfo(pf)}, nil
}

func (s *GRPCServer) SaveInfo(ctx context.Context, req *rpc.SaveInfoRequest) (*rpc.SaveInfoResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	pf, err := s.passfiles.SaveInfo(ctx, userID, fromInfo(req.Info))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SaveInfoResponse{Info: toInfo(pf)}, nil
}

func (s *GRPCServer) SaveContent(ctx context.Context, req *rpc.SaveContentRequest) (*rpc.SaveContentResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	pf, err := s.passfiles.SaveContent(ctx, userID, req.ID, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SaveContentResponse{Info: toInfo(pf)}, nil
}

// Delete requires the account password verifier in addition to the
// access token.
func (s *GRPCServer) Delete(ctx context.Context, req *rpc.DeleteRequest) (*rpc.DeleteResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.CheckVerifier(ctx, userID, req.Verifier); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.passfiles.Delete(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "Passfile deleted", "user", userID, "id", req.ID)
	return &rpc.DeleteResponse{}, nil
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, common.ErrInternal.Error())
}

func toInfo(pf *models.PassFile) rpc.PassFileInfo {
	return rpc.PassFileInfo{
		ID:               pf.ID,
		Type:             pf.Type,
		Name:             pf.Name,
		Color:            pf.Color,
		CreatedOn:        pf.CreatedOn,
		InfoChangedOn:    pf.InfoChangedOn,
		VersionChangedOn: pf.VersionChangedOn,
		Version:          pf.Version,
	}
}

func fromInfo(info rpc.PassFileInfo) *models.PassFile {
	return &models.PassFile{
		ID:               info.ID,
		Type:             info.Type,
		Name:             info.Name,
		Color:            info.Color,
		CreatedOn:        info.CreatedOn,
		InfoChangedOn:    info.InfoChangedOn,
		VersionChangedOn: info.VersionChangedOn,
		Version:          info.Version,
	}
}
