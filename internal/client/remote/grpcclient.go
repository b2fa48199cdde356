package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/cryptox"
	"github.com/dmitrijs2005/passkeeper/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCClient implements RemoteStore and AuthClient over gRPC. After Login
// it attaches the access token to every call and transparently refreshes
// it once when the server reports it expired.
type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      *rpc.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	userName     string
	salt         []byte
}

var (
	_ RemoteStore = (*GRPCClient)(nil)
	_ AuthClient  = (*GRPCClient)(nil)
)

// NewGRPCClient connects lazily to endpointURL. timeout bounds every call;
// zero disables it. opts are appended to the default dial options.
func NewGRPCClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewClient(conn)
	return c, nil
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

func (c *GRPCClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *GRPCClient) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.mu.Unlock()
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if rpc.IsPublic(method) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := c.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	resp, rerr := c.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	c.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func (c *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *GRPCClient) Register(ctx context.Context, userName string, salt, verifier []byte) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.client.Register(ctx, &rpc.RegisterRequest{Username: userName, Salt: salt, Verifier: verifier})
	return mapError(err)
}

func (c *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetSalt(ctx, &rpc.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Salt, nil
}

// Login authenticates userName and keeps the issued token pair for later
// calls.
func (c *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Login(ctx, &rpc.LoginRequest{Username: userName, Verifier: verifier})
	if err != nil {
		return mapError(err)
	}

	c.mu.Lock()
	c.accessToken, c.refreshToken = resp.AccessToken, resp.RefreshToken
	c.userName = userName
	c.salt = nil
	c.mu.Unlock()
	return nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return fmt.Errorf("%w: server status %q", common.ErrNetwork, resp.Status)
	}
	return nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) GetList(ctx context.Context, typ models.PassFileType) ([]models.Info, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetList(ctx, &rpc.GetListRequest{Type: int(typ)})
	if err != nil {
		return nil, mapError(err)
	}
	list := make([]models.Info, 0, len(resp.Items))
	for _, item := range resp.Items {
		list = append(list, toModel(item))
	}
	return list, nil
}

func (c *GRPCClient) GetInfo(ctx context.Context, id int64) (*models.Info, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetInfo(ctx, &rpc.GetInfoRequest{ID: id})
	if err != nil {
		return nil, mapError(err)
	}
	info := toModel(resp.Info)
	return &info, nil
}

func (c *GRPCClient) GetEncryptedContent(ctx context.Context, id int64, version int) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetContent(ctx, &rpc.GetContentRequest{ID: id, Version: version})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Data, nil
}

func (c *GRPCClient) Add(ctx context.Context, info models.Info) (*models.Info, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Add(ctx, &rpc.AddRequest{Info: toWire(info)})
	if err != nil {
		return nil, mapError(err)
	}
	out := toModel(resp.Info)
	return &out, nil
}

func (c *GRPCClient) SaveInfo(ctx context.Context, info models.Info) (*models.Info, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.SaveInfo(ctx, &rpc.SaveInfoRequest{Info: toWire(info)})
	if err != nil {
		return nil, mapError(err)
	}
	out := toModel(resp.Info)
	return &out, nil
}

func (c *GRPCClient) SaveContent(ctx context.Context, id int64, data []byte) (*models.Info, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.SaveContent(ctx, &rpc.SaveContentRequest{ID: id, Data: data})
	if err != nil {
		return nil, mapError(err)
	}
	out := toModel(resp.Info)
	return &out, nil
}

// Delete proves the account password with the same verifier Login uses.
func (c *GRPCClient) Delete(ctx context.Context, id int64, accountPassword []byte) error {
	salt, err := c.accountSalt(ctx)
	if err != nil {
		return err
	}

	masterKey := cryptox.DeriveMasterKey(accountPassword, salt)
	defer common.WipeByteArray(masterKey)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err = c.client.Delete(ctx, &rpc.DeleteRequest{ID: id, Verifier: cryptox.MakeVerifier(masterKey)})
	return mapError(err)
}

func (c *GRPCClient) accountSalt(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	userName, salt := c.userName, c.salt
	c.mu.Unlock()

	if userName == "" {
		return nil, fmt.Errorf("%w: not logged in", common.ErrUnauthorized)
	}
	if salt != nil {
		return salt, nil
	}

	salt, err := c.GetSalt(ctx, userName)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.salt = salt
	c.mu.Unlock()
	return salt, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %w: %s", common.ErrNetwork, common.ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	default:
		return fmt.Errorf("%w: rpc error: %w", common.ErrNetwork, err)
	}
}

func toModel(info rpc.PassFileInfo) models.Info {
	return models.Info{
		ID:               info.ID,
		Type:             models.PassFileType(info.Type),
		Name:             info.Name,
		Color:            info.Color,
		CreatedOn:        info.CreatedOn.UTC(),
		InfoChangedOn:    info.InfoChangedOn.UTC(),
		VersionChangedOn: info.VersionChangedOn.UTC(),
		Version:          info.Version,
	}
}

func toWire(info models.Info) rpc.PassFileInfo {
	return rpc.PassFileInfo{
		ID:               info.ID,
		Type:             int(info.Type),
		Name:             info.Name,
		Color:            info.Color,
		CreatedOn:        info.CreatedOn,
		InfoChangedOn:    info.InfoChangedOn,
		VersionChangedOn: info.VersionChangedOn,
		Version:          info.Version,
	}
}
