package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeServer struct {
	PassFileServer

	saved []SaveContentRequest
}

func (f *fakeServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "ok"}, nil
}

func (f *fakeServer) GetInfo(_ context.Context, in *GetInfoRequest) (*GetInfoResponse, error) {
	if in.ID != 7 {
		return nil, status.Error(codes.NotFound, "passfile not found")
	}
	ts := time.Date(2024, 4, 1, 9, 0, 0, 123456789, time.UTC)
	return &GetInfoResponse{Info: PassFileInfo{
		ID: 7, Type: 1, Name: "bank", Color: "#aabbcc",
		CreatedOn: ts, InfoChangedOn: ts, VersionChangedOn: ts, Version: 3,
	}}, nil
}

func (f *fakeServer) SaveContent(_ context.Context, in *SaveContentRequest) (*SaveContentResponse, error) {
	f.saved = append(f.saved, *in)
	return &SaveContentResponse{Info: PassFileInfo{ID: in.ID, Version: len(f.saved)}}, nil
}

func startServer(t *testing.T, srv PassFileServer, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterPassFileServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := &fakeServer{}
	c := startServer(t, srv)

	pong, err := c.Ping(ctx, &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", pong.Status)

	info, err := c.GetInfo(ctx, &GetInfoRequest{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, "bank", info.Info.Name)
	assert.Equal(t, 3, info.Info.Version)
	assert.Equal(t, 123456789, info.Info.VersionChangedOn.Nanosecond(), "timestamps keep nanoseconds")

	_, err = c.GetInfo(ctx, &GetInfoRequest{ID: 8})
	assert.Equal(t, codes.NotFound, status.Code(err))

	blob := []byte{0x00, 0xff, 0x10}
	out, err := c.SaveContent(ctx, &SaveContentRequest{ID: 7, Data: blob})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Info.Version)
	require.Len(t, srv.saved, 1)
	assert.Equal(t, blob, srv.saved[0].Data)
}

func TestServiceDesc_InterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return handler(ctx, req)
	}
	c := startServer(t, &fakeServer{}, grpc.UnaryInterceptor(record))

	_, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	_, err = c.GetInfo(context.Background(), &GetInfoRequest{ID: 7})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/passkeeper.PassFileService/Ping",
		"/passkeeper.PassFileService/GetInfo",
	}, seen)
}

func TestIsPublic(t *testing.T) {
	for _, m := range []string{MethodRegister, MethodGetSalt, MethodLogin, MethodRefreshToken, MethodPing} {
		assert.True(t, IsPublic(FullMethod(m)), m)
	}
	for _, m := range []string{MethodGetList, MethodGetInfo, MethodGetContent, MethodAdd, MethodSaveInfo, MethodSaveContent, MethodDelete} {
		assert.False(t, IsPublic(FullMethod(m)), m)
	}
	assert.Len(t, ServiceDesc.Methods, 12)
}

func TestCodec(t *testing.T) {
	var c cborCodec
	assert.Equal(t, CodecName, c.Name())

	in := &DeleteRequest{ID: 42, Verifier: []byte("v")}
	data, err := c.Marshal(in)
	require.NoError(t, err)

	var out DeleteRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, *in, out)

	assert.Error(t, c.Unmarshal([]byte{0xff, 0x00}, &out))
}
