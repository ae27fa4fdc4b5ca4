package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"product-meta-viewer/internal/auth"
	"product-meta-viewer/internal/store"
	"product-meta-viewer/internal/store/storetest"
)

type grpcEnv struct {
	conn   *grpc.ClientConn
	client *ProductMetaViewerClient
	admin  string
	editor string
}

func setupTestGRPCServer(t *testing.T, catalog store.Catalog) *grpcEnv {
	a, err := auth.NewAuthenticator(testSecret, "", "test")
	require.NoError(t, err)
	reports, matcher := newTestServices(t, catalog)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor, AuthInterceptor(a)))
	RegisterProductMetaViewerServer(s, NewGRPCHandler(reports, matcher, ""))
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	admin, err := a.Issue("admin", []string{auth.DefaultCapability}, time.Hour)
	require.NoError(t, err)
	editor, err := a.Issue("editor", []string{"read"}, time.Hour)
	require.NoError(t, err)
	return &grpcEnv{conn: conn, client: NewProductMetaViewerClient(conn), admin: admin, editor: editor}
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGRPCHandler_GetProductDetails(t *testing.T) {
	env := setupTestGRPCServer(t, fixtureCatalog(t))

	out, err := env.client.GetProductDetails(withToken(env.admin), mustStruct(t, map[string]interface{}{"sku": "ABC"}))
	require.NoError(t, err)

	assert.Equal(t, float64(101), out.Fields["id"].GetNumberValue())
	assert.Equal(t, "Classic Tee", out.Fields["name"].GetStringValue())
	fields := out.Fields["fields"].GetListValue().GetValues()
	require.NotEmpty(t, fields)
	assert.Equal(t, "Product ID", fields[0].GetStructValue().Fields["label"].GetStringValue())
}

func TestGRPCHandler_Errors(t *testing.T) {
	env := setupTestGRPCServer(t, fixtureCatalog(t))

	tests := []struct {
		name     string
		ctx      context.Context
		call     func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)
		req      map[string]interface{}
		wantCode codes.Code
	}{
		{name: "no token", ctx: context.Background(), call: env.client.GetProductDetails, req: map[string]interface{}{"sku": "ABC"}, wantCode: codes.Unauthenticated},
		{name: "lacks capability", ctx: withToken(env.editor), call: env.client.SearchProducts, req: map[string]interface{}{"query": "tee"}, wantCode: codes.PermissionDenied},
		{name: "not found", ctx: withToken(env.admin), call: env.client.GetProductDetails, req: map[string]interface{}{"sku": "NOPE"}, wantCode: codes.NotFound},
		{name: "no reference", ctx: withToken(env.admin), call: env.client.GetProductDetails, req: map[string]interface{}{}, wantCode: codes.InvalidArgument},
		{name: "fractional id", ctx: withToken(env.admin), call: env.client.GetProductDetails, req: map[string]interface{}{"id": 1.5}, wantCode: codes.InvalidArgument},
		{name: "compare needs both", ctx: withToken(env.admin), call: env.client.CompareProducts, req: map[string]interface{}{"sku1": "ABC"}, wantCode: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call(tt.ctx, mustStruct(t, tt.req))
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestGRPCHandler_CompareProducts(t *testing.T) {
	env := setupTestGRPCServer(t, fixtureCatalog(t))

	out, err := env.client.CompareProducts(withToken(env.admin), mustStruct(t, map[string]interface{}{"id1": 101, "id2": 102}))
	require.NoError(t, err)

	var differs *bool
	for _, row := range out.Fields["rows"].GetListValue().GetValues() {
		fields := row.GetStructValue().Fields
		if fields["label"].GetStringValue() == "Regular Price" {
			d := fields["differs"].GetBoolValue()
			differs = &d
		}
	}
	require.NotNil(t, differs)
	assert.True(t, *differs)
}

func TestGRPCHandler_SearchProducts(t *testing.T) {
	env := setupTestGRPCServer(t, fixtureCatalog(t))

	out, err := env.client.SearchProducts(withToken(env.admin), mustStruct(t, map[string]interface{}{"query": "red"}))
	require.NoError(t, err)

	results := out.Fields["results"].GetListValue().GetValues()
	require.Len(t, results, 1)
	assert.Equal(t, "Widget (Color: Red) (ID: 201) [SKU: WID-RED]", results[0].GetStructValue().Fields["text"].GetStringValue())
}

func TestGRPCHandler_CatalogUnavailable(t *testing.T) {
	catalog := new(storetest.MockCatalog)
	catalog.On("ListProducts", mock.Anything, mock.Anything).Return(nil, store.ErrCatalogUnavailable)
	env := setupTestGRPCServer(t, catalog)

	_, err := env.client.SearchProducts(withToken(env.admin), mustStruct(t, map[string]interface{}{"query": "tee"}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestGRPCHandler_HealthSkipsAuth(t *testing.T) {
	env := setupTestGRPCServer(t, fixtureCatalog(t))

	resp, err := grpc_health_v1.NewHealthClient(env.conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestProductMetaViewerServiceDesc_DirectDispatch(t *testing.T) {
	reports, matcher := newTestServices(t, fixtureCatalog(t))
	srv := NewGRPCHandler(reports, matcher, "")

	byName := make(map[string]grpc.MethodDesc)
	for _, m := range ProductMetaViewerServiceDesc.Methods {
		byName[m.MethodName] = m
	}
	require.Len(t, byName, 3)

	dec := func(in interface{}) error {
		in.(*structpb.Struct).Fields = mustStruct(t, map[string]interface{}{"query": "red"}).Fields
		return nil
	}
	out, err := byName["SearchProducts"].Handler(srv, context.Background(), dec, nil)
	require.NoError(t, err)
	results := out.(*structpb.Struct).Fields["results"].GetListValue().GetValues()
	require.Len(t, results, 1)
	assert.Equal(t, float64(201), results[0].GetStructValue().Fields["id"].GetNumberValue())

	var seen string
	intercept := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	_, err = byName["SearchProducts"].Handler(srv, context.Background(), dec, intercept)
	require.NoError(t, err)
	assert.Equal(t, "/"+ServiceName+"/SearchProducts", seen)
}
