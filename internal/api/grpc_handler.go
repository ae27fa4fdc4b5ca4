package api

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"product-meta-viewer/internal/auth"
	"product-meta-viewer/internal/report"
	"product-meta-viewer/internal/search"
	"product-meta-viewer/internal/store"
)

// ServiceName is the fully qualified gRPC service name. Requests and responses
// are google.protobuf.Struct messages shaped like the JSON API.
const ServiceName = "metaviewer.v1.ProductMetaViewer"

// ProductMetaViewerServer is the server API for the viewer service.
type ProductMetaViewerServer interface {
	GetProductDetails(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompareProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ProductMetaViewerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler(method string, call unaryCall) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProductMetaViewerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ProductMetaViewerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ProductMetaViewerServiceDesc describes the service for grpc.Server.RegisterService.
var ProductMetaViewerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductMetaViewerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProductDetails", Handler: unaryHandler("GetProductDetails", ProductMetaViewerServer.GetProductDetails)},
		{MethodName: "CompareProducts", Handler: unaryHandler("CompareProducts", ProductMetaViewerServer.CompareProducts)},
		{MethodName: "SearchProducts", Handler: unaryHandler("SearchProducts", ProductMetaViewerServer.SearchProducts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "metaviewer/v1/metaviewer.proto",
}

func RegisterProductMetaViewerServer(s grpc.ServiceRegistrar, srv ProductMetaViewerServer) {
	s.RegisterService(&ProductMetaViewerServiceDesc, srv)
}

// ProductMetaViewerClient calls the viewer service over conn.
type ProductMetaViewerClient struct {
	cc grpc.ClientConnInterface
}

func NewProductMetaViewerClient(cc grpc.ClientConnInterface) *ProductMetaViewerClient {
	return &ProductMetaViewerClient{cc: cc}
}

func (c *ProductMetaViewerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProductMetaViewerClient) GetProductDetails(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetProductDetails", in, opts...)
}

func (c *ProductMetaViewerClient) CompareProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CompareProducts", in, opts...)
}

func (c *ProductMetaViewerClient) SearchProducts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SearchProducts", in, opts...)
}

// GRPCHandler implements ProductMetaViewerServer.
type GRPCHandler struct {
	reports *report.Service
	matcher *search.Matcher
	pageURL string
}

func NewGRPCHandler(reports *report.Service, matcher *search.Matcher, pageURL string) *GRPCHandler {
	if pageURL == "" {
		pageURL = PagePath
	}
	return &GRPCHandler{reports: reports, matcher: matcher, pageURL: pageURL}
}

// --- Helper: Error Mapping ---
func mapErrorToGrpcStatus(ctx context.Context, err error, op string) error {
	if err == nil {
		return nil
	}
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("gRPC request failed")

	switch {
	case errors.Is(err, store.ErrProductNotFound):
		return status.Error(codes.NotFound, report.MsgNoProductsFound)
	case errors.Is(err, report.ErrInvalidProduct):
		return status.Error(codes.FailedPrecondition, report.MsgInvalidProduct)
	case errors.Is(err, store.ErrCatalogUnavailable):
		return status.Error(codes.Unavailable, "Product catalog is unavailable")
	default:
		return status.Errorf(codes.Internal, "Failed to process %s: %v", op, err)
	}
}

func stringField(in *structpb.Struct, key string) string {
	return strings.TrimSpace(in.GetFields()[key].GetStringValue())
}

// idField reads an optional id. Fractional or negative numbers are rejected.
func idField(in *structpb.Struct, key string) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n := v.GetNumberValue()
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt64 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", key)
	}
	return int64(n), nil
}

func refField(in *structpb.Struct, skuKey, idKey string) (report.Ref, error) {
	sku := stringField(in, skuKey)
	if len(sku) > 100 {
		return report.Ref{}, status.Errorf(codes.InvalidArgument, "%s must be at most 100 characters", skuKey)
	}
	id, err := idField(in, idKey)
	if err != nil {
		return report.Ref{}, err
	}
	return report.Ref{SKU: sku, ID: id}, nil
}

// toStruct converts a JSON-tagged payload into a Struct.
func toStruct(payload interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func (s *GRPCHandler) GetProductDetails(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := refField(req, "sku", "id")
	if err != nil {
		return nil, err
	}
	if ref.Empty() {
		return nil, status.Error(codes.InvalidArgument, report.MsgProvideReference)
	}
	log.Ctx(ctx).Debug().Str("sku", ref.SKU).Int64("id", ref.ID).Msg("gRPC GetProductDetails")

	detail, err := s.reports.Detail(ctx, ref)
	if err != nil {
		return nil, mapErrorToGrpcStatus(ctx, err, "GetProductDetails")
	}
	out, err := toStruct(newDetailResponse(detail, s.reports.Formatter()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to encode product details: %v", err)
	}
	return out, nil
}

func (s *GRPCHandler) CompareProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	left, err := refField(req, "sku1", "id1")
	if err != nil {
		return nil, err
	}
	right, err := refField(req, "sku2", "id2")
	if err != nil {
		return nil, err
	}
	if left.Empty() || right.Empty() {
		return nil, status.Error(codes.InvalidArgument, "Both products must be given for a comparison")
	}

	cmp, err := s.reports.Compare(ctx, left, right)
	if err != nil {
		return nil, mapErrorToGrpcStatus(ctx, err, "CompareProducts")
	}
	query := report.PageQuery{SKU1: left.SKU, ID1: left.ID, SKU2: right.SKU, ID2: right.ID}
	out, err := toStruct(newCompareResponse(cmp, s.reports.Formatter(), report.PermalinkWithParams(s.pageURL, query)))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to encode comparison: %v", err)
	}
	return out, nil
}

func (s *GRPCHandler) SearchProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query := stringField(req, "query")
	if len(query) > 200 {
		return nil, status.Error(codes.InvalidArgument, "query must be at most 200 characters")
	}
	results, err := s.matcher.Search(ctx, query)
	if err != nil {
		return nil, mapErrorToGrpcStatus(ctx, err, "SearchProducts")
	}
	out, err := toStruct(searchResponse{Results: results})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to encode results: %v", err)
	}
	return out, nil
}

// --- Interceptors ---

// LoggingInterceptor gives each call a request-scoped logger and logs its outcome.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := newRequestID()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(strings.ToLower(RequestIDHeader)); len(ids) > 0 && ids[0] != "" {
			requestID = ids[0]
		}
	}
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

	start := time.Now()
	resp, err := handler(ctx, req)
	log.Ctx(ctx).Info().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("")
	return resp, err
}

// AuthInterceptor checks the bearer token in the "authorization" metadata of
// every viewer call. Other services, such as health checks, pass through.
func AuthInterceptor(a *auth.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}
		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				token = values[0]
				if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
					token = token[7:]
				}
			}
		}
		claims, err := a.Check(token)
		switch {
		case errors.Is(err, auth.ErrForbidden):
			return nil, status.Error(codes.PermissionDenied, "Insufficient privileges")
		case err != nil:
			return nil, status.Error(codes.Unauthenticated, "Authorization required")
		}
		return handler(auth.WithClaims(ctx, claims), req)
	}
}
