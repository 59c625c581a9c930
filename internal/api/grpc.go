package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full gRPC method names of isd.v1.BacktestService.
const (
	BacktestServiceName  = "isd.v1.BacktestService"
	RunBacktestMethod    = "/isd.v1.BacktestService/RunBacktest"
	ListBenchmarksMethod = "/isd.v1.BacktestService/ListBenchmarks"
)

// BacktestServiceServer is the server API for isd.v1.BacktestService. Both
// methods carry JSON-shaped google.protobuf.Struct payloads.
type BacktestServiceServer interface {
	RunBacktest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBenchmarks(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// BacktestServiceDesc is the grpc.ServiceDesc for isd.v1.BacktestService.
var BacktestServiceDesc = grpc.ServiceDesc{
	ServiceName: BacktestServiceName,
	HandlerType: (*BacktestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunBacktest", Handler: runBacktestHandler},
		{MethodName: "ListBenchmarks", Handler: listBenchmarksHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "isd/v1/backtest.proto",
}

// RegisterBacktestService registers srv on gs.
func RegisterBacktestService(gs grpc.ServiceRegistrar, srv BacktestServiceServer) {
	gs.RegisterService(&BacktestServiceDesc, srv)
}

func runBacktestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServiceServer).RunBacktest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RunBacktestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServiceServer).RunBacktest(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listBenchmarksHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServiceServer).ListBenchmarks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListBenchmarksMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServiceServer).ListBenchmarks(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ BacktestServiceServer = (*GRPCService)(nil)

// GRPCService adapts Service to BacktestServiceServer.
type GRPCService struct {
	svc *Service
}

// NewGRPCService creates a GRPCService.
func NewGRPCService(svc *Service) *GRPCService {
	return &GRPCService{svc: svc}
}

// RunBacktest decodes a strategy config, runs it and returns the run record.
func (g *GRPCService) RunBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req BacktestRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := g.svc.RunBacktest(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := ToStruct(rec)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListBenchmarks returns {"benchmarks": [...]}.
func (g *GRPCService) ListBenchmarks(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	names := g.svc.Benchmarks()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	out, err := structpb.NewStruct(map[string]any{"benchmarks": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func grpcError(err error) error {
	body, _, code := classify(err)
	msg := body.Message
	if len(body.Details) > 0 {
		msg = err.Error()
	}
	return status.Error(code, msg)
}

// ToStruct converts any JSON-encodable value into a structpb.Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("converting payload: %w", err)
	}
	return out, nil
}

// FromStruct decodes a structpb.Struct into v through its JSON form.
func FromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
