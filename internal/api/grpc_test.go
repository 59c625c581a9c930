package api

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/domain"
)

func dialBufconn(t *testing.T) *grpc.ClientConn {
	t.Helper()
	svc, _ := newTestService(t)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterBacktestService(gs, NewGRPCService(svc))
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPCRunBacktest(t *testing.T) {
	conn := dialBufconn(t)
	ctx := context.Background()

	in, err := ToStruct(dipConfig())
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, RunBacktestMethod, in, out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	var rec RunRecord
	if err := FromStruct(out, &rec); err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	if rec.ID == "" || rec.Result == nil {
		t.Fatalf("run = %+v, want id and result", rec)
	}
	if rec.Result.Metadata.Symbol != "QQQ" {
		t.Errorf("symbol = %q, want QQQ", rec.Result.Metadata.Symbol)
	}
}

func TestGRPCErrors(t *testing.T) {
	conn := dialBufconn(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  domain.StrategyConfig
		want codes.Code
	}{
		{"invalid", domain.StrategyConfig{Symbol: "QQQ"}, codes.InvalidArgument},
		{"no data", domain.StrategyConfig{Symbol: "ZZZ", InitialCapital: 100}, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ToStruct(tt.cfg)
			if err != nil {
				t.Fatalf("ToStruct: %v", err)
			}
			err = conn.Invoke(ctx, RunBacktestMethod, in, new(structpb.Struct))
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestGRPCListBenchmarks(t *testing.T) {
	conn := dialBufconn(t)
	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), ListBenchmarksMethod, &structpb.Struct{}, out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	list := out.GetFields()["benchmarks"].GetListValue().GetValues()
	if len(list) < 3 {
		t.Fatalf("benchmarks = %v, want at least 3", list)
	}
	seen := map[string]bool{}
	for _, v := range list {
		seen[v.GetStringValue()] = true
	}
	if !seen["buy-and-hold"] {
		t.Errorf("buy-and-hold missing from %v", seen)
	}
}
