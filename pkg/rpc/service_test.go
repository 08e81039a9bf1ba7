package rpc_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/linkpulse/linkpulse/pkg/rpc"
	"github.com/linkpulse/linkpulse/pkg/types"
)

type echoServer struct {
	rpc.UnimplementedSnapshotServiceServer
	got chan *types.Snapshot
}

func (s *echoServer) SendSnapshot(_ context.Context, snap *types.Snapshot) (*types.SendResponse, error) {
	s.got <- snap
	if snap.SubscriberID == "reject" {
		return nil, status.Error(codes.InvalidArgument, "rejected")
	}
	return &types.SendResponse{Ok: true, Message: "stored " + snap.SubscriberID}, nil
}

func dial(t *testing.T, srv rpc.SnapshotServiceServer, opts ...grpc.ServerOption) rpc.SnapshotServiceClient {
	t.Helper()
	gs := grpc.NewServer(opts...)
	rpc.RegisterSnapshotServiceServer(gs, srv)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	conn, err := grpc.Dial(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	) //nolint:staticcheck
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewSnapshotServiceClient(conn)
}

func TestSendSnapshot_RoundTrip(t *testing.T) {
	srv := &echoServer{got: make(chan *types.Snapshot, 1)}
	client := dial(t, srv)

	score := 77
	pct := 93.5
	snap := &types.Snapshot{
		SubscriberID:  "alice",
		TimestampUnix: 1700000000,
		State:         "degraded",
		Fetch:         types.Fetch{Outcome: types.OutcomeComplete, Pages: 3},
		Metrics: types.Metrics{
			PercentConnected:  &pct,
			MeanScore:         &score,
			HourlyDisconnects: make([]int, 24),
			Rolling7Day:       []types.DayCount{{Date: "2025-01-01", Count: 2}},
		},
	}

	resp, err := client.SendSnapshot(context.Background(), snap)
	if err != nil {
		t.Fatalf("SendSnapshot: %v", err)
	}
	if !resp.Ok || resp.Message != "stored alice" {
		t.Errorf("resp = %+v", resp)
	}

	got := <-srv.got
	if got.Fetch.Pages != 3 || *got.Metrics.MeanScore != 77 || *got.Metrics.PercentConnected != 93.5 {
		t.Errorf("decoded snapshot = %+v", got)
	}
	if got.Metrics.MedianScore != nil {
		t.Error("nil score should stay nil across the wire")
	}
	if len(got.Metrics.Rolling7Day) != 1 || got.Metrics.Rolling7Day[0].Date != "2025-01-01" {
		t.Errorf("Rolling7Day = %+v", got.Metrics.Rolling7Day)
	}
}

func TestSendSnapshot_StatusPropagates(t *testing.T) {
	srv := &echoServer{got: make(chan *types.Snapshot, 1)}
	client := dial(t, srv)

	_, err := client.SendSnapshot(context.Background(), &types.Snapshot{SubscriberID: "reject"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestSendSnapshot_InterceptorSeesMethod(t *testing.T) {
	var method string
	intercept := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		method = info.FullMethod
		return h(ctx, req)
	}
	srv := &echoServer{got: make(chan *types.Snapshot, 1)}
	client := dial(t, srv, grpc.UnaryInterceptor(intercept))

	if _, err := client.SendSnapshot(context.Background(), &types.Snapshot{SubscriberID: "bob"}); err != nil {
		t.Fatalf("SendSnapshot: %v", err)
	}
	if method != rpc.SendSnapshotMethod {
		t.Errorf("FullMethod = %q, want %q", method, rpc.SendSnapshotMethod)
	}
}

func TestUnimplemented(t *testing.T) {
	client := dial(t, rpc.UnimplementedSnapshotServiceServer{})
	_, err := client.SendSnapshot(context.Background(), &types.Snapshot{SubscriberID: "x"})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", status.Code(err))
	}
}
