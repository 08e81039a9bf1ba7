package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/linkpulse/linkpulse/pkg/types"
)

const (
	ServiceName        = "linkpulse.v1.SnapshotService"
	SendSnapshotMethod = "/" + ServiceName + "/SendSnapshot"
)

// SnapshotServiceServer is implemented by the server-side receiver.
type SnapshotServiceServer interface {
	SendSnapshot(context.Context, *types.Snapshot) (*types.SendResponse, error)
}

// UnimplementedSnapshotServiceServer can be embedded for forward compatibility.
type UnimplementedSnapshotServiceServer struct{}

func (UnimplementedSnapshotServiceServer) SendSnapshot(context.Context, *types.Snapshot) (*types.SendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendSnapshot not implemented")
}

// ServiceDesc describes SnapshotService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SnapshotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendSnapshot", Handler: sendSnapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linkpulse/v1/snapshot",
}

// RegisterSnapshotServiceServer registers srv on s.
func RegisterSnapshotServiceServer(s grpc.ServiceRegistrar, srv SnapshotServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func sendSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.Snapshot)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotServiceServer).SendSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendSnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotServiceServer).SendSnapshot(ctx, req.(*types.Snapshot))
	}
	return interceptor(ctx, in, info, handler)
}

// SnapshotServiceClient is the agent-side stub.
type SnapshotServiceClient interface {
	SendSnapshot(ctx context.Context, in *types.Snapshot, opts ...grpc.CallOption) (*types.SendResponse, error)
}

type snapshotServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSnapshotServiceClient returns a client that encodes calls with the JSON codec.
func NewSnapshotServiceClient(cc grpc.ClientConnInterface) SnapshotServiceClient {
	return &snapshotServiceClient{cc: cc}
}

func (c *snapshotServiceClient) SendSnapshot(ctx context.Context, in *types.Snapshot, opts ...grpc.CallOption) (*types.SendResponse, error) {
	out := new(types.SendResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, SendSnapshotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
