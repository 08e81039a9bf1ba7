package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/linkpulse/linkpulse/pkg/rpc"
	"github.com/linkpulse/linkpulse/pkg/types"
	"github.com/linkpulse/linkpulse/server/internal/store"
)

// Evaluator checks alert rules against a snapshot.
type Evaluator interface {
	Evaluate(snap *types.Snapshot)
}

// Recorder persists a snapshot to run history.
type Recorder interface {
	Record(ctx context.Context, snap *types.Snapshot) error
}

// Receiver implements rpc.SnapshotServiceServer.
// It validates each incoming Snapshot, stores it, evaluates alert rules
// and appends it to run history.
type Receiver struct {
	rpc.UnimplementedSnapshotServiceServer
	store    *store.Store
	alerts   Evaluator
	history  Recorder
	onStored func(*types.Snapshot)
}

// New creates a Receiver that writes accepted snapshots to st. alerts and
// history may be nil.
func New(st *store.Store, alerts Evaluator, history Recorder) *Receiver {
	return &Receiver{store: st, alerts: alerts, history: history}
}

// OnStored registers fn to be called after each accepted snapshot has been
// stored. It must be called before the receiver is registered with a server.
func (r *Receiver) OnStored(fn func(*types.Snapshot)) {
	r.onStored = fn
}

// SendSnapshot is the unary RPC handler called by linkpulse-agent instances.
// Authentication is enforced by the gRPC server interceptor before this is called.
//
// A history write failure is logged and does not fail the call: the snapshot
// is already live in the store.
func (r *Receiver) SendSnapshot(ctx context.Context, snap *types.Snapshot) (*types.SendResponse, error) {
	if err := snap.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	r.store.Put(snap)

	if r.alerts != nil {
		r.alerts.Evaluate(snap)
	}

	msg := ""
	if r.history != nil {
		if err := r.history.Record(ctx, snap); err != nil {
			slog.Error("receiver: history write failed", "subscriber", snap.SubscriberID, "err", err)
			msg = "stored; history unavailable"
		}
	}

	if r.onStored != nil {
		r.onStored(snap)
	}

	slog.Debug("receiver: snapshot stored",
		"subscriber", snap.SubscriberID,
		"agent", snap.AgentID,
		"state", snap.State,
		"outcome", snap.Fetch.Outcome,
	)

	return &types.SendResponse{Ok: true, Message: msg}, nil
}
