package coordinator

import (
	"context"

	"github.com/rawblock/inferd/internal/queue"
)

// Store is the persistence seam for every §3 record. It is defined here,
// at the point of use, rather than in the store package, so that package
// store -> coordinator is the only import edge (no cycle, per §9's
// "never hold back-pointers; pass references explicitly per call").
//
// Implementations: store.MemStore (in-process, used by default and in
// tests) and store.Postgres (pgx-backed, used in production — see
// internal/store/postgres.go).
type Store interface {
	GetGlobalState(ctx context.Context) (*GlobalState, error)
	PutGlobalState(ctx context.Context, s *GlobalState) error

	GetModel(ctx context.Context, id ID) (*Model, bool, error)
	PutModel(ctx context.Context, m *Model) error
	DeleteModel(ctx context.Context, id ID) error
	ListModelIDs(ctx context.Context) ([]ID, error)

	GetRoster(ctx context.Context, modelID ID) ([]ID, error)
	PutRoster(ctx context.Context, modelID ID, roster []ID) error

	GetMiner(ctx context.Context, id ID) (*MinerRecord, bool, error)
	PutMiner(ctx context.Context, m *MinerRecord) error
	DeleteMiner(ctx context.Context, id ID) error

	GetInference(ctx context.Context, id uint64) (*Inference, bool, error)
	PutInference(ctx context.Context, inf *Inference) error

	GetAssignment(ctx context.Context, id uint64) (*Assignment, bool, error)
	PutAssignment(ctx context.Context, a *Assignment) error

	GetVotingInfo(ctx context.Context, inferenceID uint64) (*VotingInfo, bool, error)
	PutVotingInfo(ctx context.Context, v *VotingInfo) error

	GetMinerEpochState(ctx context.Context, epochID uint64) (*MinerEpochState, bool, error)
	PutMinerEpochState(ctx context.Context, s *MinerEpochState) error

	PushTask(ctx context.Context, t queue.Task) error
	PopTask(ctx context.Context) (queue.Task, bool, error)
	PeekTaskKind(ctx context.Context) (queue.Kind, bool, error)
	QueueLen(ctx context.Context) (int, error)
}
