// Package store provides persistence backends for the coordinator.
// MemStore is the in-process backend used by default and by every unit
// test; Postgres (postgres.go) is the durable backend wired in
// cmd/inferd/main.go when DATABASE_URL is set. Both implement
// coordinator.Store.
package store

import (
	"context"
	"sync"

	"github.com/rawblock/inferd/internal/coordinator"
	"github.com/rawblock/inferd/internal/queue"
)

// MemStore is a mutex-guarded in-memory implementation of coordinator.Store.
// The coordinator's own entrypoints are already serialized (§5), so
// MemStore's locking exists to make the Store safe to also read from
// concurrently (HTTP read-model handlers) without going through the
// coordinator's write path.
type MemStore struct {
	mu sync.Mutex

	global *coordinator.GlobalState

	models  map[coordinator.ID]*coordinator.Model
	rosters map[coordinator.ID][]coordinator.ID

	miners map[coordinator.ID]*coordinator.MinerRecord

	inferences  map[uint64]*coordinator.Inference
	assignments map[uint64]*coordinator.Assignment
	voting      map[uint64]*coordinator.VotingInfo
	epochStates map[uint64]*coordinator.MinerEpochState

	queue *queue.Queue
}

func NewMemStore() *MemStore {
	return &MemStore{
		models:      make(map[coordinator.ID]*coordinator.Model),
		rosters:     make(map[coordinator.ID][]coordinator.ID),
		miners:      make(map[coordinator.ID]*coordinator.MinerRecord),
		inferences:  make(map[uint64]*coordinator.Inference),
		assignments: make(map[uint64]*coordinator.Assignment),
		voting:      make(map[uint64]*coordinator.VotingInfo),
		epochStates: make(map[uint64]*coordinator.MinerEpochState),
		queue:       queue.New(),
	}
}

func (s *MemStore) GetGlobalState(_ context.Context) (*coordinator.GlobalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.global == nil {
		return nil, nil
	}
	cp := *s.global
	return &cp, nil
}

func (s *MemStore) PutGlobalState(_ context.Context, g *coordinator.GlobalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.global = &cp
	return nil
}

func (s *MemStore) GetModel(_ context.Context, id coordinator.ID) (*coordinator.Model, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

func (s *MemStore) PutModel(_ context.Context, m *coordinator.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.models[m.ID] = &cp
	return nil
}

func (s *MemStore) DeleteModel(_ context.Context, id coordinator.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, id)
	delete(s.rosters, id)
	return nil
}

func (s *MemStore) ListModelIDs(_ context.Context) ([]coordinator.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]coordinator.ID, 0, len(s.models))
	for id := range s.models {
		out = append(out, id)
	}
	return out, nil
}

func (s *MemStore) GetRoster(_ context.Context, modelID coordinator.ID) ([]coordinator.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.rosters[modelID]
	out := make([]coordinator.ID, len(roster))
	copy(out, roster)
	return out, nil
}

func (s *MemStore) PutRoster(_ context.Context, modelID coordinator.ID, roster []coordinator.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]coordinator.ID, len(roster))
	copy(cp, roster)
	s.rosters[modelID] = cp
	return nil
}

func (s *MemStore) GetMiner(_ context.Context, id coordinator.ID) (*coordinator.MinerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.miners[id]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

func (s *MemStore) PutMiner(_ context.Context, m *coordinator.MinerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.miners[m.ID] = &cp
	return nil
}

func (s *MemStore) DeleteMiner(_ context.Context, id coordinator.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.miners, id)
	return nil
}

func (s *MemStore) GetInference(_ context.Context, id uint64) (*coordinator.Inference, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inf, ok := s.inferences[id]
	if !ok {
		return nil, false, nil
	}
	cp := *inf
	cp.AssignmentIDs = append([]uint64(nil), inf.AssignmentIDs...)
	cp.PerAssignmentDigest = append([]coordinator.Digest(nil), inf.PerAssignmentDigest...)
	return &cp, true, nil
}

func (s *MemStore) PutInference(_ context.Context, inf *coordinator.Inference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inf
	cp.AssignmentIDs = append([]uint64(nil), inf.AssignmentIDs...)
	cp.PerAssignmentDigest = append([]coordinator.Digest(nil), inf.PerAssignmentDigest...)
	s.inferences[inf.ID] = &cp
	return nil
}

func (s *MemStore) GetAssignment(_ context.Context, id uint64) (*coordinator.Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

func (s *MemStore) PutAssignment(_ context.Context, a *coordinator.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assignments[a.ID] = &cp
	return nil
}

func (s *MemStore) GetVotingInfo(_ context.Context, inferenceID uint64) (*coordinator.VotingInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voting[inferenceID]
	if !ok {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

func (s *MemStore) PutVotingInfo(_ context.Context, v *coordinator.VotingInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.voting[v.InferenceID] = &cp
	return nil
}

func (s *MemStore) GetMinerEpochState(_ context.Context, epochID uint64) (*coordinator.MinerEpochState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.epochStates[epochID]
	if !ok {
		return nil, false, nil
	}
	cp := *v
	return &cp, true, nil
}

func (s *MemStore) PutMinerEpochState(_ context.Context, v *coordinator.MinerEpochState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.epochStates[v.EpochID] = &cp
	return nil
}

func (s *MemStore) PushTask(_ context.Context, t queue.Task) error {
	s.queue.Push(t)
	return nil
}

func (s *MemStore) PopTask(_ context.Context) (queue.Task, bool, error) {
	t, ok := s.queue.Pop()
	return t, ok, nil
}

func (s *MemStore) PeekTaskKind(_ context.Context) (queue.Kind, bool, error) {
	k, ok := s.queue.PeekKind()
	return k, ok, nil
}

func (s *MemStore) QueueLen(_ context.Context) (int, error) {
	return s.queue.Len(), nil
}
