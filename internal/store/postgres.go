package store

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/rawblock/inferd/internal/coordinator"
	"github.com/rawblock/inferd/internal/queue"
)

// Postgres is the durable coordinator.Store backend, grounded on the
// teacher's internal/db/postgres.go: a pgxpool.Pool wrapped in a small
// struct, a schema.sql loaded once at startup, and explicit
// Begin/Exec/Rollback-deferred transactions for multi-statement writes.
//
// Complex nested records (GlobalState, MinerRecord, Inference, Assignment)
// are stored as JSONB — spec §6 states no bit-exact wire format is
// mandated, only that the §3 field sets and the task record's 50-byte
// width are preserved. The task queue itself keeps its literal 50-byte
// record shape in the `payload` column, which is what §8's well-formedness
// property is checked against.
type Postgres struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "ping failed")
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, mirroring the teacher's
// InitSchema (internal/db/postgres.go).
func (s *Postgres) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read schema file")
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return errors.Wrap(err, "failed to execute schema migrations")
	}
	return nil
}

func (s *Postgres) GetGlobalState(ctx context.Context) (*coordinator.GlobalState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM global_state WHERE id = 1`).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get global state")
	}
	var g coordinator.GlobalState
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, errors.Wrap(err, "decode global state")
	}
	return &g, nil
}

func (s *Postgres) PutGlobalState(ctx context.Context, g *coordinator.GlobalState) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return errors.Wrap(err, "encode global state")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO global_state (id, data) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, raw)
	return errors.Wrap(err, "put global state")
}

func (s *Postgres) GetModel(ctx context.Context, id coordinator.ID) (*coordinator.Model, bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM models WHERE id = $1)`, id[:]).Scan(&exists)
	if err != nil {
		return nil, false, errors.Wrap(err, "get model")
	}
	if !exists {
		return nil, false, nil
	}
	return &coordinator.Model{ID: id}, true, nil
}

func (s *Postgres) PutModel(ctx context.Context, m *coordinator.Model) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO models (id) VALUES ($1) ON CONFLICT DO NOTHING`, m.ID[:])
	return errors.Wrap(err, "put model")
}

func (s *Postgres) DeleteModel(ctx context.Context, id coordinator.ID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin delete model")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM models WHERE id = $1`, id[:]); err != nil {
		return errors.Wrap(err, "delete model")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rosters WHERE model_id = $1`, id[:]); err != nil {
		return errors.Wrap(err, "delete roster")
	}
	return errors.Wrap(tx.Commit(ctx), "commit delete model")
}

func (s *Postgres) ListModelIDs(ctx context.Context) ([]coordinator.ID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM models`)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	defer rows.Close()

	var out []coordinator.ID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan model id")
		}
		var id coordinator.ID
		copy(id[:], raw)
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Postgres) GetRoster(ctx context.Context, modelID coordinator.ID) ([]coordinator.ID, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT miners FROM rosters WHERE model_id = $1`, modelID[:]).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get roster")
	}
	var hexIDs []string
	if err := json.Unmarshal(raw, &hexIDs); err != nil {
		return nil, errors.Wrap(err, "decode roster")
	}
	out := make([]coordinator.ID, 0, len(hexIDs))
	for _, h := range hexIDs {
		id, err := coordinator.IDFromString(h)
		if err != nil {
			return nil, errors.Wrap(err, "decode roster member")
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *Postgres) PutRoster(ctx context.Context, modelID coordinator.ID, roster []coordinator.ID) error {
	hexIDs := make([]string, len(roster))
	for i, id := range roster {
		hexIDs[i] = id.String()
	}
	raw, err := json.Marshal(hexIDs)
	if err != nil {
		return errors.Wrap(err, "encode roster")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rosters (model_id, miners) VALUES ($1, $2)
		ON CONFLICT (model_id) DO UPDATE SET miners = EXCLUDED.miners`, modelID[:], raw)
	return errors.Wrap(err, "put roster")
}

func (s *Postgres) GetMiner(ctx context.Context, id coordinator.ID) (*coordinator.MinerRecord, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM miners WHERE id = $1`, id[:]).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get miner")
	}
	var m coordinator.MinerRecord
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, errors.Wrap(err, "decode miner")
	}
	return &m, true, nil
}

func (s *Postgres) PutMiner(ctx context.Context, m *coordinator.MinerRecord) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode miner")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO miners (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, m.ID[:], raw)
	return errors.Wrap(err, "put miner")
}

func (s *Postgres) DeleteMiner(ctx context.Context, id coordinator.ID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM miners WHERE id = $1`, id[:])
	return errors.Wrap(err, "delete miner")
}

func (s *Postgres) GetInference(ctx context.Context, id uint64) (*coordinator.Inference, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM inferences WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get inference")
	}
	var inf coordinator.Inference
	if err := json.Unmarshal(raw, &inf); err != nil {
		return nil, false, errors.Wrap(err, "decode inference")
	}
	return &inf, true, nil
}

func (s *Postgres) PutInference(ctx context.Context, inf *coordinator.Inference) error {
	raw, err := json.Marshal(inf)
	if err != nil {
		return errors.Wrap(err, "encode inference")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO inferences (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, inf.ID, raw)
	return errors.Wrap(err, "put inference")
}

func (s *Postgres) GetAssignment(ctx context.Context, id uint64) (*coordinator.Assignment, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM assignments WHERE id = $1`, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get assignment")
	}
	var a coordinator.Assignment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false, errors.Wrap(err, "decode assignment")
	}
	return &a, true, nil
}

func (s *Postgres) PutAssignment(ctx context.Context, a *coordinator.Assignment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "encode assignment")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO assignments (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`, a.ID, raw)
	return errors.Wrap(err, "put assignment")
}

func (s *Postgres) GetVotingInfo(ctx context.Context, inferenceID uint64) (*coordinator.VotingInfo, bool, error) {
	var v coordinator.VotingInfo
	v.InferenceID = inferenceID
	err := s.pool.QueryRow(ctx, `SELECT total_commits, total_reveals FROM voting_info WHERE inference_id = $1`, inferenceID).
		Scan(&v.TotalCommits, &v.TotalReveals)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get voting info")
	}
	return &v, true, nil
}

func (s *Postgres) PutVotingInfo(ctx context.Context, v *coordinator.VotingInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO voting_info (inference_id, total_commits, total_reveals) VALUES ($1, $2, $3)
		ON CONFLICT (inference_id) DO UPDATE SET total_commits = EXCLUDED.total_commits, total_reveals = EXCLUDED.total_reveals`,
		v.InferenceID, v.TotalCommits, v.TotalReveals)
	return errors.Wrap(err, "put voting info")
}

func (s *Postgres) GetMinerEpochState(ctx context.Context, epochID uint64) (*coordinator.MinerEpochState, bool, error) {
	var v coordinator.MinerEpochState
	v.EpochID = epochID
	err := s.pool.QueryRow(ctx, `SELECT total_miners_snapshot, reward_in_epoch FROM miner_epoch_states WHERE epoch_id = $1`, epochID).
		Scan(&v.TotalMinersSnapshot, &v.RewardInEpoch)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get miner epoch state")
	}
	return &v, true, nil
}

func (s *Postgres) PutMinerEpochState(ctx context.Context, v *coordinator.MinerEpochState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO miner_epoch_states (epoch_id, total_miners_snapshot, reward_in_epoch) VALUES ($1, $2, $3)
		ON CONFLICT (epoch_id) DO UPDATE SET total_miners_snapshot = EXCLUDED.total_miners_snapshot, reward_in_epoch = EXCLUDED.reward_in_epoch`,
		v.EpochID, v.TotalMinersSnapshot, v.RewardInEpoch)
	return errors.Wrap(err, "put miner epoch state")
}

func (s *Postgres) PushTask(ctx context.Context, t queue.Task) error {
	rec := t.Encode()
	_, err := s.pool.Exec(ctx, `INSERT INTO task_queue (kind, payload) VALUES ($1, $2)`, int(t.Kind), rec[1:])
	return errors.Wrap(err, "push task")
}

// PopTask removes and returns the most recently inserted row (pop from
// back, per §4.4/§5), ordered by the serial sequence column.
func (s *Postgres) PopTask(ctx context.Context) (queue.Task, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return queue.Task{}, false, errors.Wrap(err, "begin pop task")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	var kind int
	var payload []byte
	err = tx.QueryRow(ctx, `SELECT seq, kind, payload FROM task_queue ORDER BY seq DESC LIMIT 1 FOR UPDATE`).
		Scan(&seq, &kind, &payload)
	if err == pgx.ErrNoRows {
		return queue.Task{}, false, nil
	}
	if err != nil {
		return queue.Task{}, false, errors.Wrap(err, "select task")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM task_queue WHERE seq = $1`, seq); err != nil {
		return queue.Task{}, false, errors.Wrap(err, "delete task")
	}
	if err := tx.Commit(ctx); err != nil {
		return queue.Task{}, false, errors.Wrap(err, "commit pop task")
	}

	var rec [queue.RecordSize]byte
	rec[0] = byte(kind)
	copy(rec[1:], payload)
	return queue.Decode(rec), true, nil
}

// PeekTaskKind reads the kind of the row that PopTask would next remove,
// without deleting it — lets a cranker pick the matching executor (§4.4).
func (s *Postgres) PeekTaskKind(ctx context.Context) (queue.Kind, bool, error) {
	var kind int
	err := s.pool.QueryRow(ctx, `SELECT kind FROM task_queue ORDER BY seq DESC LIMIT 1`).Scan(&kind)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "peek task kind")
	}
	return queue.Kind(kind), true, nil
}

func (s *Postgres) QueueLen(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM task_queue`).Scan(&n)
	return n, errors.Wrap(err, "queue len")
}
