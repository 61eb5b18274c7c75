package coordinator

import (
	"context"
	"testing"

	"github.com/rawblock/inferd/internal/ledger"
)

func mustInitCommittee(t *testing.T, e *Engine, requiredMiners int) {
	t.Helper()
	err := e.Init(context.Background(), InitParams{
		Admin:    idFor(1),
		Token:    idFor(2),
		L2Owner:  idFor(3),
		Treasury: idFor(4),
		Staking: StakingParams{
			MinMinerStake: 100,
			UnstakeDelay:  60,
		},
		Epoch: EpochParams{
			DurationSlots:        0,
			RewardPerEpoch:       10,
			FinePercentBP:        500,
			PenaltyDurationSlots: 30,
		},
		Fees: FeeParams{
			MinFeeToUse:           10,
			FeeL2BP:               100,
			FeeTreasuryBP:         100,
			MinerValidatorSplitBP: 5000,
		},
		Timing: InferenceTiming{
			SubmitDuration: 60,
			CommitDuration: 60,
			RevealDuration: 60,
		},
		Committee: CommitteeParams{RequiredMiners: requiredMiners},
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
}

// TestSoloCommitteeResolvesWithMinerTakingFullPool drives the full
// solving -> commit -> reveal -> processed lifecycle with a
// single-member committee, where the seizing miner's own digest is the
// only one tallied and so takes the entire pool (bestCount==1 branch of
// resolveVoting).
func TestSoloCommitteeResolvesWithMinerTakingFullPool(t *testing.T) {
	ctx := context.Background()
	e, clk := testEngine(t, 1000)
	mustInitCommittee(t, e, 1)

	modelID := idFor(50)
	if err := e.AddModel(ctx, idFor(1), modelID); err != nil {
		t.Fatalf("AddModel: %v", err)
	}

	miner := idFor(10)
	e.ledger.(*ledger.InMemory).Credit(acct(miner), 1000)
	if _, err := e.RegisterMiner(ctx, miner, 100); err != nil {
		t.Fatalf("RegisterMiner: %v", err)
	}
	if err := e.JoinForMinting(ctx, miner); err != nil {
		t.Fatalf("JoinForMinting: %v", err)
	}

	creator := idFor(20)
	e.ledger.(*ledger.InMemory).Credit(acct(creator), 1010)

	if err := e.Infer(ctx, 1, creator, modelID, []byte("prompt"), 1010, ID{}); err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if err := e.CreateAssignment(ctx); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	inf, ok, err := e.store.GetInference(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("GetInference: %v %v", ok, err)
	}
	if len(inf.AssignmentIDs) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(inf.AssignmentIDs))
	}
	assignmentID := inf.AssignmentIDs[0]

	if err := e.SeizeMinerRole(ctx, miner, assignmentID, 1); err != nil {
		t.Fatalf("SeizeMinerRole: %v", err)
	}
	if err := e.SubmitSolution(ctx, miner, assignmentID, 1, []byte("answer")); err != nil {
		t.Fatalf("SubmitSolution: %v", err)
	}

	inf, _, _ = e.store.GetInference(ctx, 1)
	if inf.Status != StatusCommit {
		t.Fatalf("expected status Commit after submit, got %v", inf.Status)
	}

	clk.Advance(121) // past CommitDeadline (submit+commit = 120s)
	if err := e.ResolveInference(ctx, 1); err != nil {
		t.Fatalf("ResolveInference (commit->reveal): %v", err)
	}
	inf, _, _ = e.store.GetInference(ctx, 1)
	if inf.Status != StatusReveal {
		t.Fatalf("expected status Reveal, got %v", inf.Status)
	}

	if err := e.ResolveInference(ctx, 1); err != nil {
		t.Fatalf("ResolveInference (reveal->processed): %v", err)
	}
	inf, _, _ = e.store.GetInference(ctx, 1)
	if inf.Status != StatusProcessed {
		t.Fatalf("expected status Processed, got %v", inf.Status)
	}

	// Drain the three queued payouts: miner share, L2 fee, treasury fee.
	for i := 0; i < 3; i++ {
		if err := e.PayMiner(ctx); err != nil {
			t.Fatalf("PayMiner[%d]: %v", i, err)
		}
	}

	if got := e.ledger.Balance(acct(miner)); got != 900+980 {
		t.Fatalf("expected miner balance %d, got %d", 900+980, got)
	}
	if got := e.ledger.Balance(acct(idFor(3))); got != 10 {
		t.Fatalf("expected L2 owner balance 10, got %d", got)
	}
	if got := e.ledger.Balance(acct(idFor(4))); got != 10 {
		t.Fatalf("expected treasury balance 10, got %d", got)
	}
}

// TestInferRejectsFeeBelowMinimum covers the §4.3 fee floor check.
func TestInferRejectsFeeBelowMinimum(t *testing.T) {
	ctx := context.Background()
	e, _ := testEngine(t, 1000)
	mustInitCommittee(t, e, 1)

	modelID := idFor(50)
	if err := e.AddModel(ctx, idFor(1), modelID); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	creator := idFor(20)
	e.ledger.(*ledger.InMemory).Credit(acct(creator), 1000)

	if err := e.Infer(ctx, 1, creator, modelID, []byte("x"), 5, ID{}); err != ErrFeeTooLow {
		t.Fatalf("expected ErrFeeTooLow, got %v", err)
	}
}

// TestCeilDiv2Of3Thresholds checks the majority-threshold formula against
// its known fixed points.
func TestCeilDiv2Of3Thresholds(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 4, 6: 4, 9: 6}
	for n, want := range cases {
		if got := ceilDiv2Of3(n); got != want {
			t.Errorf("ceilDiv2Of3(%d) = %d, want %d", n, got, want)
		}
	}
}

// TestKillInferenceSlashesSeizedMinerAndRefundsCreator covers the
// Solving -> Killed path: a miner seizes the role but never submits
// before the submit deadline, so resolve_inference refunds the creator
// everything except the scoring fee and slashes the seizing miner with a
// fine.
func TestKillInferenceSlashesSeizedMinerAndRefundsCreator(t *testing.T) {
	ctx := context.Background()
	e, clk := testEngine(t, 1000)
	mustInitCommittee(t, e, 1)

	modelID := idFor(50)
	if err := e.AddModel(ctx, idFor(1), modelID); err != nil {
		t.Fatalf("AddModel: %v", err)
	}

	miner := idFor(10)
	e.ledger.(*ledger.InMemory).Credit(acct(miner), 1000)
	if _, err := e.RegisterMiner(ctx, miner, 100); err != nil {
		t.Fatalf("RegisterMiner: %v", err)
	}
	if err := e.JoinForMinting(ctx, miner); err != nil {
		t.Fatalf("JoinForMinting: %v", err)
	}

	creator := idFor(20)
	e.ledger.(*ledger.InMemory).Credit(acct(creator), 1010)
	if err := e.Infer(ctx, 1, creator, modelID, []byte("prompt"), 1010, ID{}); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if err := e.CreateAssignment(ctx); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	inf, _, _ := e.store.GetInference(ctx, 1)
	assignmentID := inf.AssignmentIDs[0]

	if err := e.SeizeMinerRole(ctx, miner, assignmentID, 1); err != nil {
		t.Fatalf("SeizeMinerRole: %v", err)
	}

	clk.Advance(61) // past SubmitDeadline (60s), solution never submitted
	if err := e.ResolveInference(ctx, 1); err != nil {
		t.Fatalf("ResolveInference (kill): %v", err)
	}
	inf, _, _ = e.store.GetInference(ctx, 1)
	if inf.Status != StatusKilled {
		t.Fatalf("expected status Killed, got %v", inf.Status)
	}

	if err := e.SlashMiner(ctx); err != nil {
		t.Fatalf("SlashMiner: %v", err)
	}

	if got := e.ledger.Balance(acct(creator)); got != 1000 {
		t.Fatalf("expected creator refunded to 1000, got %d", got)
	}
	if got := e.ledger.Balance(acct(idFor(4))); got != 5 {
		t.Fatalf("expected treasury fine of 5, got %d", got)
	}

	m, ok, err := e.store.GetMiner(ctx, miner)
	if err != nil || !ok {
		t.Fatalf("GetMiner: %v %v", ok, err)
	}
	if m.IsActive {
		t.Fatal("expected miner deactivated after slashing")
	}
	if m.Stake != 95 {
		t.Fatalf("expected stake reduced to 95 after 5%% fine, got %d", m.Stake)
	}
	if m.RosterIndex != -1 {
		t.Fatalf("expected roster index reset to -1, got %d", m.RosterIndex)
	}

	roster, err := e.store.GetRoster(ctx, modelID)
	if err != nil {
		t.Fatalf("GetRoster: %v", err)
	}
	for _, id := range roster {
		if id == miner {
			t.Fatal("expected miner removed from roster after slashing")
		}
	}
}
