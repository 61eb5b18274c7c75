package coordinator

import (
	"context"
	"testing"

	"github.com/rawblock/inferd/internal/clock"
	"github.com/rawblock/inferd/internal/ledger"
	"github.com/rawblock/inferd/internal/store"
)

func testEngine(t *testing.T, now int64) (*Engine, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(now)
	st := store.NewMemStore()
	led := ledger.NewInMemory()
	e := New(st, led, clk, nil, nil)
	return e, clk
}

func idFor(b byte) ID {
	var id ID
	id[31] = b
	return id
}

func mustInit(t *testing.T, e *Engine) {
	t.Helper()
	err := e.Init(context.Background(), InitParams{
		Admin: idFor(1),
		Token: idFor(2),
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
		Committee: CommitteeParams{RequiredMiners: 3},
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestRegisterMinerRequiresMinStake(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)

	if err := e.AddModel(context.Background(), idFor(1), idFor(50)); err != nil {
		t.Fatalf("AddModel: %v", err)
	}

	ledger.NewInMemory() // sanity that package is usable elsewhere
	caller := idFor(10)
	e.ledger.(*ledger.InMemory).Credit(acct(caller), 1000)

	if _, err := e.RegisterMiner(context.Background(), caller, 50); err != ErrMustGreatThanMinStake {
		t.Fatalf("expected ErrMustGreatThanMinStake, got %v", err)
	}

	model, err := e.RegisterMiner(context.Background(), caller, 100)
	if err != nil {
		t.Fatalf("RegisterMiner: %v", err)
	}
	if model != idFor(50) {
		t.Fatalf("expected model %v, got %v", idFor(50), model)
	}
}

func TestJoinForMintingAndRequestUnstakeRoundTrip(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)
	if err := e.AddModel(context.Background(), idFor(1), idFor(50)); err != nil {
		t.Fatalf("AddModel: %v", err)
	}

	caller := idFor(10)
	e.ledger.(*ledger.InMemory).Credit(acct(caller), 1000)
	if _, err := e.RegisterMiner(context.Background(), caller, 100); err != nil {
		t.Fatalf("RegisterMiner: %v", err)
	}
	if err := e.JoinForMinting(context.Background(), caller); err != nil {
		t.Fatalf("JoinForMinting: %v", err)
	}

	m, ok, err := e.store.GetMiner(context.Background(), caller)
	if err != nil || !ok {
		t.Fatalf("GetMiner: %v %v", ok, err)
	}
	if !m.IsActive || m.RosterIndex != 0 {
		t.Fatalf("expected active miner at roster index 0, got %+v", m)
	}

	if err := e.RequestUnstake(context.Background(), caller, 0); err != nil {
		t.Fatalf("RequestUnstake: %v", err)
	}
	m, _, _ = e.store.GetMiner(context.Background(), caller)
	if m.IsActive {
		t.Fatal("expected miner inactive after RequestUnstake")
	}
	if m.UnstakingDeadline == 0 {
		t.Fatal("expected non-zero unstaking deadline")
	}

	if err := e.ClaimUnstaked(context.Background(), caller); err != ErrCanNotClaim {
		t.Fatalf("expected ErrCanNotClaim before deadline, got %v", err)
	}
}

func TestRemoveModelFailsWithNonEmptyRoster(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)
	if err := e.AddModel(context.Background(), idFor(1), idFor(50)); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	caller := idFor(10)
	e.ledger.(*ledger.InMemory).Credit(acct(caller), 1000)
	if _, err := e.RegisterMiner(context.Background(), caller, 100); err != nil {
		t.Fatalf("RegisterMiner: %v", err)
	}
	if err := e.JoinForMinting(context.Background(), caller); err != nil {
		t.Fatalf("JoinForMinting: %v", err)
	}

	if err := e.RemoveModel(context.Background(), idFor(1), idFor(50)); err != ErrModelRosterNotEmpty {
		t.Fatalf("expected ErrModelRosterNotEmpty, got %v", err)
	}
}
