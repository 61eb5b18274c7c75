package coordinator

import (
	"context"
	"testing"
)

func TestInitFailsWhenAlreadyActivated(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)

	err := e.Init(context.Background(), InitParams{Admin: idFor(1)})
	if err != ErrAlreadyActivated {
		t.Fatalf("expected ErrAlreadyActivated, got %v", err)
	}
}

func TestSetMinMinerStakeRequiresAdmin(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)

	notAdmin := idFor(99)
	if err := e.SetMinMinerStake(context.Background(), notAdmin, 500); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := e.SetMinMinerStake(context.Background(), idFor(1), 500); err != nil {
		t.Fatalf("SetMinMinerStake: %v", err)
	}
	g, err := e.store.GetGlobalState(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalState: %v", err)
	}
	if g.Staking.MinMinerStake != 500 {
		t.Fatalf("expected MinMinerStake 500, got %d", g.Staking.MinMinerStake)
	}
}

func TestAddModelIsIdempotentlyRejectedOnDuplicate(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)

	modelID := idFor(50)
	if err := e.AddModel(context.Background(), idFor(1), modelID); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := e.AddModel(context.Background(), idFor(1), modelID); err == nil {
		t.Fatal("expected error re-adding the same model")
	}
}

func TestRemoveModelSucceedsOnEmptyRoster(t *testing.T) {
	e, _ := testEngine(t, 1000)
	mustInit(t, e)

	modelID := idFor(50)
	if err := e.AddModel(context.Background(), idFor(1), modelID); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := e.RemoveModel(context.Background(), idFor(1), modelID); err != nil {
		t.Fatalf("RemoveModel: %v", err)
	}
	if _, ok, err := e.store.GetModel(context.Background(), modelID); err != nil || ok {
		t.Fatalf("expected model removed, ok=%v err=%v", ok, err)
	}
}
