package coordinator

import (
	"context"

	"github.com/rawblock/inferd/internal/queue"
)

// CreateAssignment is the permissionless cranker entrypoint (§4.4, §5,
// §9): pop one task, require it to be CreateAssignment, and materialize
// the Assignment record it describes. A wrong-kind head is fatal — per
// §7's "spec choice: fatal" — rather than requeued, since crankers are
// expected to inspect the kind before calling the matching executor.
func (e *Engine) CreateAssignment(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok, err := e.store.PopTask(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoValidTask
	}
	if t.Kind != queue.KindCreateAssignment {
		return ErrTaskKindMismatch
	}
	p := queue.DecodeCreateAssignment(t)

	a := &Assignment{
		ID:          p.AssignmentID,
		InferenceID: p.InferenceID,
		Worker:      ID(p.Worker),
		Role:        AssignmentRole(p.Role),
		Vote:        VoteNil,
	}
	return e.store.PutAssignment(ctx, a)
}

// PayMiner is the permissionless cranker entrypoint for PayMiner tasks
// (§4.4). By-assignment payouts also stamp the assignment's final vote;
// by-recipient payouts (protocol fee splits) do not reference an
// assignment at all.
func (e *Engine) PayMiner(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok, err := e.store.PopTask(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoValidTask
	}
	if t.Kind != queue.KindPayMiner {
		return ErrTaskKindMismatch
	}
	p := queue.DecodePayMiner(t)

	if p.UseAssignment {
		a, ok, err := e.store.GetAssignment(ctx, p.AssignmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongAssignmentId
		}
		if err := e.ledger.TransferWithAuthority(vaultAccount, acct(a.Worker), p.Amount); err != nil {
			return err
		}
		a.Vote = Vote(p.VoteToSet)
		return e.store.PutAssignment(ctx, a)
	}

	return e.ledger.TransferWithAuthority(vaultAccount, acct(ID(p.Recipient)), p.Amount)
}

// SlashMiner is the permissionless cranker entrypoint for SlashMiner tasks
// (§4.4, §4.5). checkEmptyCommit skips the slash entirely when the
// assignment's commitment is already non-zero — scenario 3 of §8: when
// the commit phase falls short, a committee member whose commitment is
// already set (a validator who committed, or the seizer, whose commitment
// is its digest) is not slashed.
func (e *Engine) SlashMiner(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok, err := e.store.PopTask(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoValidTask
	}
	if t.Kind != queue.KindSlashMiner {
		return ErrTaskKindMismatch
	}
	p := queue.DecodeSlashMiner(t)

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}

	var minerID ID
	if p.ByAssignment {
		a, ok, err := e.store.GetAssignment(ctx, p.AssignmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongAssignmentId
		}
		if p.CheckEmptyCommit && !a.Commitment.IsZero() {
			return nil
		}
		minerID = a.Worker
		if p.VoteToSet != uint8(VoteNil) {
			a.Vote = Vote(p.VoteToSet)
			if err := e.store.PutAssignment(ctx, a); err != nil {
				return err
			}
		}
	} else {
		minerID = ID(p.Miner)
	}

	return e.slashMiner(ctx, g, minerID, p.IsFined)
}
