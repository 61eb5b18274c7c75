package coordinator

import (
	"context"

	"github.com/rawblock/inferd/internal/queue"
)

// ceilDiv2Of3 computes ⌈2n/3⌉, the commit-reveal majority threshold (§4.4).
func ceilDiv2Of3(n int) int {
	return (2*n + 2) / 3
}

// resolveVoting implements §4.4's digest-majority resolver once an
// inference's Reveal phase has closed (all reveals in, or the deadline
// passed). It is only reachable from resolveInferenceLocked, which already
// holds e.mu.
func (e *Engine) resolveVoting(ctx context.Context, inf *Inference) error {
	n := len(inf.AssignmentIDs)
	threshold := ceilDiv2Of3(n)

	tally := make(map[Digest]int, n)
	for _, d := range inf.PerAssignmentDigest {
		if !d.IsZero() {
			tally[d]++
		}
	}
	var best Digest
	bestCount := 0
	for d, c := range tally {
		if c > bestCount {
			best, bestCount = d, c
		}
	}

	if bestCount < threshold {
		return e.refundAndSlashNonMajority(ctx, inf)
	}

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}

	assignments := make([]*Assignment, n)
	var minerDigest Digest
	for i, id := range inf.AssignmentIDs {
		a, ok, err := e.store.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWrongAssignmentId
		}
		assignments[i] = a
		if a.Role == RoleMiner {
			minerDigest = a.Digest
		}
	}
	minerMatches := !minerDigest.IsZero() && minerDigest == best

	pool := inf.Value
	var feeForMiner, sharePerValidator uint64
	if minerMatches {
		feeForMiner = bpOf(pool, g.Fees.MinerValidatorSplitBP)
		if bestCount > 1 {
			sharePerValidator = (pool - feeForMiner) / uint64(bestCount-1)
		} else {
			feeForMiner = pool
		}
	} else {
		sharePerValidator = pool / uint64(bestCount)
	}

	for i, id := range inf.AssignmentIDs {
		a := assignments[i]
		if inf.PerAssignmentDigest[i] != best {
			task := queue.NewSlashMinerByAssignmentTask(id, true, false, uint8(VoteDisapproval))
			if err := e.store.PushTask(ctx, task); err != nil {
				return err
			}
			continue
		}
		amount := sharePerValidator
		if a.Role == RoleMiner {
			amount = feeForMiner
		}
		task := queue.NewPayMinerByAssignmentTask(id, amount, uint8(VoteApproval))
		if err := e.store.PushTask(ctx, task); err != nil {
			return err
		}
	}

	if inf.FeeL2 > 0 {
		task := queue.NewPayMinerByRecipientTask([32]byte(g.Parties.L2Owner), inf.FeeL2)
		if err := e.store.PushTask(ctx, task); err != nil {
			return err
		}
	}
	if inf.FeeTreasury > 0 {
		task := queue.NewPayMinerByRecipientTask([32]byte(g.Parties.Treasury), inf.FeeTreasury)
		if err := e.store.PushTask(ctx, task); err != nil {
			return err
		}
	}

	e.emitDaoTokenShares(g, inf)

	inf.Status = StatusProcessed
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inf.ID, Status: StatusProcessed})
	return nil
}

// emitDaoTokenShares computes each role's share of daoTokenReward per §4.4.
// Minting is out of scope (§6); the core only emits the bookkeeping event.
func (e *Engine) emitDaoTokenShares(g *GlobalState, inf *Inference) {
	reward := g.DaoToken.Reward
	split := g.DaoToken.Split
	data := DaoTokenAccruedData{
		InferenceID:   inf.ID,
		Miner:         inf.SeizedBy,
		MinerAmount:   bpOf(reward, split.MinerBP),
		User:          inf.Creator,
		UserAmount:    bpOf(reward, split.UserBP),
		L2Owner:       g.Parties.L2Owner,
		L2OwnerAmount: bpOf(reward, split.L2OwnerBP),
	}
	if !inf.Referrer.IsZero() {
		data.Referrer = inf.Referrer
		data.ReferrerAmount = bpOf(reward, split.ReferrerBP)
		data.Referee = inf.Creator
		data.RefereeAmount = bpOf(reward, split.RefereeBP)
	}
	e.emit(EventDaoTokenAccrued, data)
}

// refundAndSlashNonMajority handles §4.3's Reveal→Processed "majority not
// reached" path: refund the creator in full and slash every assignment that
// never revealed (digest still zero).
func (e *Engine) refundAndSlashNonMajority(ctx context.Context, inf *Inference) error {
	refund := inf.Value + inf.FeeL2 + inf.FeeTreasury
	if err := e.ledger.TransferWithAuthority(vaultAccount, acct(inf.Creator), refund); err != nil {
		return err
	}
	for i, id := range inf.AssignmentIDs {
		if inf.PerAssignmentDigest[i].IsZero() {
			task := queue.NewSlashMinerByAssignmentTask(id, true, false, uint8(VoteNil))
			if err := e.store.PushTask(ctx, task); err != nil {
				return err
			}
		}
	}
	inf.Status = StatusProcessed
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inf.ID, Status: StatusProcessed})
	return nil
}
