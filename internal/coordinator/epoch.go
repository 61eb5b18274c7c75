package coordinator

import "context"

// touchEpoch is the single lazy-epoch-advance helper extracted per §9's
// design note ("Lazy epoch update embedded in many entrypoints... extract
// to a single touch_epoch(state, now) helper called at the top of every
// state-mutating operation"). It mutates g in place and, for every epoch
// boundary crossed, writes a MinerEpochState snapshot (§4.5).
//
// Per SPEC_FULL.md §14.1, the canonical per-miner accrual rate is the
// direct rule `rewardPerEpoch` per epoch transition; the derived
// `rewardPerEpoch * blocksPerEpoch / BlocksPerYear` figure is used only
// for the aggregate MinerEpochState.RewardInEpoch snapshot, never paid to
// an individual miner.
func (e *Engine) touchEpoch(ctx context.Context, g *GlobalState) error {
	now := e.clock.Unix()
	if g.Epoch.DurationSlots == 0 {
		g.Epoch.LastTime = now
		return nil
	}
	n := (now - g.Epoch.LastTime) / int64(g.Epoch.DurationSlots)
	if n <= 0 {
		return nil
	}

	rewardInEpoch := (g.Epoch.RewardPerEpoch * g.Epoch.DurationSlots) / BlocksPerYear

	for i := int64(0); i < n; i++ {
		g.Epoch.LastEpoch++
		state := &MinerEpochState{
			EpochID:             g.Epoch.LastEpoch,
			TotalMinersSnapshot: g.Totals.Miners,
			RewardInEpoch:       rewardInEpoch,
		}
		if err := e.store.PutMinerEpochState(ctx, state); err != nil {
			return err
		}
	}
	g.Epoch.LastTime += n * int64(g.Epoch.DurationSlots)
	return nil
}

// UpdateEpoch is the explicit cranker-facing entrypoint (§4.1): it fails
// if no advance is due, or if the caller's expected epoch id doesn't
// match the epoch that touchEpoch would land on.
func (e *Engine) UpdateEpoch(ctx context.Context, expectedEpochID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	before := g.Epoch.LastEpoch
	if err := e.touchEpoch(ctx, g); err != nil {
		return err
	}
	if g.Epoch.LastEpoch == before {
		return ErrEpochRewardUpToDate
	}
	if g.Epoch.LastEpoch != expectedEpochID {
		return ErrInvalidEpochId
	}
	return e.store.PutGlobalState(ctx, g)
}

// accruedSince computes (currentEpoch - lastClaimedEpoch) * rewardPerEpoch,
// the canonical per-miner accrual rule (§4.1 request_unstake, §4.5).
func accruedSince(currentEpoch, lastClaimedEpoch, rewardPerEpoch uint64) uint64 {
	if currentEpoch <= lastClaimedEpoch {
		return 0
	}
	return (currentEpoch - lastClaimedEpoch) * rewardPerEpoch
}
