package coordinator

import "context"

// slashMiner implements §4.5's `_slash_miner(miner, isFined)`: removes the
// miner from its roster by linear scan (the caller here has no roster index
// on hand — contrast with request_unstake's O(1) path in miner.go), sets a
// post-slash cooldown, and — if fined — debits the fine from stake and
// transfers it vault → treasury itself; only an error is returned.
func (e *Engine) slashMiner(ctx context.Context, g *GlobalState, minerID ID, isFined bool) error {
	m, ok, err := e.store.GetMiner(ctx, minerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}

	roster, err := e.store.GetRoster(ctx, m.Model)
	if err != nil {
		return err
	}
	for i, id := range roster {
		if id == minerID {
			if err := e.removeFromRoster(ctx, m.Model, i); err != nil {
				return err
			}
			break
		}
	}

	now := e.clock.Unix()
	m.IsActive = false
	m.RosterIndex = -1
	m.ReactivationAfter = now + int64(g.Epoch.PenaltyDurationSlots)

	var fine uint64
	if isFined {
		fine = bpOf(g.Staking.MinMinerStake, g.Epoch.FinePercentBP)
		if fine > m.Stake {
			fine = m.Stake
		}
		m.Stake -= fine
	}
	if err := e.store.PutMiner(ctx, m); err != nil {
		return err
	}

	if fine > 0 {
		if err := e.ledger.TransferWithAuthority(vaultAccount, acct(g.Parties.Treasury), fine); err != nil {
			return err
		}
	}
	e.emit(EventMinerPenalized, MinerPenalizedData{Miner: minerID, Fine: fine})
	if !isFined {
		e.emit(EventMinerDeactivated, MinerDeactivatedData{Miner: minerID})
	}
	return nil
}
