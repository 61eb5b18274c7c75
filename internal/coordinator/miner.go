package coordinator

import "context"

// RegisterMiner implements §4.1 register_miner. The caller supplies stake
// ≥ minMinerStake; the registry picks the miner's model by sampling the
// model set uniformly with the §4.2 PRNG (nonce = the miner's ordinal
// registration count, so two registrations in the same second still seed
// distinctly).
func (e *Engine) RegisterMiner(ctx context.Context, caller ID, stake uint64) (ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return ZeroID, err
	}
	if g == nil {
		return ZeroID, ErrNoModelRegistered
	}
	if stake < g.Staking.MinMinerStake {
		return ZeroID, ErrMustGreatThanMinStake
	}
	if existing, ok, err := e.store.GetMiner(ctx, caller); err != nil {
		return ZeroID, err
	} else if ok && existing.Stake > 0 {
		return ZeroID, ErrAlreadyJoined
	}

	modelIDs, err := e.store.ListModelIDs(ctx)
	if err != nil {
		return ZeroID, err
	}
	if len(modelIDs) == 0 {
		return ZeroID, ErrNoModelRegistered
	}
	nonce := g.Totals.Miners
	idx := seedIndex(seed(nonce, e.clock.Unix()), len(modelIDs))
	model := modelIDs[idx]

	if err := e.ledger.Transfer(acct(caller), vaultAccount, stake); err != nil {
		return ZeroID, ErrInsufficientFunds
	}

	rec := &MinerRecord{
		ID:          caller,
		Stake:       stake,
		Model:       model,
		IsActive:    false,
		RosterIndex: -1,
	}
	if err := e.store.PutMiner(ctx, rec); err != nil {
		return ZeroID, err
	}
	g.Totals.Miners++
	if err := e.store.PutGlobalState(ctx, g); err != nil {
		return ZeroID, err
	}
	e.emit(EventMinerRegistration, MinerRegistrationData{Miner: caller, Stake: stake, Model: model})
	return model, nil
}

// JoinForMinting implements §4.1 join_for_minting.
func (e *Engine) JoinForMinting(ctx context.Context, caller ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	m, ok, err := e.store.GetMiner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}
	if m.IsActive {
		return ErrAlreadyActivated
	}
	now := e.clock.Unix()
	if m.ReactivationAfter > now {
		return ErrNotActiveYet
	}
	if m.Stake < g.Staking.MinMinerStake {
		return ErrMustGreatThanMinStake
	}

	if err := e.touchEpoch(ctx, g); err != nil {
		return err
	}

	roster, err := e.store.GetRoster(ctx, m.Model)
	if err != nil {
		return err
	}
	roster = append(roster, caller)
	if err := e.store.PutRoster(ctx, m.Model, roster); err != nil {
		return err
	}

	m.IsActive = true
	m.RosterIndex = len(roster) - 1
	m.UnstakingDeadline = 0
	m.LastClaimedEpoch = g.Epoch.LastEpoch
	if err := e.store.PutMiner(ctx, m); err != nil {
		return err
	}
	if err := e.store.PutGlobalState(ctx, g); err != nil {
		return err
	}
	e.emit(EventMinerJoin, MinerJoinData{Miner: caller})
	return nil
}

// TopUp implements §4.1 top_up: adds to stake with no activation effect.
func (e *Engine) TopUp(ctx context.Context, caller ID, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok, err := e.store.GetMiner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}
	if err := e.ledger.Transfer(acct(caller), vaultAccount, amount); err != nil {
		return ErrInsufficientFunds
	}
	m.Stake += amount
	if err := e.store.PutMiner(ctx, m); err != nil {
		return err
	}
	e.emit(EventMinerTopup, MinerTopupData{Miner: caller, Amount: amount})
	return nil
}

// RequestUnstake implements §4.1 request_unstake. rosterIndex is the
// caller-supplied index within its roster, enabling O(1) removal; it must
// match the miner's recorded RosterIndex.
func (e *Engine) RequestUnstake(ctx context.Context, caller ID, rosterIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	m, ok, err := e.store.GetMiner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}
	if m.Stake == 0 {
		return ErrNothingToClaim
	}
	if m.UnstakingDeadline != 0 {
		return ErrStillUnstaking
	}
	if !m.IsActive || rosterIndex != m.RosterIndex {
		return ErrRosterIndexMismatch
	}

	if err := e.touchEpoch(ctx, g); err != nil {
		return err
	}

	m.AccruedReward += accruedSince(g.Epoch.LastEpoch, m.LastClaimedEpoch, g.Epoch.RewardPerEpoch)
	m.LastClaimedEpoch = g.Epoch.LastEpoch

	if err := e.removeFromRoster(ctx, m.Model, rosterIndex); err != nil {
		return err
	}
	m.IsActive = false
	m.RosterIndex = -1
	m.UnstakingDeadline = e.clock.Unix() + g.Staking.UnstakeDelay
	if err := e.store.PutMiner(ctx, m); err != nil {
		return err
	}
	if err := e.store.PutGlobalState(ctx, g); err != nil {
		return err
	}
	e.emit(EventMinerDeactivated, MinerDeactivatedData{Miner: caller})
	return nil
}

// removeFromRoster deletes roster[index] in O(1) by swapping with the
// last element, then updates the swapped-in miner's RosterIndex. The
// caller-supplied index must already have been validated against the
// miner's own RosterIndex by the time this is called.
func (e *Engine) removeFromRoster(ctx context.Context, model ID, index int) error {
	roster, err := e.store.GetRoster(ctx, model)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(roster) {
		return ErrRosterIndexMismatch
	}
	last := len(roster) - 1
	movedID := roster[last]
	roster[index] = movedID
	roster = roster[:last]
	if err := e.store.PutRoster(ctx, model, roster); err != nil {
		return err
	}
	if movedID != ZeroID && index != last {
		moved, ok, err := e.store.GetMiner(ctx, movedID)
		if err != nil {
			return err
		}
		if ok {
			moved.RosterIndex = index
			if err := e.store.PutMiner(ctx, moved); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClaimUnstaked implements §4.1 claim_unstaked.
func (e *Engine) ClaimUnstaked(ctx context.Context, caller ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok, err := e.store.GetMiner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}
	now := e.clock.Unix()
	if m.IsActive || m.UnstakingDeadline == 0 || now < m.UnstakingDeadline {
		return ErrCanNotClaim
	}
	stake := m.Stake
	if err := e.ledger.TransferWithAuthority(vaultAccount, acct(caller), stake); err != nil {
		return err
	}
	m.Stake = 0
	m.UnstakingDeadline = 0
	return e.store.PutMiner(ctx, m)
}

// ClaimReward implements §4.1 claim_reward.
func (e *Engine) ClaimReward(ctx context.Context, caller ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	m, ok, err := e.store.GetMiner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMinerNotRegistered
	}

	if err := e.touchEpoch(ctx, g); err != nil {
		return err
	}

	if m.IsActive {
		m.AccruedReward += accruedSince(g.Epoch.LastEpoch, m.LastClaimedEpoch, g.Epoch.RewardPerEpoch)
		m.LastClaimedEpoch = g.Epoch.LastEpoch
	}
	if m.AccruedReward == 0 {
		return ErrNothingToClaim
	}
	amount := m.AccruedReward
	if err := e.ledger.TransferWithAuthority(vaultAccount, acct(caller), amount); err != nil {
		return err
	}
	m.AccruedReward = 0
	if err := e.store.PutMiner(ctx, m); err != nil {
		return err
	}
	return e.store.PutGlobalState(ctx, g)
}
