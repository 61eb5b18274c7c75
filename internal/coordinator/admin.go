package coordinator

import "context"

// InitParams seeds the GlobalState singleton. There is no spec operation
// named for this (the data model simply assumes GlobalState exists); it
// plays the role the original Rust program's `initialize` instruction
// plays, and is only callable once.
type InitParams struct {
	Admin     ID
	Token     ID
	L2Owner   ID
	Treasury  ID
	Staking   StakingParams
	Epoch     EpochParams
	Fees      FeeParams
	Timing    InferenceTiming
	Committee CommitteeParams
	DaoToken  DaoTokenParams
}

// Init bootstraps the GlobalState singleton. Fails if already initialized.
func (e *Engine) Init(ctx context.Context, p InitParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyActivated
	}

	g := &GlobalState{
		Admin:     p.Admin,
		Token:     p.Token,
		Staking:   p.Staking,
		Epoch:     p.Epoch,
		Fees:      p.Fees,
		Timing:    p.Timing,
		Committee: p.Committee,
		Parties:   PartiesParams{L2Owner: p.L2Owner, Treasury: p.Treasury},
		DaoToken:  p.DaoToken,
	}
	g.Epoch.LastTime = e.clock.Unix()
	if err := g.Validate(); err != nil {
		return err
	}
	return e.store.PutGlobalState(ctx, g)
}

// requireAdmin checks the caller is the admin principal (§4.6, every
// mutator is admin-only).
func requireAdmin(g *GlobalState, caller ID) error {
	if g.Admin != caller {
		return ErrUnauthorized
	}
	return nil
}

// Admin mutators (§4.6). Per §9's open question, these are NOT gated by
// epoch advance and NOT gated against in-flight inferences — the
// "preserve the strict form" note in spec.md §9 refers to gating the
// *miner ledger* entrypoints' epoch touch, not these administrative
// setters, and spec.md explicitly says these setters are ungated in the
// source's latest iteration.

func (e *Engine) SetMinMinerStake(ctx context.Context, caller ID, value uint64) error {
	return e.updateGlobal(ctx, caller, "minMinerStake", value, func(g *GlobalState) {
		g.Staking.MinMinerStake = value
	})
}

func (e *Engine) SetFinePercentage(ctx context.Context, caller ID, bp uint64) error {
	if bp > BasisPointsDenominator {
		return ErrUnknownStructField
	}
	return e.updateGlobal(ctx, caller, "finePercentBP", bp, func(g *GlobalState) {
		g.Epoch.FinePercentBP = bp
	})
}

func (e *Engine) SetPenaltyDuration(ctx context.Context, caller ID, slots uint64) error {
	return e.updateGlobal(ctx, caller, "penaltyDurationSlots", slots, func(g *GlobalState) {
		g.Epoch.PenaltyDurationSlots = slots
	})
}

func (e *Engine) SetMinFeeToUse(ctx context.Context, caller ID, value uint64) error {
	if value == 0 {
		return ErrFeeTooLow
	}
	return e.updateGlobal(ctx, caller, "minFeeToUse", value, func(g *GlobalState) {
		g.Fees.MinFeeToUse = value
	})
}

func (e *Engine) SetL2Owner(ctx context.Context, caller ID, id ID) error {
	return e.updateGlobal(ctx, caller, "l2Owner", id.String(), func(g *GlobalState) {
		g.Parties.L2Owner = id
	})
}

func (e *Engine) SetTreasury(ctx context.Context, caller ID, id ID) error {
	return e.updateGlobal(ctx, caller, "treasury", id.String(), func(g *GlobalState) {
		g.Parties.Treasury = id
	})
}

func (e *Engine) SetFeeRatioMinerValidator(ctx context.Context, caller ID, bp uint64) error {
	if bp > BasisPointsDenominator {
		return ErrUnknownStructField
	}
	return e.updateGlobal(ctx, caller, "minerValidatorSplitBP", bp, func(g *GlobalState) {
		g.Fees.MinerValidatorSplitBP = bp
	})
}

func (e *Engine) SetDaoTokenReward(ctx context.Context, caller ID, reward uint64) error {
	return e.updateGlobal(ctx, caller, "daoTokenReward", reward, func(g *GlobalState) {
		g.DaoToken.Reward = reward
	})
}

func (e *Engine) AddModel(ctx context.Context, caller ID, modelID ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	if err := requireAdmin(g, caller); err != nil {
		return err
	}
	if _, ok, err := e.store.GetModel(ctx, modelID); err != nil {
		return err
	} else if ok {
		return ErrModelAlreadyExists
	}
	if err := e.store.PutModel(ctx, &Model{ID: modelID}); err != nil {
		return err
	}
	if err := e.store.PutRoster(ctx, modelID, nil); err != nil {
		return err
	}
	g.Totals.Models++
	return e.store.PutGlobalState(ctx, g)
}

// RemoveModel fails if the roster is non-empty — the "recommended
// stricter check" from §4.1, adopted per SPEC_FULL.md §14.3 rather than
// the source's silent removal.
func (e *Engine) RemoveModel(ctx context.Context, caller ID, modelID ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	if err := requireAdmin(g, caller); err != nil {
		return err
	}
	if _, ok, err := e.store.GetModel(ctx, modelID); err != nil {
		return err
	} else if !ok {
		return ErrModelNotExist
	}
	roster, err := e.store.GetRoster(ctx, modelID)
	if err != nil {
		return err
	}
	if len(roster) > 0 {
		return ErrModelRosterNotEmpty
	}
	if err := e.store.DeleteModel(ctx, modelID); err != nil {
		return err
	}
	g.Totals.Models--
	return e.store.PutGlobalState(ctx, g)
}

func (e *Engine) updateGlobal(ctx context.Context, caller ID, field string, value interface{}, mutate func(*GlobalState)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	if err := requireAdmin(g, caller); err != nil {
		return err
	}
	mutate(g)
	if err := g.Validate(); err != nil {
		return err
	}
	if err := e.store.PutGlobalState(ctx, g); err != nil {
		return err
	}
	e.emit(EventParamUpdated, ParamUpdatedData{Field: field, Value: value})
	return nil
}
