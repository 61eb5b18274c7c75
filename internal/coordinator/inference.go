package coordinator

import (
	"context"

	"github.com/rawblock/inferd/internal/queue"
)

// Infer implements §4.3 infer: validates the fee, splits value into
// scoring fee / L2 fee / treasury fee / net inference value, transfers
// the full paid amount from the creator to the vault, allocates the
// inference id (caller-supplied, must match the monotone counter),
// selects a committee via §4.2, and enqueues one CreateAssignment task
// per committee member.
func (e *Engine) Infer(ctx context.Context, inferenceID uint64, creator ID, modelID ID, input []byte, value uint64, referrer ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGlobalState(ctx)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNoModelRegistered
	}
	if _, ok, err := e.store.GetModel(ctx, modelID); err != nil {
		return err
	} else if !ok {
		return ErrModelNotExist
	}
	if value < g.Fees.MinFeeToUse {
		return ErrFeeTooLow
	}
	if value == 0 {
		return ErrZeroValue
	}
	if inferenceID != g.Counters.NextInferenceID+1 {
		return ErrWrongInferenceId
	}

	if err := e.touchEpoch(ctx, g); err != nil {
		return err
	}

	scoringFee := g.Fees.MinFeeToUse
	remaining := value - scoringFee
	feeL2 := bpOf(remaining, g.Fees.FeeL2BP)
	feeTreasury := bpOf(remaining, g.Fees.FeeTreasuryBP)
	netValue := remaining - feeL2 - feeTreasury

	committee, err := e.selectCommittee(ctx, modelID, g.Committee.RequiredMiners)
	if err != nil {
		return err
	}

	if err := e.ledger.Transfer(acct(creator), vaultAccount, value); err != nil {
		return ErrInsufficientFunds
	}

	now := e.clock.Unix()
	inf := &Inference{
		ID:             inferenceID,
		Creator:        creator,
		ModelID:        modelID,
		Input:          input,
		Value:          netValue,
		FeeL2:          feeL2,
		FeeTreasury:    feeTreasury,
		Status:         StatusSolving,
		SubmitDeadline: now + g.Timing.SubmitDuration,
		Referrer:       referrer,
	}
	inf.CommitDeadline = inf.SubmitDeadline + g.Timing.CommitDuration
	inf.RevealDeadline = inf.CommitDeadline + g.Timing.RevealDuration

	for _, miner := range committee {
		g.Counters.NextAssignmentID++
		assignmentID := g.Counters.NextAssignmentID
		inf.AssignmentIDs = append(inf.AssignmentIDs, assignmentID)
		inf.PerAssignmentDigest = append(inf.PerAssignmentDigest, Digest{})

		task := queue.NewCreateAssignmentTask(queue.CreateAssignmentPayload{
			AssignmentID: assignmentID,
			InferenceID:  inferenceID,
			Worker:       [32]byte(miner),
			Role:         uint8(RoleValidator),
		})
		if err := e.store.PushTask(ctx, task); err != nil {
			return err
		}
		e.emit(EventNewAssignment, NewAssignmentData{ID: assignmentID, InferenceID: inferenceID, Worker: miner})
	}

	g.Counters.NextInferenceID = inferenceID
	g.Totals.Inferences++

	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	if err := e.store.PutGlobalState(ctx, g); err != nil {
		return err
	}
	e.emit(EventNewInference, NewInferenceData{ID: inferenceID, Creator: creator, Model: modelID, Value: netValue})
	return nil
}

// TopUpInfer implements §4.3 top_up_infer: only valid while Solving.
func (e *Engine) TopUpInfer(ctx context.Context, inferenceID uint64, value uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	if inf.Status != StatusSolving {
		return ErrInferMustBeSolvingState
	}
	if err := e.ledger.Transfer(acct(inf.Creator), vaultAccount, value); err != nil {
		return ErrInsufficientFunds
	}
	inf.Value += value
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventTopUpInfer, TopUpInferData{ID: inferenceID, Value: value})
	return nil
}

func findAssignmentIndex(inf *Inference, assignmentID uint64) int {
	for i, id := range inf.AssignmentIDs {
		if id == assignmentID {
			return i
		}
	}
	return -1
}

// SeizeMinerRole implements §4.3 seize_miner_role.
func (e *Engine) SeizeMinerRole(ctx context.Context, caller ID, assignmentID, inferenceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	if inf.Status != StatusSolving {
		return ErrInferMustBeSolvingState
	}
	if !inf.SeizedBy.IsZero() {
		return ErrInferenceSeized
	}
	a, ok, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !ok || a.InferenceID != inferenceID {
		return ErrWrongAssignmentId
	}
	if a.Worker != caller {
		return ErrWrongSender
	}

	a.Role = RoleMiner
	inf.SeizedBy = caller
	if err := e.store.PutAssignment(ctx, a); err != nil {
		return err
	}
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventMinerRoleSeized, MinerRoleSeizedData{AssignmentID: assignmentID, InferenceID: inferenceID, Sender: caller})
	return nil
}

// SubmitSolution implements §4.3 submit_solution. Per §9's preserved
// source quirk, the seizer's commitment is pre-filled with its digest
// rather than a random-nonce hash — the miner role's output is public
// from the moment it is submitted, unlike validators who must still
// commit-then-reveal.
func (e *Engine) SubmitSolution(ctx context.Context, caller ID, assignmentID, inferenceID uint64, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	if inf.Status != StatusSolving {
		return ErrInferMustBeSolvingState
	}
	if inf.SeizedBy != caller {
		return ErrInferenceNotSeized
	}
	a, ok, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !ok || a.InferenceID != inferenceID {
		return ErrWrongAssignmentId
	}
	if a.Worker != caller || a.Role != RoleMiner {
		return ErrWrongRole
	}

	digest := digestInferenceOutput(inferenceID, data)
	a.Digest = digest
	a.Commitment = digest
	a.Output = data
	if err := e.store.PutAssignment(ctx, a); err != nil {
		return err
	}

	idx := findAssignmentIndex(inf, assignmentID)
	if idx < 0 {
		return ErrWrongAssignmentId
	}
	inf.PerAssignmentDigest[idx] = digest
	inf.Status = StatusCommit
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventSolutionSubmission, SolutionSubmissionData{AssignmentID: assignmentID, InferenceID: inferenceID})
	e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inferenceID, Status: StatusCommit})
	return nil
}

// Commit implements §4.3 commit.
func (e *Engine) Commit(ctx context.Context, caller ID, assignmentID, inferenceID uint64, commitment Digest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	if inf.Status != StatusCommit {
		return ErrWrongState
	}
	if e.clock.Unix() > inf.CommitDeadline {
		return ErrNeedToWait
	}
	a, ok, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !ok || a.InferenceID != inferenceID {
		return ErrWrongAssignmentId
	}
	if a.Worker != caller || a.Role != RoleValidator {
		return ErrWrongRole
	}
	if !a.Commitment.IsZero() {
		return ErrAlreadyCommitted
	}

	a.Commitment = commitment
	if err := e.store.PutAssignment(ctx, a); err != nil {
		return err
	}

	v, ok, err := e.store.GetVotingInfo(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		v = &VotingInfo{InferenceID: inferenceID}
	}
	v.TotalCommits++
	if err := e.store.PutVotingInfo(ctx, v); err != nil {
		return err
	}
	e.emit(EventCommitmentSubmission, CommitmentSubmissionData{AssignmentID: assignmentID, InferenceID: inferenceID})

	if v.TotalCommits == len(inf.AssignmentIDs)-1 {
		inf.Status = StatusReveal
		if err := e.store.PutInference(ctx, inf); err != nil {
			return err
		}
		e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inferenceID, Status: StatusReveal})
	}
	return nil
}

// Reveal implements §4.3 reveal. A call that finds the inference still in
// Commit moves it to Reveal first, whatever the commit tally — matching
// "only validators, in state Reveal (auto-advances from Commit if
// status==2)".
func (e *Engine) Reveal(ctx context.Context, caller ID, assignmentID, inferenceID uint64, nonce uint64, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	if inf.Status == StatusCommit {
		inf.Status = StatusReveal
	}
	if inf.Status != StatusReveal {
		return ErrWrongState
	}
	if e.clock.Unix() > inf.RevealDeadline {
		return ErrNeedToWait
	}
	a, ok, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !ok || a.InferenceID != inferenceID {
		return ErrWrongAssignmentId
	}
	if a.Worker != caller || a.Role != RoleValidator {
		return ErrWrongRole
	}
	if a.Commitment != commitmentOf(nonce, caller, data) {
		return ErrInvalidReveal
	}

	idx := findAssignmentIndex(inf, assignmentID)
	if idx < 0 {
		return ErrWrongAssignmentId
	}
	if !inf.PerAssignmentDigest[idx].IsZero() {
		return ErrInvalidReveal
	}

	digest := digestInferenceOutput(inferenceID, data)
	a.RevealNonce = nonce
	a.Output = data
	a.Digest = digest
	if err := e.store.PutAssignment(ctx, a); err != nil {
		return err
	}
	inf.PerAssignmentDigest[idx] = digest
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}

	v, ok, err := e.store.GetVotingInfo(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		v = &VotingInfo{InferenceID: inferenceID}
	}
	v.TotalReveals++
	if err := e.store.PutVotingInfo(ctx, v); err != nil {
		return err
	}
	e.emit(EventRevealSubmission, RevealSubmissionData{AssignmentID: assignmentID, InferenceID: inferenceID})

	if v.TotalReveals == len(inf.AssignmentIDs)-1 {
		return e.resolveInferenceLocked(ctx, inferenceID)
	}
	return nil
}

// ResolveInference implements §4.3 resolve_inference: idempotently
// advances the inference given elapsed deadlines, per the decision table
// in §4.3.
func (e *Engine) ResolveInference(ctx context.Context, inferenceID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveInferenceLocked(ctx, inferenceID)
}

func (e *Engine) resolveInferenceLocked(ctx context.Context, inferenceID uint64) error {
	inf, ok, err := e.store.GetInference(ctx, inferenceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongInferenceId
	}
	now := e.clock.Unix()

	switch inf.Status {
	case StatusProcessed, StatusKilled, StatusTransferred:
		return nil // idempotent: already terminal (§8)

	case StatusSolving:
		if now > inf.SubmitDeadline && !inf.SeizedBy.IsZero() {
			return e.killInference(ctx, inf)
		}
		return nil

	case StatusCommit:
		if now <= inf.CommitDeadline {
			return nil
		}
		v, _, err := e.store.GetVotingInfo(ctx, inferenceID)
		if err != nil {
			return err
		}
		totalCommits := 0
		if v != nil {
			totalCommits = v.TotalCommits
		}
		if totalCommits+1 >= len(inf.AssignmentIDs) {
			inf.Status = StatusReveal
			if err := e.store.PutInference(ctx, inf); err != nil {
				return err
			}
			e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inferenceID, Status: StatusReveal})
			return nil
		}
		return e.refundAndSlashUncommitted(ctx, inf)

	case StatusReveal:
		v, _, err := e.store.GetVotingInfo(ctx, inferenceID)
		if err != nil {
			return err
		}
		totalReveals, totalCommits := 0, 0
		if v != nil {
			totalReveals, totalCommits = v.TotalReveals, v.TotalCommits
		}
		if now <= inf.RevealDeadline && totalReveals != totalCommits {
			return nil
		}
		return e.resolveVoting(ctx, inf)

	default:
		return ErrUnknownStructField
	}
}

func (e *Engine) killInference(ctx context.Context, inf *Inference) error {
	refund := inf.Value + inf.FeeL2 + inf.FeeTreasury
	if err := e.ledger.TransferWithAuthority(vaultAccount, acct(inf.Creator), refund); err != nil {
		return err
	}
	task := queue.NewSlashMinerByMinerTask([32]byte(inf.SeizedBy), true)
	if err := e.store.PushTask(ctx, task); err != nil {
		return err
	}
	inf.Status = StatusKilled
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inf.ID, Status: StatusKilled})
	return nil
}

func (e *Engine) refundAndSlashUncommitted(ctx context.Context, inf *Inference) error {
	refund := inf.Value + inf.FeeL2 + inf.FeeTreasury
	if err := e.ledger.TransferWithAuthority(vaultAccount, acct(inf.Creator), refund); err != nil {
		return err
	}
	for _, assignmentID := range inf.AssignmentIDs {
		task := queue.NewSlashMinerByAssignmentTask(assignmentID, false, true, uint8(VoteNil))
		if err := e.store.PushTask(ctx, task); err != nil {
			return err
		}
	}
	inf.Status = StatusProcessed
	if err := e.store.PutInference(ctx, inf); err != nil {
		return err
	}
	e.emit(EventInferenceStatusUpdate, InferenceStatusUpdateData{ID: inf.ID, Status: StatusProcessed})
	return nil
}
