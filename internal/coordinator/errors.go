package coordinator

import "errors"

// Error taxonomy per spec §7. Grounded on the reputation/slashing package's
// sentinel-error block style (core/internal/reputation/slashing.go in the
// retrieval pack): a flat var() block of errors.New values, switched on by
// identity rather than wrapped dynamic strings, so callers (notably the
// HTTP layer) can map 1:1 onto response codes.
var (
	// Authorization
	ErrUnauthorized  = errors.New("coordinator: unauthorized")
	ErrWrongRecipient = errors.New("coordinator: wrong recipient")
	ErrWrongSender   = errors.New("coordinator: wrong sender")

	// Staking / lifecycle
	ErrMustGreatThanMinStake = errors.New("coordinator: stake must be greater than minimum")
	ErrNoModelRegistered     = errors.New("coordinator: no model registered")
	ErrModelNotExist         = errors.New("coordinator: model does not exist")
	ErrModelAlreadyExists    = errors.New("coordinator: model already registered")
	ErrModelRosterNotEmpty   = errors.New("coordinator: model roster is not empty")
	ErrNotActiveYet          = errors.New("coordinator: miner not active yet")
	ErrAlreadyJoined         = errors.New("coordinator: miner already joined")
	ErrAlreadyActivated      = errors.New("coordinator: miner already activated")
	ErrMinerNotRegistered    = errors.New("coordinator: miner not registered")
	ErrStillUnstaking        = errors.New("coordinator: miner is still unstaking")
	ErrNothingToClaim        = errors.New("coordinator: nothing to claim")
	ErrCanNotClaim           = errors.New("coordinator: cannot claim yet")
	ErrRosterIndexMismatch   = errors.New("coordinator: roster index does not match miner")

	// Inference
	ErrFeeTooLow                   = errors.New("coordinator: fee too low")
	ErrZeroValue                   = errors.New("coordinator: value must be non-zero")
	ErrInferMustBeSolvingState     = errors.New("coordinator: inference must be in Solving state")
	ErrInferenceSeized             = errors.New("coordinator: inference already seized")
	ErrInferenceNotSeized          = errors.New("coordinator: inference not seized")
	ErrInvalidReveal               = errors.New("coordinator: invalid reveal")
	ErrWrongInferenceId            = errors.New("coordinator: wrong inference id")
	ErrWrongAssignmentId           = errors.New("coordinator: wrong assignment id")
	ErrNoMinerAvailable            = errors.New("coordinator: no miner available")
	ErrInsufficientFunds           = errors.New("coordinator: insufficient funds")
	ErrInsufficientMinersForCommittee = errors.New("coordinator: insufficient miners for committee")
	ErrWrongState                  = errors.New("coordinator: operation not valid in current state")
	ErrNotCommitteeMember          = errors.New("coordinator: caller is not a committee member")
	ErrWrongRole                   = errors.New("coordinator: wrong assignment role")
	ErrAlreadyCommitted            = errors.New("coordinator: assignment already committed")
	ErrAlreadyRevealed             = errors.New("coordinator: assignment already revealed")

	// Timing
	ErrNeedToWait           = errors.New("coordinator: need to wait")
	ErrEpochRewardUpToDate  = errors.New("coordinator: epoch reward already up to date")
	ErrInvalidEpochId       = errors.New("coordinator: invalid epoch id")
	ErrMustWaitTasks        = errors.New("coordinator: must wait for pending tasks")
	ErrNoValidTask          = errors.New("coordinator: no valid task")
	ErrDeadlineNotReached   = errors.New("coordinator: deadline not reached")

	// Internal
	ErrUnknownStructField = errors.New("coordinator: unknown struct field")
	ErrTaskKindMismatch    = errors.New("coordinator: task kind mismatch")
)
