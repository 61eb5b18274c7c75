package models

// DTOs for the inference-coordinator HTTP surface. IDs and digests cross
// the wire hex-encoded (coordinator.ID already (un)marshals that way;
// Digest has no JSON methods of its own), so these structs carry plain
// strings and let the handler layer convert.

type RegisterMinerRequest struct {
	Miner string `json:"miner"`
	Stake uint64 `json:"stake"`
}

type RegisterMinerResponse struct {
	Model string `json:"model"`
}

type JoinForMintingRequest struct {
	Miner string `json:"miner"`
}

type TopUpRequest struct {
	Miner  string `json:"miner"`
	Amount uint64 `json:"amount"`
}

type RequestUnstakeRequest struct {
	Miner       string `json:"miner"`
	RosterIndex int    `json:"rosterIndex"`
}

type ClaimRequest struct {
	Miner string `json:"miner"`
}

type InferRequest struct {
	InferenceID uint64 `json:"inferenceId"`
	Creator     string `json:"creator"`
	Model       string `json:"model"`
	Input       string `json:"input"`
	Value       uint64 `json:"value"`
	Referrer    string `json:"referrer,omitempty"`
}

type TopUpInferRequest struct {
	InferenceID uint64 `json:"inferenceId"`
	Value       uint64 `json:"value"`
}

type SeizeMinerRoleRequest struct {
	Miner        string `json:"miner"`
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
}

type SubmitSolutionRequest struct {
	Miner        string `json:"miner"`
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
	Data         string `json:"data"`
}

type CommitRequest struct {
	Validator    string `json:"validator"`
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
	Commitment   string `json:"commitment"`
}

type RevealRequest struct {
	Validator    string `json:"validator"`
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
	Nonce        uint64 `json:"nonce"`
	Data         string `json:"data"`
}

type ResolveInferenceRequest struct {
	InferenceID uint64 `json:"inferenceId"`
}

type UpdateEpochRequest struct {
	ExpectedEpochID uint64 `json:"expectedEpochId"`
}

// InitRequest seeds the GlobalState singleton — admin bootstrap only.
type InitRequest struct {
	Admin     string `json:"admin"`
	Token     string `json:"token"`
	L2Owner   string `json:"l2Owner"`
	Treasury  string `json:"treasury"`

	MinMinerStake uint64 `json:"minMinerStake"`
	UnstakeDelay  int64  `json:"unstakeDelay"`

	EpochDurationSlots  uint64 `json:"epochDurationSlots"`
	RewardPerEpoch      uint64 `json:"rewardPerEpoch"`
	FinePercentBP       uint64 `json:"finePercentBp"`
	PenaltyDurationSlots uint64 `json:"penaltyDurationSlots"`

	MinFeeToUse           uint64 `json:"minFeeToUse"`
	FeeL2BP               uint64 `json:"feeL2Bp"`
	FeeTreasuryBP         uint64 `json:"feeTreasuryBp"`
	MinerValidatorSplitBP uint64 `json:"minerValidatorSplitBp"`

	SubmitDuration int64 `json:"submitDuration"`
	CommitDuration int64 `json:"commitDuration"`
	RevealDuration int64 `json:"revealDuration"`

	RequiredMiners int `json:"requiredMiners"`

	DaoTokenReward     uint64 `json:"daoTokenReward"`
	DaoMinerBP         uint64 `json:"daoMinerBp"`
	DaoUserBP          uint64 `json:"daoUserBp"`
	DaoReferrerBP      uint64 `json:"daoReferrerBp"`
	DaoRefereeBP       uint64 `json:"daoRefereeBp"`
	DaoL2OwnerBP       uint64 `json:"daoL2OwnerBp"`
}

type AddModelRequest struct {
	Admin string `json:"admin"`
	Model string `json:"model"`
}

type SetUint64Request struct {
	Admin string `json:"admin"`
	Value uint64 `json:"value"`
}

type SetIDRequest struct {
	Admin string `json:"admin"`
	ID    string `json:"id"`
}

// ModelRosterResponse answers the read-model "list a model's active
// committee-eligible miners" endpoint (not a spec.md operation; added in
// the Go-native expansion's supplemented-features section).
type ModelRosterResponse struct {
	Model  string   `json:"model"`
	Miners []string `json:"miners"`
}

// MinerClaimableResponse answers the per-miner claimable summary endpoint
// (same expansion): what a miner could withdraw right now without calling
// claim_reward/claim_unstaked first.
type MinerClaimableResponse struct {
	Miner             string `json:"miner"`
	Stake             uint64 `json:"stake"`
	AccruedReward     uint64 `json:"accruedReward"`
	IsActive          bool   `json:"isActive"`
	UnstakingDeadline int64  `json:"unstakingDeadline"`
	ReactivationAfter int64  `json:"reactivationAfter"`
}
