package coordinator

// Event is the common envelope for every outbound §6 event-stream message.
// Handlers (the WebSocket hub, structured logs) switch on Kind.
type Event struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

const (
	EventMinerRegistration    = "MinerRegistration"
	EventMinerJoin            = "MinerJoin"
	EventMinerTopup           = "MinerTopup"
	EventNewInference         = "NewInference"
	EventNewAssignment        = "NewAssignment"
	EventTopUpInfer           = "TopUpInfer"
	EventMinerRoleSeized      = "MinerRoleSeized"
	EventSolutionSubmission   = "SolutionSubmission"
	EventCommitmentSubmission = "CommitmentSubmission"
	EventRevealSubmission     = "RevealSubmission"
	EventInferenceStatusUpdate = "InferenceStatusUpdate"
	EventMinerPenalized       = "MinerPenalized"
	EventMinerDeactivated     = "MinerDeactivated"
	EventParamUpdated         = "ParamUpdated"
	EventDaoTokenAccrued      = "DaoTokenAccrued"
)

type MinerRegistrationData struct {
	Miner ID     `json:"miner"`
	Stake uint64 `json:"stake"`
	Model ID     `json:"model"`
}

type MinerJoinData struct {
	Miner ID `json:"miner"`
}

type MinerTopupData struct {
	Miner  ID     `json:"miner"`
	Amount uint64 `json:"amount"`
}

type NewInferenceData struct {
	ID      uint64 `json:"id"`
	Creator ID     `json:"creator"`
	Model   ID     `json:"model"`
	Value   uint64 `json:"value"`
}

type NewAssignmentData struct {
	ID          uint64 `json:"id"`
	InferenceID uint64 `json:"inferenceId"`
	Worker      ID     `json:"worker"`
}

type TopUpInferData struct {
	ID    uint64 `json:"id"`
	Value uint64 `json:"value"`
}

type MinerRoleSeizedData struct {
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
	Sender       ID     `json:"sender"`
}

type SolutionSubmissionData struct {
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
}

type CommitmentSubmissionData struct {
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
}

type RevealSubmissionData struct {
	AssignmentID uint64 `json:"assignmentId"`
	InferenceID  uint64 `json:"inferenceId"`
}

type InferenceStatusUpdateData struct {
	ID     uint64          `json:"id"`
	Status InferenceStatus `json:"status"`
}

type MinerPenalizedData struct {
	Miner ID     `json:"miner"`
	Fine  uint64 `json:"fine"`
}

type MinerDeactivatedData struct {
	Miner ID `json:"miner"`
}

type ParamUpdatedData struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// DaoTokenAccruedData is bookkeeping-only (§6): the core computes each
// role's share of daoTokenReward but never mints — an external collaborator
// owns the token-mint step.
type DaoTokenAccruedData struct {
	InferenceID    uint64 `json:"inferenceId"`
	Miner          ID     `json:"miner"`
	MinerAmount    uint64 `json:"minerAmount"`
	User           ID     `json:"user"`
	UserAmount     uint64 `json:"userAmount"`
	Referrer       ID     `json:"referrer,omitempty"`
	ReferrerAmount uint64 `json:"referrerAmount,omitempty"`
	Referee        ID     `json:"referee,omitempty"`
	RefereeAmount  uint64 `json:"refereeAmount,omitempty"`
	L2Owner        ID     `json:"l2Owner"`
	L2OwnerAmount  uint64 `json:"l2OwnerAmount"`
}

// EventSink receives every event the coordinator emits. Implementations
// must not block the caller for long — the HTTP-request path emits
// synchronously. Grounded on the teacher's Hub.Broadcast, which hands off
// to a buffered channel rather than writing to sockets inline.
type EventSink interface {
	Emit(Event)
}

// NopSink discards events; used in tests that don't assert on the stream.
type NopSink struct{}

func (NopSink) Emit(Event) {}
