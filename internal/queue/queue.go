// Package queue implements the typed deferred-task queue (§3 Task/TaskQueue,
// §4.4 task queue semantics, §9 design note "typed sum-of-bytes task
// payload"). Each task is a fixed 50-byte record: 1 byte kind, 49 bytes of
// kind-specific payload. The queue itself is a packed byte buffer whose
// length is always a multiple of 50 — a testable invariant (§8).
//
// Ordering: push appends to the back; pop removes from the back. Despite
// §3 calling this a "FIFO", §4.4/§5 are explicit that the source pops from
// the end, so crankers observe LIFO-on-enqueue order. Every task carries
// its own kind tag so out-of-order permissionless execution is still safe
// to validate (§5).
package queue

import (
	"encoding/binary"
	"sync"
)

const (
	RecordSize  = 50
	PayloadSize = 49
)

// Kind discriminates the payload layout of a Task.
type Kind uint8

const (
	KindCreateAssignment Kind = 0
	KindPayMiner         Kind = 1
	KindSlashMiner       Kind = 2
)

// Task is one fixed-width deferred-action record.
type Task struct {
	Kind    Kind
	Payload [PayloadSize]byte
}

// Encode renders the task as its 50-byte wire record.
func (t Task) Encode() [RecordSize]byte {
	var out [RecordSize]byte
	out[0] = byte(t.Kind)
	copy(out[1:], t.Payload[:])
	return out
}

// Decode parses a 50-byte wire record back into a Task.
func Decode(rec [RecordSize]byte) Task {
	var t Task
	t.Kind = Kind(rec[0])
	copy(t.Payload[:], rec[1:])
	return t
}

// --- CreateAssignment payload: u64 assignmentId ∥ u64 inferenceId ∥ 32B workerId ∥ u8 role

type CreateAssignmentPayload struct {
	AssignmentID uint64
	InferenceID  uint64
	Worker       [32]byte
	Role         uint8
}

func NewCreateAssignmentTask(p CreateAssignmentPayload) Task {
	var t Task
	t.Kind = KindCreateAssignment
	binary.LittleEndian.PutUint64(t.Payload[0:8], p.AssignmentID)
	binary.LittleEndian.PutUint64(t.Payload[8:16], p.InferenceID)
	copy(t.Payload[16:48], p.Worker[:])
	t.Payload[48] = p.Role
	return t
}

func DecodeCreateAssignment(t Task) CreateAssignmentPayload {
	var p CreateAssignmentPayload
	p.AssignmentID = binary.LittleEndian.Uint64(t.Payload[0:8])
	p.InferenceID = binary.LittleEndian.Uint64(t.Payload[8:16])
	copy(p.Worker[:], t.Payload[16:48])
	p.Role = t.Payload[48]
	return p
}

// --- PayMiner payload: u8 useAssignment ∥ [by-assignment: u64 assignmentId ∥ u64 amount ∥ u8 voteToSet]
//                                        ∥ [by-recipient: 32B recipient ∥ u64 amount]

type PayMinerPayload struct {
	UseAssignment bool
	AssignmentID  uint64 // valid when UseAssignment
	Recipient     [32]byte // valid when !UseAssignment
	Amount        uint64
	VoteToSet     uint8 // valid when UseAssignment
}

func NewPayMinerByAssignmentTask(assignmentID uint64, amount uint64, vote uint8) Task {
	var t Task
	t.Kind = KindPayMiner
	t.Payload[0] = 1
	binary.LittleEndian.PutUint64(t.Payload[1:9], assignmentID)
	binary.LittleEndian.PutUint64(t.Payload[9:17], amount)
	t.Payload[17] = vote
	return t
}

func NewPayMinerByRecipientTask(recipient [32]byte, amount uint64) Task {
	var t Task
	t.Kind = KindPayMiner
	t.Payload[0] = 0
	copy(t.Payload[1:33], recipient[:])
	binary.LittleEndian.PutUint64(t.Payload[33:41], amount)
	return t
}

func DecodePayMiner(t Task) PayMinerPayload {
	var p PayMinerPayload
	if t.Payload[0] == 1 {
		p.UseAssignment = true
		p.AssignmentID = binary.LittleEndian.Uint64(t.Payload[1:9])
		p.Amount = binary.LittleEndian.Uint64(t.Payload[9:17])
		p.VoteToSet = t.Payload[17]
	} else {
		p.UseAssignment = false
		copy(p.Recipient[:], t.Payload[1:33])
		p.Amount = binary.LittleEndian.Uint64(t.Payload[33:41])
	}
	return p
}

// --- SlashMiner payload: u8 tag (1 = by-miner, 0 = by-assignment) ∥ [by-miner: 32B minerId ∥ u8 isFined]
//                                          ∥ [by-assignment: u64 assignmentId ∥ u8 isFined ∥ u8 checkEmptyCommit ∥ u8 voteToSet]

type SlashMinerPayload struct {
	ByAssignment     bool
	Miner            [32]byte // valid when !ByAssignment
	AssignmentID     uint64   // valid when ByAssignment
	IsFined          bool
	CheckEmptyCommit bool   // valid when ByAssignment
	VoteToSet        uint8  // valid when ByAssignment
}

func NewSlashMinerByMinerTask(miner [32]byte, isFined bool) Task {
	var t Task
	t.Kind = KindSlashMiner
	t.Payload[0] = 1
	copy(t.Payload[1:33], miner[:])
	t.Payload[33] = boolByte(isFined)
	return t
}

func NewSlashMinerByAssignmentTask(assignmentID uint64, isFined, checkEmptyCommit bool, voteToSet uint8) Task {
	var t Task
	t.Kind = KindSlashMiner
	t.Payload[0] = 0
	binary.LittleEndian.PutUint64(t.Payload[1:9], assignmentID)
	t.Payload[9] = boolByte(isFined)
	t.Payload[10] = boolByte(checkEmptyCommit)
	t.Payload[11] = voteToSet
	return t
}

func DecodeSlashMiner(t Task) SlashMinerPayload {
	var p SlashMinerPayload
	if t.Payload[0] == 1 {
		p.ByAssignment = false
		copy(p.Miner[:], t.Payload[1:33])
		p.IsFined = t.Payload[33] != 0
	} else {
		p.ByAssignment = true
		p.AssignmentID = binary.LittleEndian.Uint64(t.Payload[1:9])
		p.IsFined = t.Payload[9] != 0
		p.CheckEmptyCommit = t.Payload[10] != 0
		p.VoteToSet = t.Payload[11]
	}
	return p
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Queue is a packed-byte-buffer stack (pushed to the back, popped from the
// back, so LIFO — see package doc). Safe for concurrent use; crankers may race to
// pop from multiple goroutines.
type Queue struct {
	mu  sync.Mutex
	buf []byte
}

func New() *Queue {
	return &Queue{}
}

// Push appends a task to the back of the buffer.
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec := t.Encode()
	q.buf = append(q.buf, rec[:]...)
}

// Pop removes and returns the task most recently pushed (pop from back).
// ok is false if the queue is empty.
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return Task{}, false
	}
	start := len(q.buf) - RecordSize
	var rec [RecordSize]byte
	copy(rec[:], q.buf[start:])
	q.buf = q.buf[:start]
	return Decode(rec), true
}

// PeekKind returns the Kind of the task that the next Pop would return,
// without consuming it — used by crankers to pick the matching executor
// before popping (§4.4, §7: a wrong-kind pop is fatal, so a well-behaved
// cranker peeks first).
func (q *Queue) PeekKind() (Kind, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return 0, false
	}
	return Kind(q.buf[len(q.buf)-RecordSize]), true
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) / RecordSize
}

// BufferLen returns the raw byte-buffer length, exposed so tests can assert
// the §8 well-formedness invariant (always a multiple of RecordSize).
func (q *Queue) BufferLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
