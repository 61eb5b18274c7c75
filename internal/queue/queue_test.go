package queue

import "testing"

func TestPushPopOrderIsLIFO(t *testing.T) {
	q := New()
	q.Push(NewPayMinerByRecipientTask([32]byte{1}, 10))
	q.Push(NewPayMinerByRecipientTask([32]byte{2}, 20))
	q.Push(NewPayMinerByRecipientTask([32]byte{3}, 30))

	first, ok := q.Pop()
	if !ok {
		t.Fatal("expected a task")
	}
	p := DecodePayMiner(first)
	if p.Amount != 30 {
		t.Fatalf("expected last-pushed task first (LIFO), got amount %d", p.Amount)
	}

	second, _ := q.Pop()
	if DecodePayMiner(second).Amount != 20 {
		t.Fatalf("expected amount 20 second, got %d", DecodePayMiner(second).Amount)
	}
}

func TestBufferLenIsMultipleOfRecordSize(t *testing.T) {
	q := New()
	for i := 0; i < 7; i++ {
		q.Push(NewSlashMinerByMinerTask([32]byte{byte(i)}, true))
	}
	if q.BufferLen()%RecordSize != 0 {
		t.Fatalf("buffer length %d is not a multiple of %d", q.BufferLen(), RecordSize)
	}
	if q.Len() != 7 {
		t.Fatalf("expected 7 tasks, got %d", q.Len())
	}
}

func TestPopEmptyQueue(t *testing.T) {
	q := New()
	if _, ok := q.Pop(); ok {
		t.Fatal("expected pop on empty queue to fail")
	}
}

func TestCreateAssignmentRoundTrip(t *testing.T) {
	worker := [32]byte{9, 9, 9}
	task := NewCreateAssignmentTask(CreateAssignmentPayload{
		AssignmentID: 42,
		InferenceID:  7,
		Worker:       worker,
		Role:         2,
	})
	rec := task.Encode()
	decoded := Decode(rec)
	p := DecodeCreateAssignment(decoded)
	if p.AssignmentID != 42 || p.InferenceID != 7 || p.Role != 2 || p.Worker != worker {
		t.Fatalf("round trip mismatch: %+v", p)
	}
}

func TestSlashMinerByAssignmentRoundTrip(t *testing.T) {
	task := NewSlashMinerByAssignmentTask(99, true, true, 2)
	p := DecodeSlashMiner(task)
	if !p.ByAssignment || p.AssignmentID != 99 || !p.IsFined || !p.CheckEmptyCommit || p.VoteToSet != 2 {
		t.Fatalf("round trip mismatch: %+v", p)
	}
}

func TestPayMinerByAssignmentRoundTrip(t *testing.T) {
	task := NewPayMinerByAssignmentTask(5, 1000, uint8(1))
	p := DecodePayMiner(task)
	if !p.UseAssignment || p.AssignmentID != 5 || p.Amount != 1000 || p.VoteToSet != 1 {
		t.Fatalf("round trip mismatch: %+v", p)
	}
}
