package indexdb

import (
	"testing"

	"colonyctl.ai/internal/persistence/snapshot"
	"colonyctl.ai/internal/sim/colony/operation"
)

func TestSQLiteIndex_StatsCountsDropsWhenQueueFull(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}

	_ = s.WriteTick(operation.TickReport{Tick: 1})
	_ = s.WriteTick(operation.TickReport{Tick: 2})
	_ = s.WriteAudit(operation.AuditEntry{Tick: 2, Action: operation.AuditWorkOrderPlaced})
	s.RecordSnapshot("x.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.QueueCapacity != 1 || st.QueueDepth != 1 {
		t.Fatalf("queue depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops tick=%d audit=%d snapshot=%d", st.DropTickTotal, st.DropAuditTotal, st.DropSnapshotTotal)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(operation.TickReport{}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := s.WriteAudit(operation.AuditEntry{}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	s.RecordSnapshot("", snapshot.SnapshotV1{})
}
