package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"colonyctl.ai/internal/sim/colony/operation"
)

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := w.Write(operation.TickReport{Tick: uint64(i), Site: "s1"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(operation.TickReport{Tick: 3, Site: "s1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
	if filepath.Base(files[0]) != "ticks-2026-03-01-10.jsonl.zst" || filepath.Base(files[1]) != "ticks-2026-03-01-11.jsonl.zst" {
		t.Fatalf("names=%v", files)
	}

	var ticks []uint64
	for _, f := range files {
		err := ReadLines(f, func(line []byte) bool {
			var r operation.TickReport
			if err := json.Unmarshal(line, &r); err != nil {
				t.Fatalf("unmarshal %q: %v", line, err)
			}
			ticks = append(ticks, r.Tick)
			return true
		})
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if len(ticks) != 4 || ticks[0] != 0 || ticks[3] != 3 {
		t.Fatalf("ticks=%v", ticks)
	}
}

func TestAuditLogger_WritesUnderAuditDir(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	if err := l.WriteAudit(operation.AuditEntry{Tick: 9, Site: "s1", Action: operation.AuditLayoutMoved}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := Files(filepath.Join(dir, "audit"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	n := 0
	_ = ReadLines(files[0], func(line []byte) bool {
		var e operation.AuditEntry
		_ = json.Unmarshal(line, &e)
		if e.Action != operation.AuditLayoutMoved || e.Tick != 9 {
			t.Fatalf("entry=%+v", e)
		}
		n++
		return true
	})
	if n != 1 {
		t.Fatalf("lines=%d", n)
	}
}
