package claim

import "testing"

func TestRegistry_ExclusivePerTick(t *testing.T) {
	r := NewRegistry()
	if !r.Reserve(1, "a") {
		t.Fatalf("first reserve should succeed")
	}
	if r.Reserve(1, "a") {
		t.Fatalf("second reserve in the same tick should fail")
	}
	if !r.Reserved(1, "a") || r.Reserved(1, "b") {
		t.Fatalf("reserved mismatch")
	}
	if !r.Reserve(2, "a") {
		t.Fatalf("a new tick starts clean")
	}
	if r.Reserved(1, "a") {
		t.Fatalf("old tick should be forgotten")
	}
	if r.Reserve(2, "") {
		t.Fatalf("empty id must not reserve")
	}
}

type target struct {
	id  string
	low bool
}

func TestResolve_StaleSelfHeal(t *testing.T) {
	live := map[string]target{
		"b": {id: "b", low: true},
		"c": {id: "c", low: false},
	}
	ref := Ref[target]{
		Lookup: func(id string) (target, bool) {
			v, ok := live[id]
			return v, ok
		},
		Valid: func(v target) bool { return v.low },
		Candidates: func() []target {
			return []target{live["c"], live["b"]}
		},
		ID: func(v target) string { return v.id },
	}

	// "a" was deleted: expect a fresh valid target, never "a".
	_, id, ok := ref.Resolve("a")
	if !ok || id != "b" {
		t.Fatalf("resolve deleted = (%q,%v), want b", id, ok)
	}

	// "c" exists but no longer qualifies.
	_, id, ok = ref.Resolve("c")
	if !ok || id != "b" {
		t.Fatalf("resolve unqualified = (%q,%v), want b", id, ok)
	}

	delete(live, "b")
	_, id, ok = ref.Resolve("b")
	if ok || id != "" {
		t.Fatalf("expected explicit none, got (%q,%v)", id, ok)
	}
}
