package claim

// Ref describes how to turn a remembered id back into a live value.
//
// Lookup returns false when the referent no longer exists. Valid is the selection
// predicate the referent must still satisfy. Candidates lists fresh options in
// priority order; the first valid one wins.
type Ref[T any] struct {
	Lookup     func(id string) (T, bool)
	Valid      func(T) bool
	Candidates func() []T
	ID         func(T) string
}

// Resolve validates the remembered id and otherwise re-derives a target. The returned
// id is "" with ok=false when nothing qualifies; a stale id is never returned.
func (r Ref[T]) Resolve(remembered string) (v T, id string, ok bool) {
	if remembered != "" && r.Lookup != nil {
		if cur, found := r.Lookup(remembered); found && r.valid(cur) {
			return cur, remembered, true
		}
	}
	if r.Candidates == nil {
		return v, "", false
	}
	for _, c := range r.Candidates() {
		if !r.valid(c) {
			continue
		}
		return c, r.ID(c), true
	}
	return v, "", false
}

func (r Ref[T]) valid(v T) bool {
	if r.Valid == nil {
		return true
	}
	return r.Valid(v)
}
