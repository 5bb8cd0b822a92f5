package claim

// Registry is a tick-scoped set of reserved ids. Reservations are advisory: every caller
// that hands out a target must consult Reserve before committing to it.
// Entries from earlier ticks are dropped on first use in a later tick.
type Registry struct {
	tick uint64
	ids  map[string]struct{}
}

func NewRegistry() *Registry { return &Registry{ids: map[string]struct{}{}} }

func (r *Registry) roll(tick uint64) {
	if r.ids == nil || tick != r.tick {
		r.tick = tick
		r.ids = map[string]struct{}{}
	}
}

// Reserve claims id for the tick. It returns false when id is already taken.
func (r *Registry) Reserve(tick uint64, id string) bool {
	if id == "" {
		return false
	}
	r.roll(tick)
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

func (r *Registry) Reserved(tick uint64, id string) bool {
	if r.ids == nil || tick != r.tick {
		return false
	}
	_, ok := r.ids[id]
	return ok
}
