package simsite

import (
	"sort"
	"strings"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

const (
	carryPerPart  = 50
	hitsPerPart   = 100
	repairPerWork = 100
	buildPerWork  = 5
	actionRange   = 3
)

type Unit struct {
	w *World

	id      string
	mission string
	role    string
	body    model.BodySpec
	boosts  []string

	pos     geom.Pos
	hits    int
	hitsMax int
	energy  int
	ttl     int
}

func (w *World) AddUnit(mission, role string, p geom.Pos, body model.BodySpec) *Unit {
	parts := body.Work + body.Carry + body.Move
	u := &Unit{
		w:       w,
		id:      w.id(role),
		mission: mission,
		role:    role,
		body:    body,
		pos:     p,
		hits:    parts * hitsPerPart,
		hitsMax: parts * hitsPerPart,
		ttl:     w.cfg.UnitLifetime,
	}
	w.units[u.id] = u
	return u
}

// Units lists live units sorted by id.
func (w *World) Units() []*Unit {
	out := make([]*Unit, 0, len(w.units))
	for _, u := range w.units {
		out = append(out, u)
	}
	sortUnits(out)
	return out
}

func (w *World) RemoveUnit(id string) { delete(w.units, id) }

func (u *Unit) ID() string        { return u.id }
func (u *Unit) Role() string      { return u.role }
func (u *Unit) Mission() string   { return u.mission }
func (u *Unit) Pos() geom.Pos     { return u.pos }
func (u *Unit) Hits() int         { return u.hits }
func (u *Unit) HitsMax() int      { return u.hitsMax }
func (u *Unit) Energy() int       { return u.energy }
func (u *Unit) Capacity() int     { return u.body.Carry * carryPerPart }
func (u *Unit) TicksToLive() int  { return u.ttl }
func (u *Unit) Boosts() []string  { return append([]string(nil), u.boosts...) }
func (u *Unit) SetPos(p geom.Pos) { u.pos = p }
func (u *Unit) SetEnergy(e int)   { u.energy = e }
func (u *Unit) SetHits(h int)     { u.hits = h }

func (u *Unit) Memory() *model.UnitMemory {
	if u.w.Mem.Units == nil {
		u.w.Mem.Units = map[string]*model.UnitMemory{}
	}
	m := u.w.Mem.Units[u.id]
	if m == nil {
		m = &model.UnitMemory{}
		u.w.Mem.Units[u.id] = m
	}
	return m
}

func (u *Unit) ClaimOwn(key, id string) { u.Memory().Claim(key, id) }
func (u *Unit) ForgetOwn(key string)    { u.Memory().Forget(key) }

func (u *Unit) Claimed(key string) (string, bool) { return u.Memory().Claimed(key) }

func (u *Unit) IsFull(margin int) bool { return u.energy >= u.Capacity()-margin }

func (u *Unit) walkable(p geom.Pos, costs *model.CostMatrix) bool {
	if !u.w.Position(p).Passable {
		return false
	}
	return costs == nil || costs.Get(p) != model.CostImpassable
}

// MoveTo takes one greedy step toward target, preferring cheaper tiles among the
// steps that close the same distance.
func (u *Unit) MoveTo(target geom.Pos, opts *model.MoveOpts) model.Status {
	if u.pos == target {
		return model.OK
	}
	var costs *model.CostMatrix
	if opts != nil && opts.Costs != nil {
		costs = &model.CostMatrix{}
		opts.Costs(costs)
	}
	cur := geom.Range(u.pos, target)
	best, bestRange, bestCost := u.pos, cur, 0
	for _, n := range geom.Ring(u.pos, 1) {
		if !u.walkable(n, costs) && n != target {
			continue
		}
		if n == target && !u.w.Position(n).Passable {
			continue
		}
		r := geom.Range(n, target)
		c := 0
		if costs != nil {
			c = int(costs.Get(n))
		}
		if r < bestRange || (r == bestRange && best != u.pos && c < bestCost) {
			best, bestRange, bestCost = n, r, c
		}
	}
	if best == u.pos {
		return model.ErrNoPath
	}
	u.pos = best
	return model.OK
}

func (u *Unit) Repair(target *model.Structure) model.Status {
	if target == nil {
		return model.ErrInvalidTarget
	}
	s, ok := u.w.structures[target.ID]
	if !ok {
		return model.ErrInvalidTarget
	}
	if geom.Range(u.pos, s.Pos) > actionRange {
		return model.ErrNotInRange
	}
	if u.energy <= 0 || u.body.Work == 0 {
		return model.ErrNotEnough
	}
	spend := minInt(u.body.Work, u.energy)
	power := repairPerWork
	if len(u.boosts) > 0 {
		power *= 2
	}
	u.energy -= spend
	s.Hits = minInt64(s.HitsMax, s.Hits+int64(spend*power))
	return model.OK
}

func (u *Unit) Build(target *model.WorkOrder) model.Status {
	if target == nil {
		return model.ErrInvalidTarget
	}
	o, ok := u.w.orders[target.ID]
	if !ok {
		return model.ErrInvalidTarget
	}
	if geom.Range(u.pos, o.Pos) > actionRange {
		return model.ErrNotInRange
	}
	if u.energy <= 0 || u.body.Work == 0 {
		return model.ErrNotEnough
	}
	spend := minInt(u.body.Work, u.energy)
	u.energy -= spend
	o.Progress += spend * buildPerWork
	if o.Progress >= o.Total {
		u.w.complete(o)
	}
	return model.OK
}

func (u *Unit) Withdraw(source *model.Structure, resource string) model.Status {
	if source == nil || resource != model.ResourceEnergy {
		return model.ErrInvalidTarget
	}
	s, ok := u.w.structures[source.ID]
	if !ok {
		return model.ErrInvalidTarget
	}
	if !geom.IsNear(u.pos, s.Pos) {
		return model.ErrNotInRange
	}
	room := u.Capacity() - u.energy
	if room <= 0 {
		return model.ErrFull
	}
	if s.Energy <= 0 {
		return model.ErrNotEnough
	}
	n := minInt(room, s.Energy)
	s.Energy -= n
	u.energy += n
	return model.OK
}

func (u *Unit) Transfer(to model.Agent, resource string) model.Status {
	if to == nil || resource != model.ResourceEnergy {
		return model.ErrInvalidTarget
	}
	dst, ok := u.w.units[to.ID()]
	if !ok {
		return model.ErrInvalidTarget
	}
	if !geom.IsNear(u.pos, dst.pos) {
		return model.ErrNotInRange
	}
	if u.energy <= 0 {
		return model.ErrNotEnough
	}
	room := dst.Capacity() - dst.energy
	if room <= 0 {
		return model.ErrFull
	}
	n := minInt(room, u.energy)
	u.energy -= n
	dst.energy += n
	return model.OK
}

// StealNearby pulls energy from an adjacent structure of kind, or from an adjacent
// cart when kind is "unit".
func (u *Unit) StealNearby(kind string) model.Status {
	room := u.Capacity() - u.energy
	if room <= 0 {
		return model.ErrFull
	}
	if kind == "unit" {
		for _, o := range u.w.Units() {
			if o == u || o.energy <= 0 || !strings.HasSuffix(o.role, "Cart") || !geom.IsNear(u.pos, o.pos) {
				continue
			}
			n := minInt(room, o.energy)
			o.energy -= n
			u.energy += n
			return model.OK
		}
		return model.ErrNotEnough
	}
	for _, s := range u.w.Structures(model.Kind(kind)) {
		if s.Energy <= 0 || !geom.IsNear(u.pos, s.Pos) {
			continue
		}
		n := minInt(room, s.Energy)
		s.Energy -= n
		u.energy += n
		return model.OK
	}
	return model.ErrNotEnough
}

// Flee steps away from hostiles closer than radius.
func (u *Unit) Flee(radius int) model.Status {
	near := func(p geom.Pos) int {
		best := radius + 1
		for _, h := range u.w.hostiles {
			if r := geom.Range(p, h.Pos); r < best {
				best = r
			}
		}
		return best
	}
	cur := near(u.pos)
	if cur > radius {
		return model.OK
	}
	best, bestR := u.pos, cur
	for _, n := range geom.Ring(u.pos, 1) {
		if !u.walkable(n, nil) {
			continue
		}
		if r := near(n); r > bestR {
			best, bestR = n, r
		}
	}
	if best == u.pos {
		return model.ErrNoPath
	}
	u.pos = best
	return model.OK
}

func (u *Unit) IdleNear(target geom.Pos, rng int) model.Status {
	if geom.Range(u.pos, target) <= rng {
		return model.OK
	}
	return u.MoveTo(target, nil)
}

func sortUnits(us []*Unit) {
	sort.Slice(us, func(i, j int) bool { return us[i].id < us[j].id })
}
