package simsite

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

type pendingSpawn struct {
	req   model.SpawnRequest
	ready uint64
}

// HeadCount returns the live units of the request's role and queues one spawn when
// fewer than Max are alive (units within Prespawn ticks of expiry do not count).
func (w *World) HeadCount(req model.SpawnRequest) []model.Agent {
	var live []model.Agent
	counted := 0
	for _, u := range w.Units() {
		if u.mission != req.Mission || u.role != req.Role {
			continue
		}
		live = append(live, u)
		if u.ttl > req.Prespawn {
			counted++
		}
	}
	for _, p := range w.pending {
		if p.req.Mission == req.Mission && p.req.Role == req.Role {
			counted++
		}
	}
	if counted < req.Max && len(w.Structures(model.KindSpawn)) > 0 {
		w.pending = append(w.pending, pendingSpawn{req: req, ready: w.tick + w.cfg.SpawnDelay})
	}
	return live
}

// Pending returns the number of queued spawns for role.
func (w *World) Pending(role string) int {
	n := 0
	for _, p := range w.pending {
		if p.req.Role == role {
			n++
		}
	}
	return n
}

func (w *World) hatch() {
	spawns := w.Structures(model.KindSpawn)
	if len(spawns) == 0 {
		return
	}
	kept := w.pending[:0]
	for _, p := range w.pending {
		if p.ready > w.tick {
			kept = append(kept, p)
			continue
		}
		at := spawns[0].Pos
		for _, n := range geom.Ring(at, 1) {
			if w.Position(n).Passable {
				at = n
				break
			}
		}
		u := w.AddUnit(p.req.Mission, p.req.Role, at, p.req.Body)
		u.boosts = append(u.boosts, p.req.Boosts...)
	}
	w.pending = kept
}
