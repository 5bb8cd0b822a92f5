package simsite

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

// Raids drives recurring trouble for a long-running simulated site: area threats
// aimed at a random rampart and short hostile waves at the edge of the grid.
type Raids struct {
	ThreatEvery  uint64
	ThreatFlight uint64
	HostileEvery uint64
	HostileTTL   int
}

// Install schedules the first occurrence of each raid kind; every occurrence
// schedules the next one.
func (r Raids) Install(w *World) {
	dice := &sched.HashDice{Seed: w.cfg.Seed, Tick: w.Tick}
	if r.ThreatFlight == 0 {
		r.ThreatFlight = 500
	}
	if r.HostileTTL <= 0 {
		r.HostileTTL = 50
	}
	if r.ThreatEvery > 0 {
		var threat func(*World)
		threat = func(w *World) {
			if target, ok := pick(dice, w.Structures(model.KindRampart)); ok {
				w.AddThreat(target, r.ThreatFlight)
			}
			w.At(w.tick+sched.RandomInterval(dice, r.ThreatEvery), threat)
		}
		w.At(w.tick+r.ThreatEvery, threat)
	}
	if r.HostileEvery > 0 {
		var wave func(*World)
		wave = func(w *World) {
			x := int(dice.Float64() * float64(geom.GridSize-2))
			w.AddHostile(geom.Pos{X: x + 1, Y: 1}, 5, 5, r.HostileTTL)
			w.At(w.tick+sched.RandomInterval(dice, r.HostileEvery), wave)
		}
		w.At(w.tick+r.HostileEvery, wave)
	}
}

func pick(d sched.Dice, ss []*model.Structure) (geom.Pos, bool) {
	if len(ss) == 0 {
		return geom.Pos{}, false
	}
	i := int(d.Float64() * float64(len(ss)))
	if i >= len(ss) {
		i = len(ss) - 1
	}
	return ss[i].Pos, true
}
