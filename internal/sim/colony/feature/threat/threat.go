// Package threat predicts area damage from tracked threats and derives the repair
// throughput needed to outlast them.
package threat

import (
	"sort"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

type Config struct {
	// Falloff is sorted by MaxRange; ranges past the last bucket take no damage.
	Falloff      []model.DamageBucket
	SafetyMargin int64

	ShelterChance   float64
	LabShelterLimit int
}

func DefaultConfig() Config {
	return Config{
		Falloff: []model.DamageBucket{
			{MaxRange: 0, Damage: 10000000},
			{MaxRange: 2, Damage: 5000000},
		},
		SafetyMargin:    10000000,
		ShelterChance:   0.1,
		LabShelterLimit: 8,
	}
}

// Lookup returns the damage a hit at distance r deals.
func Lookup(falloff []model.DamageBucket, r int) int64 {
	for _, b := range falloff {
		if r <= b.MaxRange {
			return b.Damage
		}
	}
	return 0
}

// MaxRange is the farthest distance any bucket reaches, or -1 for an empty table.
func MaxRange(falloff []model.DamageBucket) int {
	far := -1
	for _, b := range falloff {
		if b.MaxRange > far {
			far = b.MaxRange
		}
	}
	return far
}

func (c Config) table(t model.Threat) []model.DamageBucket {
	if len(t.Falloff) > 0 {
		return t.Falloff
	}
	return c.Falloff
}

// IncomingDamage sums the damage every threat will deal at p.
func (c Config) IncomingDamage(p geom.Pos, threats []model.Threat) int64 {
	var total int64
	for _, t := range threats {
		total += Lookup(c.table(t), geom.Range(p, t.Pos))
	}
	return total
}

// InDamageRange reports whether any threat reaches p.
func (c Config) InDamageRange(p geom.Pos, threats []model.Threat) bool {
	for _, t := range threats {
		if Lookup(c.table(t), geom.Range(p, t.Pos)) > 0 {
			return true
		}
	}
	return false
}

type Risk struct {
	Structure *model.Structure
	Incoming  int64
	// Deficit is the hit points still missing to survive with the safety margin.
	Deficit int64
}

type Assessment struct {
	AtRisk        []Risk
	TotalDeficit  int64
	RequiredRate  int64
	SoonestImpact uint64
}

func (a Assessment) Endangered() bool { return len(a.AtRisk) > 0 }

// Risk returns the entry for structure id.
func (a Assessment) Risk(id string) (Risk, bool) {
	for _, r := range a.AtRisk {
		if r.Structure.ID == id {
			return r, true
		}
	}
	return Risk{}, false
}

// EvaluateRisk flags every structure whose hits do not cover incoming damage plus the
// safety margin, including structures no threat reaches while any threat is tracked.
// The required rate is the total deficit over the soonest impact, rounded up so a
// crew sized from it never falls short. AtRisk keeps the input order.
func (c Config) EvaluateRisk(structures []*model.Structure, threats []model.Threat) Assessment {
	var a Assessment
	if len(threats) == 0 {
		return a
	}
	a.SoonestImpact = threats[0].TimeToImpact
	for _, t := range threats[1:] {
		if t.TimeToImpact < a.SoonestImpact {
			a.SoonestImpact = t.TimeToImpact
		}
	}
	for _, s := range structures {
		in := c.IncomingDamage(s.Pos, threats)
		need := in + c.SafetyMargin - s.Hits
		if need <= 0 {
			continue
		}
		a.AtRisk = append(a.AtRisk, Risk{Structure: s, Incoming: in, Deficit: need})
		a.TotalDeficit += need
	}
	if a.TotalDeficit > 0 {
		ticks := int64(a.SoonestImpact)
		if ticks < 1 {
			ticks = 1
		}
		a.RequiredRate = (a.TotalDeficit + ticks - 1) / ticks
	}
	return a
}

// Lowest returns the at-risk structure with the fewest hits.
func (a Assessment) Lowest() (*model.Structure, bool) {
	var best *model.Structure
	for _, r := range a.AtRisk {
		if best == nil || r.Structure.Hits < best.Hits {
			best = r.Structure
		}
	}
	return best, best != nil
}

// SortedByHits returns the at-risk entries from weakest to strongest, ties by id.
func (a Assessment) SortedByHits() []Risk {
	out := append([]Risk(nil), a.AtRisk...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Structure.Hits != out[j].Structure.Hits {
			return out[i].Structure.Hits < out[j].Structure.Hits
		}
		return out[i].Structure.ID < out[j].Structure.ID
	})
	return out
}
