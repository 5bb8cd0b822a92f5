package model

import "colonyctl.ai/internal/sim/colony/logic/geom"

type Structure struct {
	ID             string
	Kind           Kind
	Pos            geom.Pos
	Hits           int64
	HitsMax        int64
	Energy         int
	EnergyCapacity int
}

// WorkOrder is an open construction site.
type WorkOrder struct {
	ID       string
	Kind     Kind
	Pos      geom.Pos
	Progress int
	Total    int
}

type Hostile struct {
	ID          string
	Pos         geom.Pos
	RangedParts int
	AttackParts int
}

// DamageBucket maps every range <= MaxRange (and above the previous bucket) to Damage.
type DamageBucket struct {
	MaxRange int   `yaml:"max_range" json:"max_range"`
	Damage   int64 `yaml:"damage" json:"damage"`
}

// Threat is an incoming area attack. It is rediscovered every tick and never persisted.
type Threat struct {
	ID           string
	Pos          geom.Pos
	TimeToImpact uint64
	// Falloff overrides the configured damage table when non-empty.
	Falloff []DamageBucket
}

type PositionInfo struct {
	Wall         bool
	Passable     bool
	NearBoundary bool
	HasRoad      bool
}

type BodySpec struct {
	Work  int `json:"work"`
	Carry int `json:"carry"`
	Move  int `json:"move"`
	// Ratio scales the body to the available energy keeping the proportions.
	Ratio bool `json:"ratio,omitempty"`
}

type SpawnRequest struct {
	Mission        string
	Role           string
	Body           BodySpec
	Max            int
	Prespawn       int
	Boosts         []string
	AllowUnboosted bool
}

// MoveOpts carries per-call movement cost overrides.
type MoveOpts struct {
	Costs func(m *CostMatrix)
}

const (
	CostDefault    uint8 = 0
	CostImpassable uint8 = 0xff
)

// CostMatrix holds per-tile movement costs; 0 means terrain default.
type CostMatrix struct {
	cells [geom.GridSize * geom.GridSize]uint8
}

func (m *CostMatrix) Get(p geom.Pos) uint8 {
	if !geom.InBounds(p) {
		return CostImpassable
	}
	return m.cells[geom.Serialize(p)]
}

func (m *CostMatrix) Set(p geom.Pos, cost uint8) {
	if !geom.InBounds(p) {
		return
	}
	m.cells[geom.Serialize(p)] = cost
}

// BlockOff assigns cost to every tile within r of center. With additive set the
// cost is added to the current value (saturating).
func (m *CostMatrix) BlockOff(center geom.Pos, r int, cost uint8, additive bool) {
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			p := geom.Pos{X: center.X + dx, Y: center.Y + dy}
			if !geom.InBounds(p) {
				continue
			}
			if !additive {
				m.Set(p, cost)
				continue
			}
			sum := int(m.Get(p)) + int(cost)
			if sum > int(CostImpassable) {
				sum = int(CostImpassable)
			}
			m.Set(p, uint8(sum))
		}
	}
}
