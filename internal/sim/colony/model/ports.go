package model

import "colonyctl.ai/internal/sim/colony/logic/geom"

// Site is the world-query collaborator for one colony site. Lists are returned in a
// stable order (by id) so decisions are deterministic.
type Site interface {
	Name() string
	Tick() uint64
	Level() int

	Structures(kind Kind) []*Structure
	Structure(id string) (*Structure, bool)
	StructuresAt(p geom.Pos) []*Structure
	Storage() (*Structure, bool)

	WorkOrders() []*WorkOrder
	WorkOrderAt(p geom.Pos) (*WorkOrder, bool)
	CreateWorkOrder(p geom.Pos, kind Kind) Status

	Threats() []Threat
	Position(p geom.Pos) PositionInfo
	Unit(id string) (Agent, bool)
	Flag(name string) (geom.Pos, bool)

	TowerRepair(towerID, structureID string) Status
	TowerHeal(towerID, unitID string) Status
	Destroy(structureID string) Status
}

// ThreatAssessor reports hostile presence; zero hostiles means safe.
type ThreatAssessor interface {
	HostileCount() int
	Hostiles() []Hostile
}

// Agent wraps one controllable unit.
type Agent interface {
	ID() string
	Role() string
	Pos() geom.Pos
	Hits() int
	HitsMax() int
	Energy() int
	Capacity() int
	TicksToLive() int
	Memory() *UnitMemory

	MoveTo(target geom.Pos, opts *MoveOpts) Status
	Repair(target *Structure) Status
	Build(target *WorkOrder) Status
	Withdraw(source *Structure, resource string) Status
	Transfer(to Agent, resource string) Status
	// StealNearby pulls energy from an adjacent structure of kind, or from an
	// adjacent unit when kind is "unit".
	StealNearby(kind string) Status
	Flee(radius int) Status
	IdleNear(target geom.Pos, rng int) Status
	IsFull(margin int) bool

	ClaimOwn(key, id string)
	ForgetOwn(key string)
	Claimed(key string) (string, bool)
}

// Spawner keeps a role populated. It returns the live units of the role and queues
// spawns when fewer than req.Max exist.
type Spawner interface {
	HeadCount(req SpawnRequest) []Agent
}

// SeedAnalyzer chooses a layout center and rotation from raw site geometry.
type SeedAnalyzer interface {
	Analyze(site Site, static map[Kind][]geom.Coord) (center geom.Pos, rotation int, ok bool)
}

// StructureAt returns the structure of kind at p.
func StructureAt(s Site, p geom.Pos, kind Kind) (*Structure, bool) {
	for _, st := range s.StructuresAt(p) {
		if st.Kind == kind {
			return st, true
		}
	}
	return nil, false
}

func Positions(ss []*Structure) []geom.Pos {
	out := make([]geom.Pos, len(ss))
	for i, s := range ss {
		out[i] = s.Pos
	}
	return out
}
