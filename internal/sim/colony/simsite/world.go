// Package simsite is a deterministic in-memory colony site. It implements the
// collaborator interfaces the operation consumes so the whole tick pipeline can be
// driven without a game server, both by tests and by cmd/server.
package simsite

import (
	"fmt"
	"sort"

	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

type Config struct {
	Name  string
	Level int
	Seed  int64

	// BoundaryMargin is how close to the grid edge a tile counts as near the boundary.
	BoundaryMargin int
	// Falloff is applied when a threat lands and carries no table of its own.
	Falloff []model.DamageBucket

	StorageIncome int
	SpawnDelay    uint64
	UnitLifetime  int

	// BuildRate is the progress the site's generic builders add to the oldest open
	// work order each tick. Zero leaves building to units.
	BuildRate int

	RampartDecay      int64
	RampartDecayEvery uint64
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "sim0"
	}
	if c.Level <= 0 {
		c.Level = 8
	}
	if c.BoundaryMargin <= 0 {
		c.BoundaryMargin = 1
	}
	if len(c.Falloff) == 0 {
		c.Falloff = []model.DamageBucket{
			{MaxRange: 0, Damage: 10000000},
			{MaxRange: 2, Damage: 5000000},
		}
	}
	if c.SpawnDelay == 0 {
		c.SpawnDelay = 3
	}
	if c.UnitLifetime <= 0 {
		c.UnitLifetime = 1500
	}
	if c.RampartDecayEvery == 0 {
		c.RampartDecayEvery = 100
	}
}

// World is not safe for concurrent use; the runtime loop owns it.
type World struct {
	cfg  Config
	tick uint64

	// Mem backs every unit's memory. The operation driving this world shares it.
	Mem *model.SiteMemory

	walls      map[geom.Pos]bool
	structures map[string]*model.Structure
	orders     map[string]*model.WorkOrder
	units      map[string]*Unit
	pending    []pendingSpawn
	threats    []model.Threat
	hostiles   []*hostile
	flags      map[string]geom.Pos
	events     map[uint64][]func(*World)
	destroyed  []string

	nextID int
	decay  sched.Periodic
}

type hostile struct {
	model.Hostile
	ttl int
}

func New(cfg Config) *World {
	cfg.applyDefaults()
	return &World{
		cfg:        cfg,
		Mem:        model.NewSiteMemory(),
		walls:      map[geom.Pos]bool{},
		structures: map[string]*model.Structure{},
		orders:     map[string]*model.WorkOrder{},
		units:      map[string]*Unit{},
		flags:      map[string]geom.Pos{},
		events:     map[uint64][]func(*World){},
		decay:      sched.Every(cfg.RampartDecayEvery),
	}
}

func (w *World) Config() Config { return w.cfg }

func (w *World) id(prefix string) string {
	w.nextID++
	return fmt.Sprintf("%s-%05d", prefix, w.nextID)
}

func (w *World) Name() string { return w.cfg.Name }
func (w *World) Tick() uint64 { return w.tick }
func (w *World) Level() int   { return w.cfg.Level }

func (w *World) SetLevel(level int) { w.cfg.Level = level }

// SetTick moves the clock, used when resuming from a snapshot.
func (w *World) SetTick(t uint64) { w.tick = t }

func (w *World) AddWall(p geom.Pos) { w.walls[p] = true }

func (w *World) AddStructure(kind model.Kind, p geom.Pos, hits, hitsMax int64) *model.Structure {
	s := &model.Structure{ID: w.id(string(kind)), Kind: kind, Pos: p, Hits: hits, HitsMax: hitsMax}
	w.structures[s.ID] = s
	return s
}

func (w *World) AddThreat(p geom.Pos, timeToImpact uint64) model.Threat {
	t := model.Threat{ID: w.id("nuke"), Pos: p, TimeToImpact: timeToImpact}
	w.threats = append(w.threats, t)
	return t
}

func (w *World) AddHostile(p geom.Pos, ranged, attack, ttl int) model.Hostile {
	h := &hostile{Hostile: model.Hostile{ID: w.id("hostile"), Pos: p, RangedParts: ranged, AttackParts: attack}, ttl: ttl}
	w.hostiles = append(w.hostiles, h)
	return h.Hostile
}

func (w *World) ClearHostiles() { w.hostiles = nil }

func (w *World) ClearThreats() { w.threats = nil }

func (w *World) SetFlag(name string, p geom.Pos) { w.flags[name] = p }

func (w *World) RemoveFlag(name string) { delete(w.flags, name) }

// At schedules fn to run at the start of tick t.
func (w *World) At(t uint64, fn func(*World)) { w.events[t] = append(w.events[t], fn) }

func (w *World) Structures(kind model.Kind) []*model.Structure {
	var out []*model.Structure
	for _, s := range w.structures {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) AllStructures() []*model.Structure {
	out := make([]*model.Structure, 0, len(w.structures))
	for _, s := range w.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Structure(id string) (*model.Structure, bool) {
	s, ok := w.structures[id]
	return s, ok
}

func (w *World) StructuresAt(p geom.Pos) []*model.Structure {
	var out []*model.Structure
	for _, s := range w.structures {
		if s.Pos == p {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Storage() (*model.Structure, bool) {
	list := w.Structures(model.KindStorage)
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

func (w *World) WorkOrders() []*model.WorkOrder {
	out := make([]*model.WorkOrder, 0, len(w.orders))
	for _, o := range w.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) WorkOrderAt(p geom.Pos) (*model.WorkOrder, bool) {
	for _, o := range w.WorkOrders() {
		if o.Pos == p {
			return o, true
		}
	}
	return nil, false
}

// MaxWorkOrders mirrors the substrate's global construction site limit.
const MaxWorkOrders = 100

func (w *World) CreateWorkOrder(p geom.Pos, kind model.Kind) model.Status {
	if !geom.InBounds(p) || w.walls[p] {
		return model.ErrInvalidTarget
	}
	if len(w.orders) >= MaxWorkOrders {
		return model.ErrTooMany
	}
	if _, ok := w.WorkOrderAt(p); ok {
		return model.ErrInvalidTarget
	}
	for _, s := range w.StructuresAt(p) {
		if s.Kind == kind {
			return model.ErrInvalidTarget
		}
		if !kind.Walkable() && !s.Kind.Walkable() {
			return model.ErrInvalidTarget
		}
	}
	o := &model.WorkOrder{ID: w.id("site"), Kind: kind, Pos: p, Total: buildCost(kind)}
	w.orders[o.ID] = o
	return model.OK
}

func (w *World) Threats() []model.Threat {
	return append([]model.Threat(nil), w.threats...)
}

func (w *World) Position(p geom.Pos) model.PositionInfo {
	info := model.PositionInfo{
		Wall:         !geom.InBounds(p) || w.walls[p],
		NearBoundary: geom.NearBoundary(p, w.cfg.BoundaryMargin),
	}
	info.Passable = !info.Wall
	for _, s := range w.StructuresAt(p) {
		if s.Kind == model.KindRoad {
			info.HasRoad = true
		}
		if !s.Kind.Walkable() {
			info.Passable = false
		}
	}
	return info
}

func (w *World) Unit(id string) (model.Agent, bool) {
	u, ok := w.units[id]
	if !ok {
		return nil, false
	}
	return u, true
}

func (w *World) Flag(name string) (geom.Pos, bool) {
	p, ok := w.flags[name]
	return p, ok
}

const (
	towerEnergyPerShot = 10
	towerRepairPower   = 800
	towerHealPower     = 400
)

func (w *World) tower(id string) (*model.Structure, model.Status) {
	t, ok := w.structures[id]
	if !ok || t.Kind != model.KindTower {
		return nil, model.ErrInvalidTarget
	}
	if t.Energy < towerEnergyPerShot {
		return nil, model.ErrNotEnough
	}
	return t, model.OK
}

func (w *World) TowerRepair(towerID, structureID string) model.Status {
	t, st := w.tower(towerID)
	if st != model.OK {
		return st
	}
	s, ok := w.structures[structureID]
	if !ok {
		return model.ErrInvalidTarget
	}
	t.Energy -= towerEnergyPerShot
	s.Hits = minInt64(s.HitsMax, s.Hits+towerRepairPower)
	return model.OK
}

func (w *World) TowerHeal(towerID, unitID string) model.Status {
	t, st := w.tower(towerID)
	if st != model.OK {
		return st
	}
	u, ok := w.units[unitID]
	if !ok {
		return model.ErrInvalidTarget
	}
	t.Energy -= towerEnergyPerShot
	u.hits = minInt(u.hitsMax, u.hits+towerHealPower)
	return model.OK
}

func (w *World) Destroy(structureID string) model.Status {
	if _, ok := w.structures[structureID]; !ok {
		return model.ErrInvalidTarget
	}
	delete(w.structures, structureID)
	w.destroyed = append(w.destroyed, structureID)
	return model.OK
}

// Destroyed lists every structure removed by Destroy, in call order.
func (w *World) Destroyed() []string { return append([]string(nil), w.destroyed...) }

func (w *World) HostileCount() int { return len(w.hostiles) }

func (w *World) Hostiles() []model.Hostile {
	out := make([]model.Hostile, len(w.hostiles))
	for i, h := range w.hostiles {
		out[i] = h.Hostile
	}
	return out
}

func buildCost(kind model.Kind) int {
	switch kind {
	case model.KindRoad, model.KindRampart, model.KindWall:
		return 300
	case model.KindExtension:
		return 3000
	case model.KindContainer:
		return 5000
	case model.KindTower, model.KindLink:
		return 5000
	default:
		return 15000
	}
}

func hitsFor(kind model.Kind) (hits, hitsMax int64) {
	switch kind {
	case model.KindRampart:
		return 1, 300000000
	case model.KindWall:
		return 1, 300000000
	case model.KindRoad:
		return 5000, 5000
	case model.KindStorage, model.KindTerminal:
		return 10000, 10000
	default:
		return 3000, 3000
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
