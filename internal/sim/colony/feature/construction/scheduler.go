// Package construction advances the layout one structure kind per tick, placing at
// most one work order per step and routing existing structures to tower repair.
package construction

import (
	"io"
	"log"

	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

type Config struct {
	MinDefenseLevel int
	// RepairGranularity is the hit deficit one tower shot is worth.
	RepairGranularity int64
	// RampartFloor is the rampart health treated as good enough for tower upkeep.
	RampartFloor     int64
	TowerRangeFloor  int
	RecheckBaseTicks uint64
}

func DefaultConfig() Config {
	return Config{
		MinDefenseLevel:   5,
		RepairGranularity: 800,
		RampartFloor:      100000,
		TowerRangeFloor:   5,
		RecheckBaseTicks:  1000,
	}
}

type Scheduler struct {
	cfg     Config
	site    model.Site
	threats model.ThreatAssessor
	planner *layout.Planner
	mem     *model.LayoutMemory
	// fired holds the towers already committed this tick; shared with missions.
	fired  *claim.Registry
	dice   sched.Dice
	logger *log.Logger
}

func New(site model.Site, threats model.ThreatAssessor, planner *layout.Planner, mem *model.LayoutMemory, fired *claim.Registry, dice sched.Dice, cfg Config, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if fired == nil {
		fired = claim.NewRegistry()
	}
	if cfg.RepairGranularity <= 0 {
		cfg.RepairGranularity = DefaultConfig().RepairGranularity
	}
	return &Scheduler{cfg: cfg, site: site, threats: threats, planner: planner, mem: mem, fired: fired, dice: dice, logger: logger}
}

// StepResult describes one scheduler step.
type StepResult struct {
	Kind    model.Kind
	Skipped string
	Placed  bool
	Pos     geom.Pos
	Status  model.Status
	Repairs int
}

// ConcurrencyCap is the open work order count above which no new order is placed.
func ConcurrencyCap(level int) int {
	if level == 1 {
		return 1
	}
	n := level * 10
	if n < 40 {
		n = 40
	}
	return n
}

// Step advances the round-robin pointer by one kind and works that kind.
func (s *Scheduler) Step(now uint64) StepResult {
	order := model.ConstructionOrder
	idx := s.mem.CheckLayoutIndex
	if idx < 0 || idx >= len(order) {
		idx = 0
	}
	s.mem.CheckLayoutIndex = (idx + 1) % len(order)
	kind := order[idx]
	res := StepResult{Kind: kind}

	if !s.planner.Ready() {
		res.Skipped = "layout"
		return res
	}
	level := s.site.Level()
	if len(s.site.WorkOrders()) > ConcurrencyCap(level) {
		res.Skipped = "cap"
		return res
	}
	if kind == model.KindRampart && level < s.cfg.MinDefenseLevel {
		res.Skipped = "level"
		return res
	}
	if next, ok := s.mem.NextCheck[kind]; ok && now < next {
		res.Skipped = "cooldown"
		return res
	}

	coords := s.planner.CoordinatesFor(kind)
	allowed := s.planner.AllowedCount(kind)
	for i := 0; i < allowed && i < len(coords); i++ {
		pos := coords[i]
		if st, ok := model.StructureAt(s.site, pos, kind); ok {
			res.Repairs += s.RepairLayout(now, st)
			continue
		}
		if _, ok := s.site.WorkOrderAt(pos); ok {
			continue
		}
		res.Pos = pos
		res.Status = s.site.CreateWorkOrder(pos, kind)
		if res.Status == model.OK {
			res.Placed = true
			s.logger.Printf("LAYOUT: placing %s at %s (%s)", kind, pos, s.site.Name())
		} else {
			s.logger.Printf("LAYOUT: error: %s, %s, %s (%s)", res.Status, kind, pos, s.site.Name())
		}
		return res
	}

	if s.mem.NextCheck == nil {
		s.mem.NextCheck = map[model.Kind]uint64{}
	}
	s.mem.NextCheck[kind] = now + sched.RandomInterval(s.dice, s.cfg.RecheckBaseTicks)
	return res
}
