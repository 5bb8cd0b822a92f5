package construction

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// RepairKindFor alternates ramparts and roads by tick parity.
func RepairKindFor(now uint64) model.Kind {
	if now%2 == 0 {
		return model.KindRampart
	}
	return model.KindRoad
}

// NextRepairIndex returns the index to examine for kind and advances the pointer,
// wrapping at n.
func NextRepairIndex(mem *model.LayoutMemory, kind model.Kind, n int) int {
	if n <= 0 {
		return -1
	}
	if mem.RepairIndices == nil {
		mem.RepairIndices = map[model.Kind]int{}
	}
	i := mem.RepairIndices[kind]
	if i < 0 || i >= n {
		i = 0
	}
	mem.RepairIndices[kind] = i + 1
	return i
}

// TowerRepair examines one layout structure of the tick's kind and lets towers top
// it up. Nothing happens while hostiles are present; towers are needed for defense.
func (s *Scheduler) TowerRepair(now uint64) int {
	if s.threats != nil && s.threats.HostileCount() > 0 {
		return 0
	}
	if !s.planner.Ready() {
		return 0
	}
	kind := RepairKindFor(now)
	coords := s.planner.CoordinatesFor(kind)
	i := NextRepairIndex(s.mem, kind, len(coords))
	if i < 0 {
		return 0
	}
	st, ok := model.StructureAt(s.site, coords[i], kind)
	if !ok {
		return 0
	}
	return s.RepairLayout(now, st)
}

// RepairLayout spends one shot per tower in range until the deficit, measured in
// shots, is covered. If some remains the nearest unfired tower shoots regardless
// of range. It returns the number of shots fired.
func (s *Scheduler) RepairLayout(now uint64, st *model.Structure) int {
	needed := (st.HitsMax - st.Hits) / s.cfg.RepairGranularity
	if st.Kind == model.KindRampart {
		if st.Hits >= s.cfg.RampartFloor {
			return 0
		}
	} else if needed == 0 {
		return 0
	}

	towers := s.site.Structures(model.KindTower)
	rng := s.planner.Radius() - 3
	if rng < s.cfg.TowerRangeFloor {
		rng = s.cfg.TowerRangeFloor
	}
	shots := 0
	var idle []*model.Structure
	for _, t := range towers {
		if s.fired.Reserved(now, t.ID) {
			continue
		}
		if needed <= 0 || !geom.InRange(t.Pos, st.Pos, rng) {
			idle = append(idle, t)
			continue
		}
		if s.shoot(now, t, st) {
			shots++
		}
		needed--
	}
	if needed > 0 && len(idle) > 0 {
		ps := model.Positions(idle)
		if s.shoot(now, idle[geom.Closest(st.Pos, ps)], st) {
			shots++
		}
	}
	return shots
}

func (s *Scheduler) shoot(now uint64, tower, st *model.Structure) bool {
	if !s.fired.Reserve(now, tower.ID) {
		return false
	}
	if status := s.site.TowerRepair(tower.ID, st.ID); status != model.OK {
		s.logger.Printf("LAYOUT: tower %s repair %s at %s: %s", tower.ID, st.Kind, st.Pos, status)
		return false
	}
	return true
}
