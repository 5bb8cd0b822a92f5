package threat

import (
	"log"

	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

// shelterKinds are the high value structures worth a rampart over them.
var shelterKinds = []model.Kind{
	model.KindTower,
	model.KindSpawn,
	model.KindTerminal,
	model.KindLab,
	model.KindNuker,
}

// PlaceShelters issues rampart work orders over high value structures inside damage
// range that have neither a rampart nor a pending rampart order. The scan runs only
// when the dice allow it; it is load shedding, the next sampled tick catches up.
// It returns the structures that received an order.
func (c Config) PlaceShelters(site model.Site, threats []model.Threat, dice sched.Dice, logger *log.Logger) []*model.Structure {
	if len(threats) == 0 || !sched.Chance(dice, c.ShelterChance) {
		return nil
	}
	var placed []*model.Structure
	for _, kind := range shelterKinds {
		list := site.Structures(kind)
		if kind == model.KindLab && c.LabShelterLimit >= 0 && len(list) > c.LabShelterLimit {
			list = list[:c.LabShelterLimit]
		}
		for _, s := range list {
			if !c.InDamageRange(s.Pos, threats) {
				continue
			}
			if _, ok := model.StructureAt(site, s.Pos, model.KindRampart); ok {
				continue
			}
			if wo, ok := site.WorkOrderAt(s.Pos); ok && wo.Kind == model.KindRampart {
				continue
			}
			if st := site.CreateWorkOrder(s.Pos, model.KindRampart); st != model.OK {
				if logger != nil {
					logger.Printf("NUKE: shelter rampart at %s (%s) rejected: %s", s.Pos, site.Name(), st)
				}
				continue
			}
			placed = append(placed, s)
		}
	}
	return placed
}
