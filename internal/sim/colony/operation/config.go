package operation

import (
	"colonyctl.ai/internal/sim/colony/feature/construction"
	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/feature/mission"
	"colonyctl.ai/internal/sim/colony/feature/threat"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/tuning"
)

// Config carries the tuned constants of every component the operation drives.
type Config struct {
	Layout       layout.Config
	Construction construction.Config
	Mason        mission.Config
}

func DefaultConfig() Config {
	return Config{
		Layout:       layout.DefaultConfig(),
		Construction: construction.DefaultConfig(),
		Mason:        mission.DefaultConfig(),
	}
}

// ConfigFromTuning maps a loaded tuning file onto component configs.
func ConfigFromTuning(t tuning.Tuning) Config {
	falloff := make([]model.DamageBucket, 0, len(t.Threat.Falloff))
	for _, b := range t.Threat.Falloff {
		falloff = append(falloff, model.DamageBucket{MaxRange: b.MaxRange, Damage: b.Damage})
	}
	emergency := append([]string(nil), t.Site.EmergencySites...)

	return Config{
		Layout: layout.Config{
			Radius:          t.Layout.Radius,
			RampartOffset:   t.Layout.RampartOffset,
			MinDefenseLevel: t.Site.MinDefenseLevel,
			EmergencySites:  emergency,
			BoundaryMargin:  t.Site.BoundaryMargin,
		},
		Construction: construction.Config{
			MinDefenseLevel:   t.Site.MinDefenseLevel,
			RepairGranularity: t.Construction.RepairGranularity,
			RampartFloor:      t.Construction.RampartFloor,
			TowerRangeFloor:   t.Construction.TowerRangeFloor,
			RecheckBaseTicks:  t.Construction.RecheckBaseTicks,
		},
		Mason: mission.Config{
			EnergyPerMason:       t.Mason.EnergyPerMason,
			NeedMasonRampartHits: t.Mason.NeedMasonRampartHits,
			NeedMasonMinLevel:    t.Mason.NeedMasonMinLevel,
			HazmatMax:            t.Mason.HazmatMax,
			HazmatRepairRate:     int64(t.Mason.HazmatRepairRate),
			RampartBand:          t.Mason.RampartBand,
			RampartRecheckTicks:  t.Mason.RampartRecheckTicks,
			SandbagThreshold:     t.Mason.SandbagThreshold,
			RateLogEveryTicks:    t.Mason.RateLogEveryTicks,
			EmergencySites:       emergency,
			BoundaryMargin:       t.Site.BoundaryMargin,
			Threat: threat.Config{
				Falloff:         falloff,
				SafetyMargin:    t.Threat.SafetyMargin,
				ShelterChance:   t.Threat.ShelterChance,
				LabShelterLimit: t.Threat.LabShelterLimit,
			},
		},
	}
}
