package layout

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// MaxLevel is the highest controller level.
const MaxLevel = 8

// ControllerStructures is the per-level structure allowance, indexed by level 0..8.
var ControllerStructures = map[model.Kind][MaxLevel + 1]int{
	model.KindSpawn:      {0, 1, 1, 1, 1, 1, 1, 2, 3},
	model.KindExtension:  {0, 0, 5, 10, 20, 30, 40, 50, 60},
	model.KindLink:       {0, 0, 0, 0, 0, 2, 3, 4, 6},
	model.KindRoad:       {2500, 2500, 2500, 2500, 2500, 2500, 2500, 2500, 2500},
	model.KindWall:       {0, 0, 2500, 2500, 2500, 2500, 2500, 2500, 2500},
	model.KindRampart:    {0, 0, 2500, 2500, 2500, 2500, 2500, 2500, 2500},
	model.KindStorage:    {0, 0, 0, 0, 1, 1, 1, 1, 1},
	model.KindTower:      {0, 0, 0, 1, 1, 2, 2, 3, 6},
	model.KindObserver:   {0, 0, 0, 0, 0, 0, 0, 0, 1},
	model.KindPowerSpawn: {0, 0, 0, 0, 0, 0, 0, 0, 1},
	model.KindExtractor:  {0, 0, 0, 0, 0, 0, 1, 1, 1},
	model.KindLab:        {0, 0, 0, 0, 0, 0, 3, 6, 10},
	model.KindTerminal:   {0, 0, 0, 0, 0, 0, 1, 1, 1},
	model.KindContainer:  {5, 5, 5, 5, 5, 5, 5, 5, 5},
	model.KindNuker:      {0, 0, 0, 0, 0, 0, 0, 0, 1},
}

// TableCount returns the allowance for kind at level, clamping level into 0..8.
func TableCount(kind model.Kind, level int) int {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	row, ok := ControllerStructures[kind]
	if !ok {
		return 0
	}
	return row[level]
}

// Static holds the level independent template, as offsets from the layout center
// before rotation. Every offset has an odd coordinate sum so the road checkerboard
// of the flex area stays connected around it.
var Static = map[model.Kind][]geom.Coord{
	model.KindStorage:    {{X: 1, Y: 0}},
	model.KindTerminal:   {{X: -1, Y: 0}},
	model.KindPowerSpawn: {{X: 0, Y: -1}},
	model.KindNuker:      {{X: 3, Y: 0}},
	model.KindObserver:   {{X: -3, Y: 0}},
	model.KindSpawn:      {{X: 2, Y: -1}, {X: -2, Y: -1}, {X: 0, Y: -3}},
	model.KindTower: {
		{X: 2, Y: 1}, {X: -2, Y: 1}, {X: 1, Y: 2},
		{X: -1, Y: 2}, {X: 3, Y: 2}, {X: -3, Y: 2},
	},
	model.KindLink: {
		{X: 0, Y: 1}, {X: 4, Y: 1}, {X: -4, Y: 1},
		{X: 4, Y: -1}, {X: -4, Y: -1}, {X: 0, Y: 5},
	},
	model.KindLab: {
		{X: 1, Y: -2}, {X: -1, Y: -2}, {X: 2, Y: -3}, {X: -2, Y: -3}, {X: 3, Y: -2},
		{X: -3, Y: -2}, {X: 1, Y: -4}, {X: -1, Y: -4}, {X: 3, Y: -4}, {X: -3, Y: -4},
	},
	model.KindContainer: {{X: 0, Y: 3}, {X: 2, Y: 3}, {X: -2, Y: 3}},
}

func staticOffsets() map[geom.Coord]bool {
	out := map[geom.Coord]bool{}
	for _, coords := range Static {
		for _, c := range coords {
			out[c] = true
		}
	}
	return out
}
