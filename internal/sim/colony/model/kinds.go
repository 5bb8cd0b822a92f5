package model

type Kind string

const (
	KindSpawn      Kind = "spawn"
	KindExtension  Kind = "extension"
	KindRoad       Kind = "road"
	KindWall       Kind = "constructedWall"
	KindRampart    Kind = "rampart"
	KindLink       Kind = "link"
	KindStorage    Kind = "storage"
	KindTower      Kind = "tower"
	KindObserver   Kind = "observer"
	KindPowerSpawn Kind = "powerSpawn"
	KindExtractor  Kind = "extractor"
	KindLab        Kind = "lab"
	KindTerminal   Kind = "terminal"
	KindContainer  Kind = "container"
	KindNuker      Kind = "nuker"
)

// ConstructionOrder is the fixed order the layout scheduler cycles through.
var ConstructionOrder = []Kind{
	KindSpawn,
	KindExtension,
	KindRoad,
	KindWall,
	KindRampart,
	KindLink,
	KindStorage,
	KindTower,
	KindObserver,
	KindPowerSpawn,
	KindExtractor,
	KindLab,
	KindTerminal,
	KindContainer,
	KindNuker,
}

// Walkable kinds do not block movement.
func (k Kind) Walkable() bool {
	return k == KindRoad || k == KindRampart || k == KindContainer
}

const ResourceEnergy = "energy"
