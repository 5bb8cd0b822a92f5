package model

import (
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
)

// LayoutMemory is the persisted layout record owned by the operation.
// HasLayout gates everything else: Center and Rotation are meaningful only when set.
type LayoutMemory struct {
	HasLayout bool     `json:"has_layout"`
	Center    geom.Pos `json:"center"`
	Rotation  int      `json:"rotation"`
	Radius    int      `json:"radius"`

	LayoutMap        map[Kind][]geom.Coord `json:"layout_map,omitempty"`
	CheckLayoutIndex int                   `json:"check_layout_index"`
	RepairIndices    map[Kind]int          `json:"repair_indices,omitempty"`
	NextCheck        map[Kind]uint64       `json:"next_check,omitempty"`

	ShowLayout bool   `json:"show_layout"`
	ShowKind   string `json:"show_kind,omitempty"`
}

// MissionMemory is the persisted record of one mission.
type MissionMemory struct {
	NeedMasonKnown bool `json:"need_mason_known"`
	NeedMason      bool `json:"need_mason"`

	// Sandbags holds serialized choke-point positions, comma separated.
	Sandbags        string `json:"sandbags,omitempty"`
	SandbagsKnown   bool   `json:"sandbags_known"`
	HazmatsLastTick int    `json:"hazmats_last_tick"`

	// NukeData exists only while an area threat endangers a structure.
	NukeData *NukeData `json:"nuke_data,omitempty"`

	RateLog sched.Periodic `json:"rate_log"`
}

type NukeData struct {
	// HazmatPositions maps a serialized structure position to a serialized stand-point.
	HazmatPositions map[int]int `json:"hazmat_positions"`
}

// UnitMemory is the persisted record of one unit.
type UnitMemory struct {
	Claims     map[string]string `json:"claims,omitempty"`
	InPosition bool              `json:"in_position"`
	HasLoad    bool              `json:"has_load"`
	Recheck    sched.Periodic    `json:"recheck"`
}

func (m *UnitMemory) Claim(key, id string) {
	if m.Claims == nil {
		m.Claims = map[string]string{}
	}
	m.Claims[key] = id
}

func (m *UnitMemory) Forget(key string) { delete(m.Claims, key) }

func (m *UnitMemory) Claimed(key string) (string, bool) {
	id, ok := m.Claims[key]
	return id, ok && id != ""
}

// SiteMemory is the full persistent record for one site.
type SiteMemory struct {
	Layout   LayoutMemory              `json:"layout"`
	Missions map[string]*MissionMemory `json:"missions"`
	Units    map[string]*UnitMemory    `json:"units"`
}

func NewSiteMemory() *SiteMemory {
	return &SiteMemory{
		Missions: map[string]*MissionMemory{},
		Units:    map[string]*UnitMemory{},
	}
}

func (s *SiteMemory) Mission(name string) *MissionMemory {
	if s.Missions == nil {
		s.Missions = map[string]*MissionMemory{}
	}
	m := s.Missions[name]
	if m == nil {
		m = &MissionMemory{}
		s.Missions[name] = m
	}
	return m
}
