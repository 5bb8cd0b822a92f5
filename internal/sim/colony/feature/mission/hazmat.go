package mission

import (
	"strconv"

	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// standSearchRadius bounds the Chebyshev rings searched around a rampart.
const standSearchRadius = 3

func (m *MasonMission) hazmatActions(a model.Agent) {
	r, ok := m.hazmatRampart(a)
	if !ok {
		m.masonActions(a)
		return
	}
	pos, ok := m.standPoint(r)
	if !ok {
		m.masonActions(a)
		return
	}
	m.report.StandPoints[a.ID()] = pos
	if a.Pos() != pos {
		m.check(a.ID(), "move", a.MoveTo(pos, nil))
		return
	}
	a.Memory().InPosition = true
	a.StealNearby("unit")
	m.check(a.ID(), "repair", a.Repair(r))
}

// hazmatRampart keeps a responder on its rampart while it is still at risk and no
// other responder took it this tick; otherwise the first free at-risk rampart wins.
func (m *MasonMission) hazmatRampart(a model.Agent) (*model.Structure, bool) {
	if !m.risk.Endangered() {
		a.ForgetOwn(keyHazmatRampart)
		return nil, false
	}
	lookup := m.lookupKind(model.KindRampart)
	ref := claim.Ref[*model.Structure]{
		Lookup: lookup,
		Valid: func(s *model.Structure) bool {
			_, atRisk := m.risk.Risk(s.ID)
			return atRisk && !m.claimed.Reserved(m.now, s.ID)
		},
		Candidates: func() []*model.Structure {
			out := make([]*model.Structure, 0, len(m.risk.AtRisk))
			for _, r := range m.risk.AtRisk {
				out = append(out, r.Structure)
			}
			return out
		},
		ID: structureID,
	}
	remembered, _ := a.Claimed(keyHazmatRampart)
	r, id, ok := ref.Resolve(remembered)
	if !ok || !m.claimed.Reserve(m.now, id) {
		a.ForgetOwn(keyHazmatRampart)
		return nil, false
	}
	a.ClaimOwn(keyHazmatRampart, id)
	return r, true
}

// standPoint returns the cached stand-point for r or searches a new one. Cached
// entries live until the threat record is torn down.
func (m *MasonMission) standPoint(r *model.Structure) (geom.Pos, bool) {
	nd := m.mem.NukeData
	if nd == nil {
		return geom.Pos{}, false
	}
	if nd.HazmatPositions == nil {
		nd.HazmatPositions = map[int]int{}
	}
	key := geom.Serialize(r.Pos)
	if sp, ok := nd.HazmatPositions[key]; ok {
		m.standPoints.Reserve(m.now, strconv.Itoa(sp))
		return geom.Deserialize(sp), true
	}
	pos, ok := m.searchStandPoint(r)
	if !ok {
		m.logger.Printf("MASON: no valid position found for hazmat, rampart at: %s (%s)", r.Pos, m.site.Name())
		return geom.Pos{}, false
	}
	sp := geom.Serialize(pos)
	nd.HazmatPositions[key] = sp
	m.standPoints.Reserve(m.now, strconv.Itoa(sp))
	return pos, true
}

func (m *MasonMission) searchStandPoint(r *model.Structure) (geom.Pos, bool) {
	var blocker *model.Structure
	for radius := 0; radius <= standSearchRadius; radius++ {
		for _, p := range geom.Ring(r.Pos, radius) {
			if ext, ok := model.StructureAt(m.site, p, model.KindExtension); ok {
				if blocker == nil {
					blocker = ext
				}
				continue
			}
			if m.validStandPoint(p) {
				return p, true
			}
		}
	}
	if blocker == nil || m.standTaken(geom.Serialize(blocker.Pos)) {
		return geom.Pos{}, false
	}
	if st := m.site.Destroy(blocker.ID); st != model.OK {
		m.check(blocker.ID, "destroy", st)
		return geom.Pos{}, false
	}
	m.logger.Printf("MASON: destroying extension at %s to make room for hazmat (%s)", blocker.Pos, m.site.Name())
	m.report.Demolished = append(m.report.Demolished, blocker.ID)
	return blocker.Pos, true
}

func (m *MasonMission) validStandPoint(p geom.Pos) bool {
	if geom.NearBoundary(p, m.cfg.BoundaryMargin) {
		return false
	}
	info := m.site.Position(p)
	if !info.Passable || info.HasRoad {
		return false
	}
	if st, ok := m.site.Storage(); ok && geom.IsNear(p, st.Pos) {
		return false
	}
	return !m.standTaken(geom.Serialize(p))
}

// standTaken reports whether a stand-point is held by another rampart's responder.
func (m *MasonMission) standTaken(sp int) bool {
	if m.standPoints.Reserved(m.now, strconv.Itoa(sp)) {
		return true
	}
	if m.mem.NukeData == nil {
		return false
	}
	for _, v := range m.mem.NukeData.HazmatPositions {
		if v == sp {
			return true
		}
	}
	return false
}
