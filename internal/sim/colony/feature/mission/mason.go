package mission

import (
	"fmt"
	"io"
	"log"

	"colonyctl.ai/internal/sim/colony/feature/threat"
	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

const (
	RoleMason      = "mason"
	RoleMasonCart  = "masonCart"
	RoleHazmat     = "hazmat"
	RoleHazmatCart = "hazmatCart"

	// BoostRepair is the compound that doubles repair output.
	BoostRepair = "XLH2O"

	keyRampart       = "rampartId"
	keyHazmatRampart = "hazmatRampartId"
	keyDeliver       = "masonId"
)

type Config struct {
	EnergyPerMason       int64
	NeedMasonRampartHits int64
	NeedMasonMinLevel    int
	HazmatMax            int
	HazmatRepairRate     int64
	// RampartBand widens the economy target set above the weakest rampart.
	RampartBand         int64
	RampartRecheckTicks uint64
	SandbagThreshold    int64
	RateLogEveryTicks   uint64
	EmergencySites      []string
	BoundaryMargin      int

	Threat threat.Config
}

func DefaultConfig() Config {
	return Config{
		EnergyPerMason:       500000,
		NeedMasonRampartHits: 50000000,
		NeedMasonMinLevel:    7,
		HazmatMax:            9,
		HazmatRepairRate:     3000,
		RampartBand:          100000,
		RampartRecheckTicks:  500,
		SandbagThreshold:     1000000,
		RateLogEveryTicks:    10,
		BoundaryMargin:       1,
		Threat:               threat.DefaultConfig(),
	}
}

// MasonMission keeps ramparts healthy: masons repair, carts feed them, and hazmat
// responders hold stand-points next to ramparts an area threat would break.
type MasonMission struct {
	cfg     Config
	site    model.Site
	threats model.ThreatAssessor
	spawner model.Spawner
	mem     *model.MissionMemory
	fired   *claim.Registry
	dice    sched.Dice
	logger  *log.Logger

	now      uint64
	hostiles []model.Hostile
	masons   []model.Agent
	carts    []model.Agent
	hazmats  []model.Agent
	hzCarts  []model.Agent
	risk     threat.Assessment

	deliveries  *claim.Registry
	claimed     *claim.Registry
	standPoints *claim.Registry
	sandbags    []geom.Pos

	report Report
}

func NewMasonMission(site model.Site, threats model.ThreatAssessor, spawner model.Spawner, mem *model.MissionMemory, fired *claim.Registry, dice sched.Dice, cfg Config, logger *log.Logger) *MasonMission {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if fired == nil {
		fired = claim.NewRegistry()
	}
	if cfg.HazmatRepairRate <= 0 {
		cfg.HazmatRepairRate = DefaultConfig().HazmatRepairRate
	}
	if cfg.EnergyPerMason <= 0 {
		cfg.EnergyPerMason = DefaultConfig().EnergyPerMason
	}
	return &MasonMission{
		cfg:         cfg,
		site:        site,
		threats:     threats,
		spawner:     spawner,
		mem:         mem,
		fired:       fired,
		dice:        dice,
		logger:      logger,
		deliveries:  claim.NewRegistry(),
		claimed:     claim.NewRegistry(),
		standPoints: claim.NewRegistry(),
		report:      newReport("mason"),
	}
}

func (m *MasonMission) Name() string { return "mason" }

func (m *MasonMission) Report() Report { return m.report }

// Assessment is the threat evaluation made in the last Init.
func (m *MasonMission) Assessment() threat.Assessment { return m.risk }

func (m *MasonMission) Init(now uint64) {
	m.now = now
	m.report = newReport(m.Name())
	m.hostiles = nil
	if m.threats != nil {
		m.hostiles = m.threats.Hostiles()
	}
	m.updateThreatData()
}

func (m *MasonMission) InvalidateCache() {
	m.mem.NeedMasonKnown = false
	m.mem.NeedMason = false
}

func (m *MasonMission) Finalize(now uint64) {}

func (m *MasonMission) emergency() bool {
	for _, n := range m.cfg.EmergencySites {
		if n == m.site.Name() {
			return true
		}
	}
	return false
}

// updateThreatData evaluates ramparts against tracked threats and keeps the
// stand-point record alive only while some rampart is endangered.
func (m *MasonMission) updateThreatData() {
	m.risk = threat.Assessment{}
	threats := m.site.Threats()
	if len(threats) == 0 {
		m.mem.NukeData = nil
		return
	}

	var ramparts []*model.Structure
	for _, r := range m.site.Structures(model.KindRampart) {
		if _, onRoad := model.StructureAt(m.site, r.Pos, model.KindRoad); onRoad {
			continue
		}
		ramparts = append(ramparts, r)
	}
	m.risk = m.cfg.Threat.EvaluateRisk(ramparts, threats)
	m.report.AtRisk = len(m.risk.AtRisk)
	m.report.RequiredRate = m.risk.RequiredRate

	if m.mem.RateLog.Interval == 0 && m.cfg.RateLogEveryTicks > 0 {
		m.mem.RateLog = sched.Every(m.cfg.RateLogEveryTicks)
	}
	if m.mem.RateLog.Due(m.now) {
		m.logger.Printf("MASON: needed repair rate: %d (%s)", m.risk.RequiredRate, m.site.Name())
	}

	if m.risk.TotalDeficit > 0 {
		if m.mem.NukeData == nil {
			m.mem.NukeData = &model.NukeData{HazmatPositions: map[int]int{}}
		}
	} else {
		m.mem.NukeData = nil
	}

	for _, s := range m.cfg.Threat.PlaceShelters(m.site, threats, m.dice, m.logger) {
		m.report.Shelters = append(m.report.Shelters, s.Pos)
	}
}

// NeedMason is cached in memory until InvalidateCache.
func (m *MasonMission) NeedMason() bool {
	if !m.mem.NeedMasonKnown {
		need := false
		if m.site.Level() >= m.cfg.NeedMasonMinLevel {
			if low, ok := lowestHits(m.site.Structures(model.KindRampart)); ok {
				need = low.Hits < m.cfg.NeedMasonRampartHits
			}
		}
		m.mem.NeedMason = need
		m.mem.NeedMasonKnown = true
	}
	return m.mem.NeedMason
}

func (m *MasonMission) MaxMasons() int {
	if len(m.hostiles) > 0 {
		return 1
	}
	if !m.NeedMason() {
		return 0
	}
	st, ok := m.site.Storage()
	if !ok {
		return 0
	}
	return int(ceilDiv(int64(st.Energy), m.cfg.EnergyPerMason))
}

func (m *MasonMission) MaxCarts() int {
	if m.NeedMason() && len(m.hostiles) > 0 {
		return 1
	}
	if m.emergency() {
		return 1
	}
	return 0
}

// MaxHazmats sizes the responder crew to the required repair rate, capped. Going
// over the cap is reported but not fatal: the crew works best effort.
func (m *MasonMission) MaxHazmats() int {
	if len(m.hostiles) > 0 || !m.risk.Endangered() {
		return 0
	}
	needed := int(ceilDiv(m.risk.RequiredRate, m.cfg.HazmatRepairRate))
	if needed > m.cfg.HazmatMax {
		msg := fmt.Sprintf("being overwhelmed by nukes in %s (need %d responders, max %d)", m.site.Name(), needed, m.cfg.HazmatMax)
		m.logger.Printf("MASON: %s", msg)
		m.report.Warnings = append(m.report.Warnings, msg)
		return m.cfg.HazmatMax
	}
	return needed
}

func (m *MasonMission) MaxHazmatCarts() int {
	return int(ceilDiv(int64(m.mem.HazmatsLastTick), 3))
}

func (m *MasonMission) masonBody() model.BodySpec {
	if len(m.hostiles) > 0 {
		return model.BodySpec{Work: 24, Carry: 14, Move: 12}
	}
	return model.BodySpec{Work: 16, Carry: 8, Move: 12}
}

func (m *MasonMission) masonBoosts() []string {
	if len(m.hostiles) > 0 {
		return []string{BoostRepair}
	}
	return nil
}

func (m *MasonMission) cartBody() model.BodySpec {
	return model.BodySpec{Carry: 4, Move: 2, Ratio: m.risk.Endangered()}
}

func (m *MasonMission) RoleCall(now uint64) {
	name := m.Name()
	call := func(role string, req model.SpawnRequest) []model.Agent {
		req.Mission, req.Role = name, role
		live := m.spawner.HeadCount(req)
		m.report.Populations[role] = Population{Desired: req.Max, Live: len(live)}
		return live
	}
	m.masons = call(RoleMason, model.SpawnRequest{
		Body: m.masonBody(), Max: m.MaxMasons(), Prespawn: 1, Boosts: m.masonBoosts(),
	})
	m.carts = call(RoleMasonCart, model.SpawnRequest{Body: m.cartBody(), Max: m.MaxCarts()})
	m.hzCarts = call(RoleHazmatCart, model.SpawnRequest{
		Body: model.BodySpec{Carry: 4, Move: 2, Ratio: true}, Max: m.MaxHazmatCarts(), Prespawn: 1,
	})
	m.hazmats = call(RoleHazmat, model.SpawnRequest{
		Body:           model.BodySpec{Work: 24, Carry: 12, Move: 12},
		Max:            m.MaxHazmats(),
		Prespawn:       1,
		Boosts:         []string{BoostRepair},
		AllowUnboosted: true,
	})
	m.mem.HazmatsLastTick = len(m.hazmats)
}

func (m *MasonMission) Actions(now uint64) {
	m.now = now
	for _, a := range m.masons {
		if len(m.hostiles) > 0 || m.emergency() {
			m.warMasonActions(a)
		} else {
			m.masonActions(a)
		}
	}
	for _, a := range m.hazmats {
		m.hazmatActions(a)
	}
	for _, a := range m.carts {
		m.cartActions(a, m.masons)
	}
	refill := append(append([]model.Agent(nil), m.hazmats...), m.masons...)
	for _, a := range m.hzCarts {
		m.cartActions(a, refill)
	}
	if m.risk.Endangered() && len(m.hostiles) == 0 {
		if low, ok := m.risk.Lowest(); ok {
			for _, t := range m.site.Structures(model.KindTower) {
				if !m.fired.Reserve(now, t.ID) {
					continue
				}
				m.check(t.ID, "tower repair", m.site.TowerRepair(t.ID, low.ID))
			}
		}
	}
}

// check logs an action rejection. Out of range is the normal travel state.
func (m *MasonMission) check(who, action string, st model.Status) {
	if st == model.OK || st == model.ErrNotInRange {
		return
	}
	m.logger.Printf("MASON: %s %s: %s (%s)", who, action, st, m.site.Name())
}

func lowestHits(ss []*model.Structure) (*model.Structure, bool) {
	var best *model.Structure
	for _, s := range ss {
		if best == nil || s.Hits < best.Hits {
			best = s
		}
	}
	return best, best != nil
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 || a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
