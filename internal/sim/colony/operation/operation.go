// Package operation is the site-level composition root. It owns the layout
// planner, the construction scheduler and the active missions, and drives them in
// a fixed order every tick.
package operation

import (
	"fmt"
	"io"
	"log"
	"sort"

	"colonyctl.ai/internal/sim/colony/feature/construction"
	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/feature/mission"
	"colonyctl.ai/internal/sim/colony/logic/claim"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/model"
)

// Deps are the external collaborators of one site.
type Deps struct {
	Site    model.Site
	Threats model.ThreatAssessor
	Spawner model.Spawner
	Seed    model.SeedAnalyzer
	Dice    sched.Dice
	Logger  *log.Logger
}

type Operation struct {
	cfg  Config
	deps Deps
	mem  *model.SiteMemory

	// fired is shared by the scheduler and every mission so a tower acts once per tick.
	fired     *claim.Registry
	planner   *layout.Planner
	scheduler *construction.Scheduler
	missions  []mission.Mission

	ready  bool
	step   construction.StepResult
	towers int
	report TickReport
	audits []AuditEntry
}

// New builds an operation over mem. A nil mem starts from an empty record; the
// caller shares mem with whatever backs unit memory on the site.
func New(cfg Config, deps Deps, mem *model.SiteMemory) *Operation {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Dice == nil {
		deps.Dice = &sched.HashDice{Seed: 1, Tick: deps.Site.Tick}
	}
	if mem == nil {
		mem = model.NewSiteMemory()
	}
	o := &Operation{cfg: cfg, deps: deps, mem: mem, fired: claim.NewRegistry()}
	o.build()
	return o
}

func (o *Operation) build() {
	d := o.deps
	o.planner = layout.New(d.Site, d.Threats, d.Seed, &o.mem.Layout, o.cfg.Layout, d.Logger)
	o.scheduler = construction.New(d.Site, d.Threats, o.planner, &o.mem.Layout, o.fired, d.Dice, o.cfg.Construction, d.Logger)
	o.missions = nil
}

func (o *Operation) Name() string { return o.deps.Site.Name() }

func (o *Operation) Planner() *layout.Planner { return o.planner }

func (o *Operation) Memory() *model.SiteMemory { return o.mem }

func (o *Operation) Missions() []mission.Mission {
	return append([]mission.Mission(nil), o.missions...)
}

// Ready reports whether the last Init found a usable layout.
func (o *Operation) Ready() bool { return o.ready }

// Init makes sure the layout exists and composes the missions. When the layout
// cannot be fixed yet the whole tick is skipped.
func (o *Operation) Init(now uint64) {
	o.report = TickReport{Tick: now, Site: o.Name(), Level: o.deps.Site.Level()}
	o.step = construction.StepResult{}
	o.towers = 0

	o.ready = o.planner.Ensure()
	if !o.ready {
		o.deps.Logger.Printf("OPERATION: no layout for %s, skipping tick %d", o.Name(), now)
		return
	}
	o.composeMissions()
	for _, m := range o.missions {
		m.Init(now)
	}
}

func (o *Operation) composeMissions() {
	if o.hasMission("mason") {
		return
	}
	if _, ok := o.deps.Site.Storage(); !ok {
		return
	}
	d := o.deps
	mm := mission.NewMasonMission(d.Site, d.Threats, d.Spawner, o.mem.Mission("mason"), o.fired, d.Dice, o.cfg.Mason, d.Logger)
	o.missions = append(o.missions, mm)
	d.Logger.Printf("OPERATION: mason mission started in %s", o.Name())
}

func (o *Operation) hasMission(name string) bool {
	for _, m := range o.missions {
		if m.Name() == name {
			return true
		}
	}
	return false
}

// Run advances one tick: one scheduler step, tower upkeep, then every mission's
// role call followed by every mission's actions.
func (o *Operation) Run(now uint64) {
	if !o.ready {
		return
	}
	o.step = o.scheduler.Step(now)
	if o.step.Placed {
		pos := o.step.Pos
		o.audit(now, AuditEntry{Action: AuditWorkOrderPlaced, Kind: string(o.step.Kind), Pos: &pos})
	}
	o.towers = o.scheduler.TowerRepair(now)

	for _, m := range o.missions {
		m.RoleCall(now)
	}
	for _, m := range o.missions {
		m.Actions(now)
	}
}

// Finalize lets missions close the tick, drops memory of units that no longer exist
// and assembles the tick report.
func (o *Operation) Finalize(now uint64) {
	if o.ready {
		for _, m := range o.missions {
			m.Finalize(now)
		}
	}
	o.collectUnitMemory()
	o.buildReport(now)
}

// Tick is Init, Run and Finalize in one call.
func (o *Operation) Tick(now uint64) TickReport {
	o.Init(now)
	o.Run(now)
	o.Finalize(now)
	return o.report
}

func (o *Operation) collectUnitMemory() {
	for id := range o.mem.Units {
		if _, ok := o.deps.Site.Unit(id); !ok {
			delete(o.mem.Units, id)
		}
	}
}

func (o *Operation) buildReport(now uint64) {
	r := &o.report
	r.Ready = o.ready
	r.Threats = len(o.deps.Site.Threats())
	if o.deps.Threats != nil {
		r.Hostiles = o.deps.Threats.HostileCount()
	}
	r.WorkOrders = len(o.deps.Site.WorkOrders())
	if o.step.Kind != "" {
		r.StepKind = string(o.step.Kind)
		r.StepSkipped = o.step.Skipped
	}
	if o.step.Placed {
		pos := o.step.Pos
		r.Placed = &pos
	}
	r.Repairs = o.step.Repairs + o.towers

	if !o.ready {
		return
	}
	for _, m := range o.missions {
		mr := m.Report()
		r.AtRisk += mr.AtRisk
		r.RequiredRate += mr.RequiredRate
		r.Warnings = append(r.Warnings, mr.Warnings...)
		for role, p := range mr.Populations {
			if r.Populations == nil {
				r.Populations = map[string]mission.Population{}
			}
			r.Populations[role] = p
		}
		for k, v := range mr.Claims {
			if r.Claims == nil {
				r.Claims = map[string]string{}
			}
			r.Claims[k] = v
		}
		for k, v := range mr.StandPoints {
			if r.StandPoints == nil {
				r.StandPoints = map[string]geom.Pos{}
			}
			r.StandPoints[k] = v
		}
		for _, p := range mr.Shelters {
			pos := p
			o.audit(now, AuditEntry{Action: AuditShelterPlaced, Kind: string(model.KindRampart), Pos: &pos, Reason: mr.Mission})
		}
		for _, id := range mr.Demolished {
			o.audit(now, AuditEntry{Action: AuditBlockerDemolished, Target: id, Reason: mr.Mission})
		}
	}
}

// Report is the report assembled by the last Finalize.
func (o *Operation) Report() TickReport { return o.report }

// InvalidateCache forwards to every mission.
func (o *Operation) InvalidateCache() {
	for _, m := range o.missions {
		m.InvalidateCache()
	}
	o.audit(o.deps.Site.Tick(), AuditEntry{Action: AuditCacheInvalidated})
}

// MoveLayout relocates the layout; the map is regenerated on the next tick.
func (o *Operation) MoveLayout(center geom.Pos, rotation int) error {
	if !geom.InBounds(center) {
		return fmt.Errorf("center %s out of bounds", center)
	}
	o.planner.Move(center, rotation)
	o.audit(o.deps.Site.Tick(), AuditEntry{
		Action: AuditLayoutMoved,
		Pos:    &center,
		Reason: fmt.Sprintf("rotation=%d", geom.NormalizeRotation(rotation)),
	})
	return nil
}

// ShowLayout toggles the overlay and returns the markers to draw for kind, or for
// every kind when kind is empty. Hiding returns nil.
func (o *Operation) ShowLayout(show bool, kind model.Kind) []layout.Marker {
	o.mem.Layout.ShowLayout = show
	o.mem.Layout.ShowKind = string(kind)
	if !show || !o.planner.Ready() {
		return nil
	}
	return o.planner.Markers(kind)
}

// Overlay returns the markers of the current overlay setting.
func (o *Operation) Overlay() []layout.Marker {
	l := o.mem.Layout
	if !l.ShowLayout || !o.planner.Ready() {
		return nil
	}
	return o.planner.Markers(model.Kind(l.ShowKind))
}

// ExportMemory returns a copy of the persistent record, detached from live state.
func (o *Operation) ExportMemory() model.SiteMemory {
	return cloneMemory(o.mem)
}

// ImportMemory replaces the persistent record in place, keeping the pointer shared
// with the site, and rebuilds every component over it.
func (o *Operation) ImportMemory(mem model.SiteMemory) {
	*o.mem = cloneMemory(&mem)
	o.build()
	o.audit(o.deps.Site.Tick(), AuditEntry{Action: AuditMemoryImported})
}

// DrainAudits returns and clears the audit entries recorded since the last call.
func (o *Operation) DrainAudits() []AuditEntry {
	out := o.audits
	o.audits = nil
	return out
}

func (o *Operation) audit(now uint64, e AuditEntry) {
	e.Tick = now
	e.Site = o.Name()
	o.audits = append(o.audits, e)
}

func cloneMemory(src *model.SiteMemory) model.SiteMemory {
	out := model.SiteMemory{
		Layout:   src.Layout,
		Missions: map[string]*model.MissionMemory{},
		Units:    map[string]*model.UnitMemory{},
	}
	l := &out.Layout
	if src.Layout.LayoutMap != nil {
		l.LayoutMap = map[model.Kind][]geom.Coord{}
		for k, v := range src.Layout.LayoutMap {
			l.LayoutMap[k] = append([]geom.Coord(nil), v...)
		}
	}
	l.RepairIndices = copyMap(src.Layout.RepairIndices)
	l.NextCheck = copyMap(src.Layout.NextCheck)

	for name, m := range src.Missions {
		if m == nil {
			continue
		}
		c := *m
		if m.NukeData != nil {
			c.NukeData = &model.NukeData{HazmatPositions: copyMap(m.NukeData.HazmatPositions)}
		}
		out.Missions[name] = &c
	}
	for id, u := range src.Units {
		if u == nil {
			continue
		}
		c := *u
		c.Claims = copyMap(u.Claims)
		out.Units[id] = &c
	}
	return out
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UnitIDs lists the units with persisted memory, sorted.
func (o *Operation) UnitIDs() []string {
	ids := make([]string, 0, len(o.mem.Units))
	for id := range o.mem.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
