package operation

import (
	"colonyctl.ai/internal/sim/colony/feature/mission"
	"colonyctl.ai/internal/sim/colony/logic/geom"
)

// TickReport is the per-tick record fanned out to the tick log, the index and
// observers.
type TickReport struct {
	Tick  uint64 `json:"tick"`
	Site  string `json:"site"`
	Level int    `json:"level"`
	Ready bool   `json:"ready"`

	Hostiles     int   `json:"hostiles"`
	Threats      int   `json:"threats"`
	AtRisk       int   `json:"at_risk"`
	RequiredRate int64 `json:"required_rate"`

	StepKind    string    `json:"step_kind,omitempty"`
	StepSkipped string    `json:"step_skipped,omitempty"`
	Placed      *geom.Pos `json:"placed,omitempty"`
	Repairs     int       `json:"repairs"`
	WorkOrders  int       `json:"work_orders"`

	Populations map[string]mission.Population `json:"populations,omitempty"`
	Claims      map[string]string             `json:"claims,omitempty"`
	StandPoints map[string]geom.Pos           `json:"stand_points,omitempty"`
	Warnings    []string                      `json:"warnings,omitempty"`
}

// AuditEntry records a change the operation made to the site or its layout.
type AuditEntry struct {
	Tick   uint64    `json:"tick"`
	Site   string    `json:"site"`
	Action string    `json:"action"`
	Kind   string    `json:"kind,omitempty"`
	Pos    *geom.Pos `json:"pos,omitempty"`
	Target string    `json:"target,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

const (
	AuditWorkOrderPlaced   = "WORK_ORDER_PLACED"
	AuditShelterPlaced     = "SHELTER_PLACED"
	AuditBlockerDemolished = "BLOCKER_DEMOLISHED"
	AuditLayoutMoved       = "LAYOUT_MOVED"
	AuditCacheInvalidated  = "CACHE_INVALIDATED"
	AuditMemoryImported    = "MEMORY_IMPORTED"
)
