// Package mission holds the work cells an operation drives each tick. A mission
// sizes its roles, then dispatches every live unit through exactly one behavior.
package mission

import "colonyctl.ai/internal/sim/colony/logic/geom"

// Mission is driven by the operation in the fixed order Init, RoleCall, Actions,
// then Finalize once every mission has acted.
type Mission interface {
	Name() string
	Init(now uint64)
	RoleCall(now uint64)
	Actions(now uint64)
	Finalize(now uint64)
	// InvalidateCache drops cached conditions so they are recomputed next tick.
	InvalidateCache()
	Report() Report
}

type Population struct {
	Desired int `json:"desired"`
	Live    int `json:"live"`
}

// Report summarizes one tick of a mission.
type Report struct {
	Mission      string                `json:"mission"`
	Populations  map[string]Population `json:"populations"`
	AtRisk       int                   `json:"at_risk"`
	RequiredRate int64                 `json:"required_rate"`
	Warnings     []string              `json:"warnings,omitempty"`
	Shelters     []geom.Pos            `json:"shelters,omitempty"`
	Demolished   []string              `json:"demolished,omitempty"`
	// Claims maps a support unit to the unit it services this tick.
	Claims map[string]string `json:"claims,omitempty"`
	// StandPoints maps a responder to the position it holds this tick.
	StandPoints map[string]geom.Pos `json:"stand_points,omitempty"`
}

func newReport(name string) Report {
	return Report{
		Mission:     name,
		Populations: map[string]Population{},
		Claims:      map[string]string{},
		StandPoints: map[string]geom.Pos{},
	}
}
