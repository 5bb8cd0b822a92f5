package protocol

import (
	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/operation"
)

// SUBSCRIBE (client -> server). First message on the observer connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryTicks thins the report stream; 0 or 1 sends every tick.
	EveryTicks int  `json:"every_ticks,omitempty"`
	Audits     bool `json:"audits,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	Site            string     `json:"site"`
	Tick            uint64     `json:"tick"`
	SiteParams      SiteParams `json:"site_params"`
}

type SiteParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	Level      int    `json:"level"`
	Seed       int64  `json:"seed"`
	Radius     int    `json:"radius"`
	Tuning     string `json:"tuning_digest,omitempty"`
}

// REPORT (server -> client), once per tick.
type ReportMsg struct {
	Type            string                 `json:"type"`
	ProtocolVersion string                 `json:"protocol_version"`
	Report          operation.TickReport   `json:"report"`
	Audits          []operation.AuditEntry `json:"audits,omitempty"`
	Overlay         []layout.Marker        `json:"overlay,omitempty"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Command         string `json:"command"`

	// MOVE_LAYOUT
	Center   *[2]int `json:"center,omitempty"`
	Rotation int     `json:"rotation,omitempty"`
	// SHOW_LAYOUT
	Show bool   `json:"show,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// COMMAND_RESULT (server -> client)
type CommandResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Accepted        bool            `json:"accepted"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Tick            uint64          `json:"tick"`
	Markers         []layout.Marker `json:"markers,omitempty"`
	SnapshotPath    string          `json:"snapshot_path,omitempty"`
}

// Rejected builds a failed COMMAND_RESULT for cmd.
func Rejected(cmd CommandMsg, tick uint64, code, msg string) CommandResultMsg {
	return CommandResultMsg{
		Type:            TypeCommandResult,
		ProtocolVersion: Version,
		ID:              cmd.ID,
		Code:            code,
		Message:         msg,
		Tick:            tick,
	}
}
