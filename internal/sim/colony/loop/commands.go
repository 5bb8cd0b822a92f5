package loop

import (
	"colonyctl.ai/internal/persistence/snapshot"
	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
)

// apply runs one operator command against the operation. Commands land at the tick
// boundary, so their audit entries go out with the next tick.
func (l *Loop) apply(cmd protocol.CommandMsg) protocol.CommandResultMsg {
	l.commandsSeen.Add(1)
	now := l.site.Tick()
	res := protocol.CommandResultMsg{
		Type:            protocol.TypeCommandResult,
		ProtocolVersion: protocol.Version,
		ID:              cmd.ID,
		Accepted:        true,
		Tick:            now,
	}
	reject := func(code, msg string) protocol.CommandResultMsg {
		l.rejected.Add(1)
		l.logger.Printf("command %s %s rejected: %s", cmd.ID, cmd.Command, msg)
		return protocol.Rejected(cmd, now, code, msg)
	}

	switch cmd.Command {
	case protocol.CmdMoveLayout:
		if cmd.Center == nil {
			return reject(protocol.ErrBadRequest, "missing center")
		}
		center := geom.Pos{X: cmd.Center[0], Y: cmd.Center[1]}
		if err := l.op.MoveLayout(center, cmd.Rotation); err != nil {
			return reject(protocol.ErrInvalidTarget, err.Error())
		}
	case protocol.CmdShowLayout:
		kind := model.Kind(cmd.Kind)
		if kind != "" && !knownKind(kind) {
			return reject(protocol.ErrBadRequest, "unknown kind "+cmd.Kind)
		}
		if cmd.Show && !l.op.Planner().Ready() {
			return reject(protocol.ErrNoLayout, "layout not ready")
		}
		res.Markers = l.op.ShowLayout(cmd.Show, kind)
	case protocol.CmdInvalidateCache:
		l.op.InvalidateCache()
	case protocol.CmdSnapshot:
		if l.snapshotSink == nil {
			return reject(protocol.ErrInternal, "snapshots disabled")
		}
		if !l.emitSnapshot(l.Snapshot("command")) {
			return reject(protocol.ErrBusy, "snapshot writer busy")
		}
		if l.cfg.SnapshotDir != "" {
			res.SnapshotPath = snapshot.Path(l.cfg.SnapshotDir, now)
		}
	default:
		return reject(protocol.ErrUnknownCommand, "unknown command "+cmd.Command)
	}
	return res
}

func knownKind(k model.Kind) bool {
	for _, c := range model.ConstructionOrder {
		if c == k {
			return true
		}
	}
	return false
}
