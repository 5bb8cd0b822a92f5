// Package loop owns a simulated site and its operation and advances them on a
// ticker. All site and operation state is touched only from the loop goroutine;
// other goroutines talk to it through channels.
package loop

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync/atomic"
	"time"

	"colonyctl.ai/internal/persistence/snapshot"
	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/operation"
	"colonyctl.ai/internal/sim/colony/simsite"
)

type Config struct {
	TickRateHz         int
	SnapshotEveryTicks uint64
	// SnapshotDir is reported back to SNAPSHOT commands; the sink does the writing.
	SnapshotDir string
	Seed        int64
	TuningHash  string
}

type TickLogger interface {
	WriteTick(entry operation.TickReport) error
}

type AuditLogger interface {
	WriteAudit(entry operation.AuditEntry) error
}

type CommandRequest struct {
	Cmd  protocol.CommandMsg
	Resp chan protocol.CommandResultMsg
}

type SubscribeRequest struct {
	SessionID  string
	Out        chan []byte
	EveryTicks int
	Audits     bool
}

type subscriber struct {
	out        chan []byte
	everyTicks uint64
	audits     bool
}

// Stats are loop counters safe to read from any goroutine.
type Stats struct {
	Ticks            uint64
	Commands         uint64
	Rejected         uint64
	DroppedSnapshots uint64
	DroppedReports   uint64
	Subscribers      int64
}

type Loop struct {
	cfg    Config
	site   *simsite.World
	op     *operation.Operation
	logger *log.Logger

	commands chan CommandRequest
	join     chan SubscribeRequest
	leave    chan string
	stop     chan struct{}
	done     chan struct{}

	subs map[string]*subscriber

	tickLoggers  []TickLogger
	auditLoggers []AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1

	tick   atomic.Uint64
	latest atomic.Pointer[operation.TickReport]

	ticks            atomic.Uint64
	commandsSeen     atomic.Uint64
	rejected         atomic.Uint64
	droppedSnapshots atomic.Uint64
	droppedReports   atomic.Uint64
	subscribers      atomic.Int64
}

func New(cfg Config, site *simsite.World, op *operation.Operation, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 5
	}
	l := &Loop{
		cfg:      cfg,
		site:     site,
		op:       op,
		logger:   logger,
		commands: make(chan CommandRequest, 64),
		join:     make(chan SubscribeRequest, 64),
		leave:    make(chan string, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     map[string]*subscriber{},
	}
	l.tick.Store(site.Tick())
	return l
}

func (l *Loop) AddTickLogger(t TickLogger)                     { l.tickLoggers = append(l.tickLoggers, t) }
func (l *Loop) AddAuditLogger(a AuditLogger)                   { l.auditLoggers = append(l.auditLoggers, a) }
func (l *Loop) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { l.snapshotSink = ch }

func (l *Loop) Commands() chan<- CommandRequest { return l.commands }
func (l *Loop) Join() chan<- SubscribeRequest   { return l.join }
func (l *Loop) Leave() chan<- string            { return l.leave }

func (l *Loop) Config() Config      { return l.cfg }
func (l *Loop) SiteName() string    { return l.site.Name() }
func (l *Loop) CurrentTick() uint64 { return l.tick.Load() }

// LatestReport returns the report of the last completed tick.
func (l *Loop) LatestReport() (operation.TickReport, bool) {
	r := l.latest.Load()
	if r == nil {
		return operation.TickReport{}, false
	}
	return *r, true
}

func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:            l.ticks.Load(),
		Commands:         l.commandsSeen.Load(),
		Rejected:         l.rejected.Load(),
		DroppedSnapshots: l.droppedSnapshots.Load(),
		DroppedReports:   l.droppedReports.Load(),
		Subscribers:      l.subscribers.Load(),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	interval := time.Second / time.Duration(l.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []CommandRequest
	for {
		select {
		case <-ctx.Done():
			l.closeSubscribers()
			return ctx.Err()
		case <-l.stop:
			l.closeSubscribers()
			return nil
		case req := <-l.join:
			l.subscribe(req)
		case id := <-l.leave:
			l.unsubscribe(id)
		case req := <-l.commands:
			pending = append(pending, req)
		case <-ticker.C:
			l.step(pending)
			pending = pending[:0]
		}
	}
}

func (l *Loop) Stop() { close(l.stop) }

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// StepOnce advances a single tick with the same ordering as Run. It must not be
// called while Run is active.
func (l *Loop) StepOnce(cmds ...CommandRequest) operation.TickReport {
	return l.step(cmds)
}

// step applies queued commands at the tick boundary, advances the site, runs the
// operation and fans the result out.
func (l *Loop) step(cmds []CommandRequest) operation.TickReport {
	for _, req := range cmds {
		res := l.apply(req.Cmd)
		if req.Resp != nil {
			select {
			case req.Resp <- res:
			default:
			}
		}
	}

	for _, ld := range l.site.Advance() {
		l.logger.Printf("SITE: threat %s landed at %s, %d structures destroyed (%s)", ld.Threat.ID, ld.Threat.Pos, len(ld.Destroyed), l.site.Name())
	}
	now := l.site.Tick()
	rep := l.op.Tick(now)
	audits := l.op.DrainAudits()

	for _, t := range l.tickLoggers {
		if err := t.WriteTick(rep); err != nil {
			l.logger.Printf("tick log: %v", err)
		}
	}
	for _, a := range l.auditLoggers {
		for _, e := range audits {
			if err := a.WriteAudit(e); err != nil {
				l.logger.Printf("audit log: %v", err)
				break
			}
		}
	}

	l.broadcast(rep, audits)

	if l.snapshotSink != nil && l.cfg.SnapshotEveryTicks > 0 && now%l.cfg.SnapshotEveryTicks == 0 {
		l.emitSnapshot(l.Snapshot("periodic"))
	}

	l.latest.Store(&rep)
	l.tick.Store(now)
	l.ticks.Add(1)
	return rep
}

func (l *Loop) emitSnapshot(snap snapshot.SnapshotV1) bool {
	select {
	case l.snapshotSink <- snap:
		return true
	default:
		// Drop snapshot if sink is backed up.
		l.droppedSnapshots.Add(1)
		return false
	}
}

// Snapshot captures the resumable state at the current tick.
func (l *Loop) Snapshot(reason string) snapshot.SnapshotV1 {
	structures, orders := l.site.Export()
	return snapshot.SnapshotV1{
		Header:      snapshot.Header{Version: snapshot.Version, SiteID: l.site.Name(), Tick: l.site.Tick()},
		Seed:        l.cfg.Seed,
		Level:       l.site.Level(),
		TickRate:    l.cfg.TickRateHz,
		TuningHash:  l.cfg.TuningHash,
		Structures:  structures,
		WorkOrders:  orders,
		Memory:      l.op.ExportMemory(),
		SavedReason: reason,
	}
}

// Restore loads snap into the site and the operation. Call before Run.
func (l *Loop) Restore(snap snapshot.SnapshotV1) {
	l.site.Restore(snap.Header.Tick, snap.Structures, snap.WorkOrders)
	if snap.Level > 0 {
		l.site.SetLevel(snap.Level)
	}
	l.op.ImportMemory(snap.Memory)
	l.op.DrainAudits()
	l.tick.Store(snap.Header.Tick)
	l.logger.Printf("resumed %s at tick %d", l.site.Name(), snap.Header.Tick)
}

func (l *Loop) subscribe(req SubscribeRequest) {
	every := uint64(1)
	if req.EveryTicks > 1 {
		every = uint64(req.EveryTicks)
	}
	if _, ok := l.subs[req.SessionID]; !ok {
		l.subscribers.Add(1)
	}
	l.subs[req.SessionID] = &subscriber{out: req.Out, everyTicks: every, audits: req.Audits}
}

func (l *Loop) unsubscribe(id string) {
	if _, ok := l.subs[id]; !ok {
		return
	}
	delete(l.subs, id)
	l.subscribers.Add(-1)
}

func (l *Loop) closeSubscribers() {
	for id := range l.subs {
		l.unsubscribe(id)
	}
}

func (l *Loop) broadcast(rep operation.TickReport, audits []operation.AuditEntry) {
	if len(l.subs) == 0 {
		return
	}
	msg := protocol.ReportMsg{
		Type:            protocol.TypeReport,
		ProtocolVersion: protocol.Version,
		Report:          rep,
		Overlay:         l.op.Overlay(),
	}
	plain, err := json.Marshal(msg)
	if err != nil {
		l.logger.Printf("report encode: %v", err)
		return
	}
	withAudits := plain
	if len(audits) > 0 {
		msg.Audits = audits
		if b, err := json.Marshal(msg); err == nil {
			withAudits = b
		}
	}
	for _, s := range l.subs {
		if rep.Tick%s.everyTicks != 0 {
			continue
		}
		b := plain
		if s.audits {
			b = withAudits
		}
		if !sendLatest(s.out, b) {
			l.droppedReports.Add(1)
		}
	}
}

// sendLatest delivers b, evicting the oldest queued message when the channel is
// full. It reports false when a message was dropped.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return false
}
