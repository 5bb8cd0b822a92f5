package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"colonyctl.ai/internal/persistence/indexdb"
	persistlog "colonyctl.ai/internal/persistence/log"
	"colonyctl.ai/internal/persistence/snapshot"
	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/loop"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/colony/operation"
	"colonyctl.ai/internal/sim/colony/simsite"
	"colonyctl.ai/internal/sim/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		siteID     = flag.String("site", "site_1", "site name")
		seed       = flag.Int64("seed", 1337, "site seed (used only when starting a fresh site)")
		level      = flag.Int("level", 8, "site level (used only when starting a fresh site)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (ticks/audits/snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		buildRate    = flag.Int("build_rate", 500, "work order progress added by the site each tick")
		threatEvery  = flag.Uint64("raid_threat_every", 3000, "mean ticks between area threats (0 disables)")
		hostileEvery = flag.Uint64("raid_hostile_every", 2000, "mean ticks between hostile waves (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	siteDir := filepath.Join(*dataDir, "sites", *siteID)
	_ = os.MkdirAll(siteDir, 0o755)
	snapDir := filepath.Join(siteDir, "snapshots")

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if tune.ProtocolVersion != protocol.Version {
		logger.Fatalf("tuning protocol_version %q does not match server %q", tune.ProtocolVersion, protocol.Version)
	}
	digest := tuning.Digest(tune)

	var snap *snapshot.SnapshotV1
	if snapshotToLoad != "" {
		s, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if s.Header.SiteID != "" && s.Header.SiteID != *siteID {
			logger.Fatalf("snapshot site mismatch: flag=%s snap=%s", *siteID, s.Header.SiteID)
		}
		if s.TuningHash != "" && s.TuningHash != digest {
			logger.Printf("snapshot tuning digest %s differs from current %s", s.TuningHash, digest)
		}
		*seed = s.Seed
		*level = s.Level
		snap = &s
	}

	site := simsite.New(siteConfig(*siteID, *seed, *level, *buildRate, tune))
	op := operation.New(operation.ConfigFromTuning(tune), operation.Deps{
		Site:    site,
		Threats: site,
		Spawner: site,
		Seed:    simsite.Seed{},
		Dice:    &sched.HashDice{Seed: *seed, Tick: site.Tick},
		Logger:  log.New(os.Stdout, "[op] ", log.LstdFlags|log.Lmicroseconds),
	}, site.Mem)

	l := loop.New(loop.Config{
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: uint64(tune.SnapshotEveryTicks),
		SnapshotDir:        snapDir,
		Seed:               *seed,
		TuningHash:         digest,
	}, site, op, log.New(os.Stdout, "[loop] ", log.LstdFlags|log.Lmicroseconds))

	if snap != nil {
		l.Restore(*snap)
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), l.CurrentTick())
	}
	simsite.Raids{ThreatEvery: *threatEvery, HostileEvery: *hostileEvery}.Install(site)

	// Optional read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = openIndex(siteDir, tune)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	tickLog := persistlog.NewTickLogger(siteDir)
	auditLog := persistlog.NewAuditLogger(siteDir)
	defer tickLog.Close()
	defer auditLog.Close()
	l.AddTickLogger(tickLog)
	l.AddAuditLogger(auditLog)
	if idx != nil {
		l.AddTickLogger(idx)
		l.AddAuditLogger(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	l.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-snapCh:
				path := snapshot.Path(snapDir, s.Header.Tick)
				if err := snapshot.WriteSnapshot(path, s); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, s)
				}
			}
		}
	}()

	go func() {
		if err := l.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	params := protocol.SiteParams{
		TickRateHz: tune.TickRateHz,
		Level:      *level,
		Seed:       *seed,
		Radius:     operation.ConfigFromTuning(tune).Layout.Radius,
		Tuning:     digest,
	}
	mux := newMux(l, idx, params, tune.ReportEveryTicks, envBool("CC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()), logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s site=%s seed=%d level=%d", *addr, *siteID, *seed, *level)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func siteConfig(name string, seed int64, level, buildRate int, tune tuning.Tuning) simsite.Config {
	falloff := make([]model.DamageBucket, 0, len(tune.Threat.Falloff))
	for _, b := range tune.Threat.Falloff {
		falloff = append(falloff, model.DamageBucket{MaxRange: b.MaxRange, Damage: b.Damage})
	}
	return simsite.Config{
		Name:           name,
		Level:          level,
		Seed:           seed,
		BoundaryMargin: tune.Site.BoundaryMargin,
		Falloff:        falloff,
		StorageIncome:  50,
		BuildRate:      buildRate,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
