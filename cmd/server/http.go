package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"colonyctl.ai/internal/persistence/indexdb"
	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/loop"
	"colonyctl.ai/internal/sim/colony/operation"
	"colonyctl.ai/internal/sim/tuning"
	"colonyctl.ai/internal/transport/observer"
)

func openIndex(siteDir string, tune tuning.Tuning) (*indexdb.SQLiteIndex, error) {
	idx, err := indexdb.OpenSQLite(filepath.Join(siteDir, "index", "site.sqlite"))
	if err != nil {
		return nil, err
	}
	if err := idx.UpsertTuning(tune); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// stateResponse is served by /admin/v1/state.
type stateResponse struct {
	Site   string                `json:"site"`
	Tick   uint64                `json:"tick"`
	Loop   loop.Stats            `json:"loop"`
	Index  *indexdb.QueueStats   `json:"index,omitempty"`
	Report *operation.TickReport `json:"report,omitempty"`
}

func newMux(l *loop.Loop, idx *indexdb.SQLiteIndex, params protocol.SiteParams, reportEvery int, enableAdmin bool, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, l, idx)
	})

	if !enableAdmin {
		logger.Printf("admin endpoints disabled (CC_ENABLE_ADMIN_HTTP=false)")
		return mux
	}
	// Local-only admin endpoints (do not affect simulation determinism).
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := stateResponse{
			Site: l.SiteName(),
			Tick: l.CurrentTick(),
			Loop: l.Stats(),
		}
		if idx != nil {
			st := idx.Stats()
			resp.Index = &st
		}
		if rep, ok := l.LatestReport(); ok {
			resp.Report = &rep
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	})
	obsSrv := observer.NewServer(l, params, logger)
	obsSrv.SetDefaultEveryTicks(reportEvery)
	mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	return mux
}

// writeMetrics emits a minimal Prometheus exposition.
func writeMetrics(rw http.ResponseWriter, l *loop.Loop, idx *indexdb.SQLiteIndex) {
	site := l.SiteName()
	st := l.Stats()

	fmt.Fprintf(rw, "# HELP colonyctl_site_tick Current site tick.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_site_tick gauge\n")
	fmt.Fprintf(rw, "colonyctl_site_tick{site=%q} %d\n", site, l.CurrentTick())

	fmt.Fprintf(rw, "# HELP colonyctl_loop_ticks_total Ticks stepped since start.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_loop_ticks_total counter\n")
	fmt.Fprintf(rw, "colonyctl_loop_ticks_total{site=%q} %d\n", site, st.Ticks)

	fmt.Fprintf(rw, "# HELP colonyctl_commands_total Operator commands applied or rejected.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_commands_total counter\n")
	fmt.Fprintf(rw, "colonyctl_commands_total{site=%q,result=%q} %d\n", site, "accepted", st.Commands-st.Rejected)
	fmt.Fprintf(rw, "colonyctl_commands_total{site=%q,result=%q} %d\n", site, "rejected", st.Rejected)

	fmt.Fprintf(rw, "# HELP colonyctl_dropped_total Messages dropped under backpressure.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_dropped_total counter\n")
	fmt.Fprintf(rw, "colonyctl_dropped_total{site=%q,queue=%q} %d\n", site, "snapshot", st.DroppedSnapshots)
	fmt.Fprintf(rw, "colonyctl_dropped_total{site=%q,queue=%q} %d\n", site, "report", st.DroppedReports)

	fmt.Fprintf(rw, "# HELP colonyctl_observers Connected observer sessions.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_observers gauge\n")
	fmt.Fprintf(rw, "colonyctl_observers{site=%q} %d\n", site, st.Subscribers)

	if rep, ok := l.LatestReport(); ok {
		fmt.Fprintf(rw, "# HELP colonyctl_ramparts_at_risk Ramparts whose hits are below incoming damage.\n")
		fmt.Fprintf(rw, "# TYPE colonyctl_ramparts_at_risk gauge\n")
		fmt.Fprintf(rw, "colonyctl_ramparts_at_risk{site=%q} %d\n", site, rep.AtRisk)

		fmt.Fprintf(rw, "# HELP colonyctl_required_repair_rate Repair rate needed to hold every threatened rampart.\n")
		fmt.Fprintf(rw, "# TYPE colonyctl_required_repair_rate gauge\n")
		fmt.Fprintf(rw, "colonyctl_required_repair_rate{site=%q} %d\n", site, rep.RequiredRate)

		fmt.Fprintf(rw, "# HELP colonyctl_work_orders Open work orders.\n")
		fmt.Fprintf(rw, "# TYPE colonyctl_work_orders gauge\n")
		fmt.Fprintf(rw, "colonyctl_work_orders{site=%q} %d\n", site, rep.WorkOrders)
	}

	if idx == nil {
		return
	}
	qs := idx.Stats()
	fmt.Fprintf(rw, "# HELP colonyctl_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "colonyctl_index_queue_depth %d\n", qs.QueueDepth)

	fmt.Fprintf(rw, "# HELP colonyctl_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "colonyctl_index_queue_capacity %d\n", qs.QueueCapacity)

	fmt.Fprintf(rw, "# HELP colonyctl_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE colonyctl_index_dropped_total counter\n")
	fmt.Fprintf(rw, "colonyctl_index_dropped_total{kind=%q} %d\n", "tick", qs.DropTickTotal)
	fmt.Fprintf(rw, "colonyctl_index_dropped_total{kind=%q} %d\n", "audit", qs.DropAuditTotal)
	fmt.Fprintf(rw, "colonyctl_index_dropped_total{kind=%q} %d\n", "snapshot", qs.DropSnapshotTotal)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
