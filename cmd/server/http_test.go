package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/logic/sched"
	"colonyctl.ai/internal/sim/colony/loop"
	"colonyctl.ai/internal/sim/colony/operation"
	"colonyctl.ai/internal/sim/colony/simsite"
	"colonyctl.ai/internal/sim/tuning"
)

func testLoop(t *testing.T) *loop.Loop {
	t.Helper()
	site := simsite.New(siteConfig("t1", 7, 8, 1000, tuning.Defaults()))
	op := operation.New(operation.ConfigFromTuning(tuning.Defaults()), operation.Deps{
		Site:    site,
		Threats: site,
		Spawner: site,
		Seed:    simsite.Seed{},
		Dice:    sched.FixedDice(0.99),
	}, site.Mem)
	l := loop.New(loop.Config{TickRateHz: 10}, site, op, nil)
	l.StepOnce()
	l.StepOnce()
	return l
}

func get(mux http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	return rw
}

func TestMux_HealthAndMetrics(t *testing.T) {
	l := testLoop(t)
	mux := newMux(l, nil, protocol.SiteParams{}, 1, false, log.New(io.Discard, "", 0))

	if rw := get(mux, "/healthz", "127.0.0.1:1"); rw.Code != 200 || rw.Body.String() != "ok" {
		t.Fatalf("healthz code=%d body=%q", rw.Code, rw.Body.String())
	}
	rw := get(mux, "/metrics", "127.0.0.1:1")
	body := rw.Body.String()
	for _, want := range []string{
		`colonyctl_site_tick{site="t1"} 2`,
		`colonyctl_loop_ticks_total{site="t1"} 2`,
		`colonyctl_work_orders{site="t1"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "colonyctl_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}
	if rw := get(mux, "/admin/v1/state", "127.0.0.1:1"); rw.Code != http.StatusNotFound {
		t.Fatalf("admin disabled but state code=%d", rw.Code)
	}
}

func TestMux_AdminState(t *testing.T) {
	l := testLoop(t)
	idx, err := openIndex(filepath.Join(t.TempDir(), "site"), tuning.Defaults())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()
	mux := newMux(l, idx, protocol.SiteParams{}, 1, true, log.New(io.Discard, "", 0))

	if rw := get(mux, "/admin/v1/state", "10.0.0.8:4000"); rw.Code != http.StatusForbidden {
		t.Fatalf("remote state code=%d", rw.Code)
	}
	rw := get(mux, "/admin/v1/state", "127.0.0.1:4000")
	if rw.Code != 200 {
		t.Fatalf("state code=%d", rw.Code)
	}
	var st stateResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Site != "t1" || st.Tick != 2 || st.Report == nil || st.Index == nil || st.Index.QueueCapacity == 0 {
		t.Fatalf("state=%+v", st)
	}
	if !strings.Contains(get(mux, "/metrics", "127.0.0.1:1").Body.String(), "colonyctl_index_queue_capacity") {
		t.Fatalf("index metrics missing")
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("CC_TEST_FLAG", "false")
	if envBool("CC_TEST_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("CC_TEST_FLAG", "nope")
	if !envBool("CC_TEST_FLAG", true) {
		t.Fatalf("expected default on parse error")
	}
}
