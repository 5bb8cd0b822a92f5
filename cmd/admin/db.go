package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	siteID := fs.String("site", "", "site name (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	tick := fs.Uint64("tick", 0, "tick filter (populations/warnings; defaults to latest)")
	action := fs.String("action", "", "action filter (audits)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "ticks"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*siteID) == "" {
			fmt.Fprintln(os.Stderr, "missing -site or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "sites", *siteID, "index", "site.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if (q == "populations" || q == "warnings") && *tick == 0 {
		if err := db.QueryRow(`SELECT COALESCE(MAX(tick),0) FROM ticks`).Scan(tick); err != nil {
			fmt.Fprintln(os.Stderr, "latest tick:", err)
			os.Exit(1)
		}
	}

	switch q {
	case "ticks":
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick         int64  `json:"tick"`
				Level        int    `json:"level"`
				Ready        bool   `json:"ready"`
				Hostiles     int    `json:"hostiles"`
				Threats      int    `json:"threats"`
				AtRisk       int    `json:"at_risk"`
				RequiredRate int64  `json:"required_rate"`
				StepKind     string `json:"step_kind,omitempty"`
				StepSkipped  string `json:"step_skipped,omitempty"`
				Repairs      int    `json:"repairs"`
				WorkOrders   int    `json:"work_orders"`
			}
			var stepKind, skipped sql.NullString
			err := rows.Scan(&r.Tick, &r.Level, &r.Ready, &r.Hostiles, &r.Threats, &r.AtRisk, &r.RequiredRate, &stepKind, &skipped, &r.Repairs, &r.WorkOrders)
			r.StepKind, r.StepSkipped = stepKind.String, skipped.String
			return r, err
		}, `SELECT tick,level,ready,hostiles,threats,at_risk,required_rate,step_kind,step_skipped,repairs,work_orders FROM ticks ORDER BY tick DESC LIMIT ?`, *limit)

	case "at_risk":
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick         int64 `json:"tick"`
				AtRisk       int   `json:"at_risk"`
				RequiredRate int64 `json:"required_rate"`
				Threats      int   `json:"threats"`
			}
			err := rows.Scan(&r.Tick, &r.AtRisk, &r.RequiredRate, &r.Threats)
			return r, err
		}, `SELECT tick,at_risk,required_rate,threats FROM ticks WHERE at_risk > 0 ORDER BY tick DESC LIMIT ?`, *limit)

	case "populations":
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick    int64  `json:"tick"`
				Role    string `json:"role"`
				Desired int    `json:"desired"`
				Live    int    `json:"live"`
			}
			err := rows.Scan(&r.Tick, &r.Role, &r.Desired, &r.Live)
			return r, err
		}, `SELECT tick,role,desired,live FROM populations WHERE tick=? ORDER BY role`, *tick)

	case "warnings":
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick    int64  `json:"tick"`
				Seq     int    `json:"seq"`
				Message string `json:"message"`
			}
			err := rows.Scan(&r.Tick, &r.Seq, &r.Message)
			return r, err
		}, `SELECT tick,seq,message FROM warnings WHERE tick=? ORDER BY seq`, *tick)

	case "audits":
		query := `SELECT tick,seq,action,kind,x,y,target,reason FROM audits ORDER BY tick DESC, seq DESC LIMIT ?`
		qargs := []any{*limit}
		if *action != "" {
			query = `SELECT tick,seq,action,kind,x,y,target,reason FROM audits WHERE action=? ORDER BY tick DESC, seq DESC LIMIT ?`
			qargs = []any{*action, *limit}
		}
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick   int64  `json:"tick"`
				Seq    int    `json:"seq"`
				Action string `json:"action"`
				Kind   string `json:"kind,omitempty"`
				X      *int64 `json:"x,omitempty"`
				Y      *int64 `json:"y,omitempty"`
				Target string `json:"target,omitempty"`
				Reason string `json:"reason,omitempty"`
			}
			var kind, target, reason sql.NullString
			var x, y sql.NullInt64
			err := rows.Scan(&r.Tick, &r.Seq, &r.Action, &kind, &x, &y, &target, &reason)
			r.Kind, r.Target, r.Reason = kind.String, target.String, reason.String
			if x.Valid && y.Valid {
				r.X, r.Y = &x.Int64, &y.Int64
			}
			return r, err
		}, query, qargs...)

	case "snapshots":
		queryRows(db, func(rows *sql.Rows) (any, error) {
			var r struct {
				Tick       int64  `json:"tick"`
				Path       string `json:"path"`
				Seed       int64  `json:"seed"`
				Level      int    `json:"level"`
				Structures int    `json:"structures"`
				WorkOrders int    `json:"work_orders"`
				Units      int    `json:"units"`
				Reason     string `json:"reason,omitempty"`
			}
			var reason sql.NullString
			err := rows.Scan(&r.Tick, &r.Path, &r.Seed, &r.Level, &r.Structures, &r.WorkOrders, &r.Units, &reason)
			r.Reason = reason.String
			return r, err
		}, `SELECT tick,path,seed,level,structures,work_orders,units,reason FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)

	case "tuning":
		var r struct {
			Digest    string `json:"digest"`
			UpdatedAt string `json:"updated_at"`
			JSON      string `json:"json"`
		}
		row := db.QueryRow(`SELECT t.digest,t.updated_at,t.json FROM tuning t JOIN meta m ON m.key='tuning_digest' AND m.value=t.digest`)
		if err := row.Scan(&r.Digest, &r.UpdatedAt, &r.JSON); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want ticks|at_risk|populations|warnings|audits|snapshots|tuning)")
		os.Exit(2)
	}
}

func queryRows(db *sql.DB, scan func(*sql.Rows) (any, error), query string, args ...any) {
	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
