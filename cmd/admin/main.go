package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "colonyctl.ai/internal/persistence/log"
	"colonyctl.ai/internal/persistence/snapshot"
	"colonyctl.ai/internal/sim/colony/operation"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "command":
			commandCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "audits":
			auditsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	siteID := fs.String("site", "", "site name (optional; lists its snapshots)")
	_ = fs.Parse(args)

	if *siteID == "" {
		entries, err := os.ReadDir(filepath.Join(*dataDir, "sites"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.IsDir() {
				fmt.Println(e.Name())
			}
		}
		return
	}

	paths, err := snapshot.List(filepath.Join(*dataDir, "sites", *siteID, "snapshots"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

// inspectCmd prints a summary of one snapshot, or the latest one of a site.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	siteID := fs.String("site", "", "site name (used when -snapshot is empty)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	memory := fs.Bool("memory", false, "print the full site memory")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*siteID) == "" {
			fmt.Fprintln(os.Stderr, "missing -site or -snapshot")
			os.Exit(2)
		}
		path = snapshot.Latest(filepath.Join(*dataDir, "sites", *siteID, "snapshots"))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshots found")
			os.Exit(2)
		}
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	kinds := map[string]int{}
	for _, s := range snap.Structures {
		kinds[string(s.Kind)]++
	}
	out := struct {
		Path       string         `json:"path"`
		Site       string         `json:"site"`
		Tick       uint64         `json:"tick"`
		Seed       int64          `json:"seed"`
		Level      int            `json:"level"`
		TuningHash string         `json:"tuning_hash,omitempty"`
		Reason     string         `json:"reason,omitempty"`
		HasLayout  bool           `json:"has_layout"`
		Structures map[string]int `json:"structures"`
		WorkOrders int            `json:"work_orders"`
		Missions   int            `json:"missions"`
		Units      int            `json:"units"`
	}{
		Path:       path,
		Site:       snap.Header.SiteID,
		Tick:       snap.Header.Tick,
		Seed:       snap.Seed,
		Level:      snap.Level,
		TuningHash: snap.TuningHash,
		Reason:     snap.SavedReason,
		HasLayout:  snap.Memory.Layout.HasLayout,
		Structures: kinds,
		WorkOrders: len(snap.WorkOrders),
		Missions:   len(snap.Memory.Missions),
		Units:      len(snap.Memory.Units),
	}
	printJSON(out)
	if *memory {
		printJSON(snap.Memory)
	}
}

// auditsCmd scans the audit logs of a site, optionally filtered by action and tick.
func auditsCmd(args []string) {
	fs := flag.NewFlagSet("audits", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	siteID := fs.String("site", "", "site name (required)")
	action := fs.String("action", "", "action filter (optional)")
	since := fs.Uint64("since_tick", 0, "only entries at or after this tick")
	_ = fs.Parse(args)

	if strings.TrimSpace(*siteID) == "" {
		fmt.Fprintln(os.Stderr, "missing -site")
		os.Exit(2)
	}
	files, err := persistlog.Files(filepath.Join(*dataDir, "sites", *siteID, "audit"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		err := persistlog.ReadLines(f, func(line []byte) bool {
			var e operation.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return true
			}
			if e.Tick < *since || (*action != "" && e.Action != *action) {
				return true
			}
			printJSON(e)
			return true
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", f, err)
			os.Exit(1)
		}
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
