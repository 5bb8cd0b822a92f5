package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colonyctl.ai/internal/protocol"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// commandCmd sends one operator command over the observer websocket and prints
// the result, e.g. `admin command MOVE_LAYOUT -center 20,22 -rotation 1`.
func commandCmd(args []string) {
	fs := flag.NewFlagSet("command", flag.ExitOnError)
	wsURL := fs.String("url", "ws://127.0.0.1:8080/admin/v1/observer/ws", "observer websocket url")
	center := fs.String("center", "", "MOVE_LAYOUT center as x,y")
	rotation := fs.Int("rotation", 0, "MOVE_LAYOUT rotation")
	show := fs.Bool("show", true, "SHOW_LAYOUT visibility")
	kind := fs.String("kind", "", "SHOW_LAYOUT structure kind filter")
	timeout := fs.Duration("timeout", 10*time.Second, "overall timeout")

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin command <MOVE_LAYOUT|SHOW_LAYOUT|INVALIDATE_CACHE|SNAPSHOT> [flags]")
		os.Exit(2)
	}
	name := strings.ToUpper(strings.TrimSpace(args[0]))
	_ = fs.Parse(args[1:])

	cmd := protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		ID:              uuid.NewString(),
		Command:         name,
	}
	switch name {
	case protocol.CmdMoveLayout:
		c, err := parseCenter(*center)
		if err != nil {
			fmt.Fprintln(os.Stderr, "center:", err)
			os.Exit(2)
		}
		cmd.Center = &c
		cmd.Rotation = *rotation
	case protocol.CmdShowLayout:
		cmd.Show = *show
		cmd.Kind = *kind
	}

	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()
	deadline := time.Now().Add(*timeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	// Subscribe thinly; only the command result matters here.
	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, EveryTicks: 1000}); err != nil {
		fmt.Fprintln(os.Stderr, "subscribe:", err)
		os.Exit(1)
	}
	if err := conn.WriteJSON(cmd); err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		os.Exit(1)
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeCommandResult {
			continue
		}
		var res protocol.CommandResultMsg
		if err := json.Unmarshal(msg, &res); err != nil || res.ID != cmd.ID {
			continue
		}
		fmt.Println(string(msg))
		if !res.Accepted {
			os.Exit(1)
		}
		return
	}
}

func parseCenter(s string) ([2]int, error) {
	var c [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return c, fmt.Errorf("want x,y got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return c, err
		}
		c[i] = v
	}
	return c, nil
}
