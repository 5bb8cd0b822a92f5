// Command watch is a terminal viewer for a running site: it follows the observer
// stream, draws the planned layout and the latest report, and sends a few
// operator commands from the keyboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colonyctl.ai/internal/protocol"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8080/admin/v1/observer/ws", "observer websocket url")
	every := flag.Int("every", 1, "draw every N ticks")
	kind := flag.String("kind", "", "layout overlay kind filter (empty shows every kind)")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, EveryTicks: *every, Audits: true}
	if err := conn.WriteJSON(sub); err != nil {
		fmt.Fprintln(os.Stderr, "subscribe:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	w := &watcher{conn: conn, screen: screen, kind: *kind, show: true}
	w.send(w.showLayout())
	if err := w.run(); err != nil {
		screen.Fini()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type watcher struct {
	conn   *websocket.Conn
	screen tcell.Screen
	view   view

	kind string
	show bool
}

func (w *watcher) run() error {
	msgs := make(chan []byte, 64)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := w.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			msgs <- msg
		}
	}()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := w.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	w.view.draw(w.screen)
	for {
		select {
		case err := <-readErr:
			return fmt.Errorf("connection closed: %w", err)
		case msg := <-msgs:
			if w.view.apply(msg) {
				w.view.draw(w.screen)
			}
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				w.screen.Sync()
				w.view.draw(w.screen)
			case *tcell.EventKey:
				if !w.key(ev) {
					return nil
				}
			}
		}
	}
}

// key handles one key press and reports false when the viewer should exit.
func (w *watcher) key(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}
	switch ev.Rune() {
	case 'q':
		return false
	case 'l':
		w.show = !w.show
		w.send(w.showLayout())
	case 'i':
		w.send(newCommand(protocol.CmdInvalidateCache))
	case 's':
		w.send(newCommand(protocol.CmdSnapshot))
	}
	return true
}

func (w *watcher) showLayout() protocol.CommandMsg {
	cmd := newCommand(protocol.CmdShowLayout)
	cmd.Show = w.show
	cmd.Kind = w.kind
	return cmd
}

func (w *watcher) send(cmd protocol.CommandMsg) {
	_ = w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := w.conn.WriteJSON(cmd); err != nil {
		w.view.status = "send: " + err.Error()
	}
}

func newCommand(name string) protocol.CommandMsg {
	return protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		ID:              uuid.NewString(),
		Command:         name,
	}
}
