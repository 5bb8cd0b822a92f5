// Package observer serves the loopback-only operator websocket: a report stream
// plus the operator command channel.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/loop"
)

// Loop is the part of the site loop the observer talks to.
type Loop interface {
	Commands() chan<- loop.CommandRequest
	Join() chan<- loop.SubscribeRequest
	Leave() chan<- string
	Done() <-chan struct{}
	SiteName() string
	CurrentTick() uint64
}

type Server struct {
	loop   Loop
	params protocol.SiteParams
	log    *log.Logger

	upgrader websocket.Upgrader

	commandTimeout time.Duration
	defaultEvery   int
}

func NewServer(l Loop, params protocol.SiteParams, logger *log.Logger) *Server {
	return &Server{
		loop:   l,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		commandTimeout: 5 * time.Second,
		defaultEvery:   1,
	}
}

// SetDefaultEveryTicks sets the report thinning used when SUBSCRIBE omits every_ticks.
func (s *Server) SetDefaultEveryTicks(n int) {
	if n > 0 {
		s.defaultEvery = n
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg, s.defaultEvery)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		sid := uuid.NewString()
		reportOut := make(chan []byte, 8)
		ctrlOut := make(chan []byte, 64)

		select {
		case s.loop.Join() <- loop.SubscribeRequest{SessionID: sid, Out: reportOut, EveryTicks: sub.EveryTicks, Audits: sub.Audits}:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case s.loop.Leave() <- sid:
			default:
				// Loop is stopping; nothing else to do.
			}
		}()

		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       sid,
			Site:            s.loop.SiteName(),
			Tick:            s.loop.CurrentTick(),
			SiteParams:      s.params,
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}
		if s.log != nil {
			s.log.Printf("observer %s subscribed every=%d audits=%v", sid, sub.EveryTicks, sub.Audits)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case <-s.loop.Done():
					closeWith(conn, websocket.CloseGoingAway, "stopping")
					writeErr <- nil
					return
				case b = <-ctrlOut:
				case b = <-reportOut:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}()

		// Reader loop: COMMANDs and SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeSubscribe:
				sub, ok := decodeSubscribe(msg, s.defaultEvery)
				if !ok {
					continue
				}
				select {
				case s.loop.Join() <- loop.SubscribeRequest{SessionID: sid, Out: reportOut, EveryTicks: sub.EveryTicks, Audits: sub.Audits}:
				default:
					// Drop updates under load; the client may resend.
				}
			case protocol.TypeCommand:
				res := s.command(ctx, msg)
				b, err := json.Marshal(res)
				if err != nil {
					continue
				}
				select {
				case ctrlOut <- b:
				case <-ctx.Done():
				}
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// command forwards one COMMAND to the loop and waits for its result.
func (s *Server) command(ctx context.Context, raw []byte) protocol.CommandResultMsg {
	cmd, err := protocol.DecodeCommand(raw)
	tick := s.loop.CurrentTick()
	if err != nil {
		var id struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &id)
		cmd.ID = id.ID
		return protocol.Rejected(cmd, tick, protocol.ErrProtoBadRequest, err.Error())
	}
	if cmd.ProtocolVersion != protocol.Version {
		return protocol.Rejected(cmd, tick, protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	resp := make(chan protocol.CommandResultMsg, 1)
	select {
	case s.loop.Commands() <- loop.CommandRequest{Cmd: cmd, Resp: resp}:
	case <-s.loop.Done():
		return protocol.Rejected(cmd, tick, protocol.ErrStopping, "loop stopping")
	default:
		return protocol.Rejected(cmd, tick, protocol.ErrBusy, "command queue full")
	}

	timer := time.NewTimer(s.commandTimeout)
	defer timer.Stop()
	select {
	case res := <-resp:
		return res
	case <-s.loop.Done():
		return protocol.Rejected(cmd, tick, protocol.ErrStopping, "loop stopping")
	case <-ctx.Done():
		return protocol.Rejected(cmd, tick, protocol.ErrStopping, "connection closing")
	case <-timer.C:
		return protocol.Rejected(cmd, tick, protocol.ErrBusy, "command timed out")
	}
}

func decodeSubscribe(msg []byte, defaultEvery int) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := protocol.Validate(protocol.TypeSubscribe, msg); err != nil {
		return sub, false
	}
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = defaultEvery
	}
	return sub, true
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
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
