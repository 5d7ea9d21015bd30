package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/mover"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/rates"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

// Attacher hands a new viewer the current loaded set in step with the batch stream.
type Attacher interface {
	Attach(ctx context.Context, fn func(world.Snapshot)) error
	CurrentTick() uint64
}

// IntentSink receives movement keys from viewers.
type IntentSink interface {
	SetIntent(mover.Intent)
}

type Config struct {
	RunID       string
	Params      protocol.WorldParams
	QueueSize   int
	AllowRemote bool

	// MaxInputsPerSecond caps INPUT messages per viewer, counted in world ticks.
	MaxInputsPerSecond int
}

// Server streams paint/clear batches to websocket viewers. It is a terrainview.View.
type Server struct {
	cfg     Config
	world   Attacher
	intents IntentSink
	log     *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session

	kicked atomic.Uint64
}

type session struct {
	id   string
	out  chan []byte
	gone chan struct{}
	once sync.Once

	inputs rates.Window // reader goroutine only
}

func (s *session) kick() { s.once.Do(func() { close(s.gone) }) }

func NewServer(cfg Config, w Attacher, intents IntentSink, logger *log.Logger) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxInputsPerSecond <= 0 {
		cfg.MaxInputsPerSecond = 60
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		cfg:     cfg,
		world:   w,
		intents: intents,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Kicked counts viewers disconnected for falling behind.
func (s *Server) Kicked() uint64 { return s.kicked.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			RunID:           s.cfg.RunID,
			Tick:            s.world.CurrentTick(),
			WorldParams:     s.cfg.Params,
			Palette:         protocol.DefaultPalette(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := &session{
			id:   uuid.NewString(),
			out:  make(chan []byte, s.cfg.QueueSize),
			gone: make(chan struct{}),
		}
		hello := protocol.HelloMsg{
			Type:            protocol.TypeHello,
			ProtocolVersion: protocol.Version,
			SessionID:       sess.id,
			RunID:           s.cfg.RunID,
			WorldParams:     s.cfg.Params,
			Palette:         protocol.DefaultPalette(),
		}
		if err := writeJSON(conn, hello); err != nil {
			return
		}

		actx, acancel := context.WithTimeout(r.Context(), 5*time.Second)
		err = s.world.Attach(actx, func(snap world.Snapshot) {
			if len(snap.Chunks) > 0 {
				if b, err := json.Marshal(terrainview.PaintAll(snap.Tick, snap.Center, snap.Paints())); err == nil {
					sess.out <- b
				}
			}
			s.mu.Lock()
			s.sessions[sess.id] = sess
			s.mu.Unlock()
		})
		acancel()
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		s.log.Printf("viewer %s connected from %s", sess.id, r.RemoteAddr)
		defer func() {
			s.remove(sess)
			s.log.Printf("viewer %s disconnected", sess.id)
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case <-sess.gone:
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(time.Second))
					_ = conn.Close()
					writeErr <- nil
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: INPUT only.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleInput(sess, msg)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handleInput(sess *session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeInput {
		s.sendError(sess, protocol.ErrProtoBadRequest, "expected INPUT")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.sendError(sess, protocol.ErrProtoVersion, "bad protocol_version")
		return
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		s.sendError(sess, protocol.ErrProtoBadRequest, err.Error())
		return
	}
	window := uint64(s.cfg.Params.TickRateHz)
	if ok, cooldown := sess.inputs.Allow(s.world.CurrentTick(), window, s.cfg.MaxInputsPerSecond); !ok {
		s.sendError(sess, protocol.ErrBusy, fmt.Sprintf("input rate limited for %d ticks", cooldown))
		return
	}
	if s.intents != nil {
		s.intents.SetIntent(mover.Intent{Up: in.Up, Down: in.Down, Left: in.Left, Right: in.Right})
	}
}

func (s *Server) sendError(sess *session, code, message string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

// Apply broadcasts one batch: CLEAR first, then PAINT. A viewer whose queue is full is
// disconnected; skipping a message would leave its tile map wrong.
func (s *Server) Apply(b terrainview.Batch) error {
	var msgs [][]byte
	if m := terrainview.ClearMsg(b); m != nil {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		msgs = append(msgs, raw)
	}
	if m := terrainview.PaintMsg(b); m != nil {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		msgs = append(msgs, raw)
	}
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		for _, raw := range msgs {
			if !trySend(sess.out, raw) {
				delete(s.sessions, id)
				sess.kick()
				s.kicked.Add(1)
				s.log.Printf("viewer %s dropped: queue full at tick %d", id, b.Tick)
				break
			}
		}
	}
	return nil
}

// Close disconnects every viewer.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		delete(s.sessions, id)
		sess.kick()
	}
}

func (s *Server) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

func (s *Server) allowed(r *http.Request) bool {
	return s.cfg.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func trySend(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
		return false
	}
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
