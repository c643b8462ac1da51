// Package server hosts the grassland scene over websocket. One authoritative
// scene runs on a fixed tick; sessions stream input in and receive frames,
// events and control notices out. The first session that asks to pilot drives
// the character, everyone else observes until the pilot leaves.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"glade/internal/config"
	"glade/internal/protocol"
	"glade/internal/scene"
	"glade/internal/sim"
)

const commandBuffer = 64

// Server owns the scene, its tick loop and the connected sessions.
type Server struct {
	cfg    *config.Config
	logger *log.Logger
	scene  *scene.Scene

	upgrader websocket.Upgrader
	seq      atomic.Uint64
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[*session]struct{}
	pilot    *session

	// commands carries work onto the tick goroutine; it is the only way
	// to touch the scene from a session handler.
	commands      chan func()
	ticks         uint64
	snapshotEvery uint64

	tickFactory tickerFactory
	now         timeSource
	wg          sync.WaitGroup
}

// New builds the scene from cfg and a server around it. A nil cfg uses the
// defaults, a nil logger the standard one.
func New(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	sc, err := scene.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		scene:  sc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions:      make(map[*session]struct{}),
		commands:      make(chan func(), commandBuffer),
		snapshotEvery: uint64(cfg.Server.SnapshotEvery),
		tickFactory:   defaultTickerFactory(),
		now:           time.Now,
	}, nil
}

// Handler returns the HTTP surface: the websocket endpoint and a health
// probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Run starts the tick loop and serves HTTP until the context ends, then
// shuts both down.
func (s *Server) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.startLoop(loopCtx)

	srv := &http.Server{Addr: s.cfg.Server.Listen, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("http shutdown: %v", err)
		}
		s.closeSessions()
		err := <-errCh
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		// The listener failed before the context did.
		cancel()
		s.wg.Wait()
		return err
	}
}

// ApplyConfig folds the live-tunable part of a reloaded configuration into
// the running scene and tells every session about it.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	tuning := config.TuningFrom(cfg)
	s.enqueue(func() {
		s.scene.ApplyTuning(tuning)
		s.broadcast(protocol.MessageTuning, tuning)
	})
}

// enqueue hands work to the tick goroutine without blocking the caller.
func (s *Server) enqueue(cmd func()) {
	select {
	case s.commands <- cmd:
	default:
		s.logger.Printf("command queue full, dropping command")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	sess := newSession(s, conn)

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.Server.MaxSessions {
		s.mu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session limit reached")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.logger.Printf("session %d connected from %s", sess.id, r.RemoteAddr)
	go sess.writePump()
	go sess.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	count := len(s.sessions)
	piloted := s.pilot != nil
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","sessions":%d,"piloted":%t}`+"\n", count, piloted)
}

// handleMessage dispatches one decoded envelope from a session's read pump.
func (s *Server) handleMessage(sess *session, env protocol.Envelope) {
	switch env.Type {
	case protocol.MessageHello:
		var hello protocol.Hello
		if err := env.DecodePayload(&hello); err != nil {
			sess.sendError(fmt.Sprintf("bad hello: %v", err))
			return
		}
		s.registerHello(sess, hello)
	case protocol.MessageInput:
		var in protocol.Input
		if err := env.DecodePayload(&in); err != nil {
			sess.sendError(fmt.Sprintf("bad input: %v", err))
			return
		}
		if !s.isPilot(sess) {
			return
		}
		s.applyInput(in)
	case protocol.MessageStart:
		if !s.requirePilot(sess) {
			return
		}
		s.enqueue(s.scene.Start)
	case protocol.MessageStop:
		if !s.requirePilot(sess) {
			return
		}
		s.enqueue(s.scene.Stop)
	case protocol.MessageSetVisible:
		var req protocol.SetVisible
		if err := env.DecodePayload(&req); err != nil {
			sess.sendError(fmt.Sprintf("bad setVisible: %v", err))
			return
		}
		if !s.requirePilot(sess) {
			return
		}
		s.enqueue(func() {
			grass, trees := s.scene.SetVisibleCounts(req.Grass, req.Trees)
			s.broadcast(protocol.MessageVisible, protocol.Visible{Grass: grass, Trees: trees})
		})
	case protocol.MessageTuning:
		var tuning protocol.Tuning
		if err := env.DecodePayload(&tuning); err != nil {
			sess.sendError(fmt.Sprintf("bad tuning: %v", err))
			return
		}
		if !s.requirePilot(sess) {
			return
		}
		s.enqueue(func() {
			s.scene.ApplyTuning(tuning)
			s.broadcast(protocol.MessageTuning, tuning)
		})
	default:
		sess.sendError(fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// registerHello records the session's role wish, hands out the pilot seat if
// it is free and queues the scene init bundle. The bundle is built on the
// tick goroutine so it never races a step.
func (s *Server) registerHello(sess *session, hello protocol.Hello) {
	s.mu.Lock()
	sess.name = hello.Name
	sess.wantsPilot = hello.Mode != protocol.ModeObserver
	if sess.wantsPilot && s.pilot == nil {
		s.pilot = sess
	}
	s.sendControlLocked()
	s.mu.Unlock()

	s.enqueue(func() {
		sess.sendMessage(protocol.MessageSceneInit, protocol.NewSceneInit(s.scene, s.cfg.Server.TickRate))
	})
}

// applyInput feeds a pilot input packet into the shared input state. The
// input state is safe for concurrent use, so this runs straight on the read
// pump goroutine.
func (s *Server) applyInput(in protocol.Input) {
	input := s.scene.Input()
	for _, k := range in.Keys {
		key, ok := movementKey(k.Key)
		if !ok {
			continue
		}
		input.SetKey(key, k.Down)
	}
	if in.Jump {
		input.RequestJump()
	}
	if in.PointerDX != 0 || in.PointerDY != 0 {
		input.AddPointerDelta(in.PointerDX, in.PointerDY)
	}
	if in.TouchDX != 0 || in.TouchDY != 0 {
		input.AddTouchDelta(in.TouchDX, in.TouchDY)
	}
}

func movementKey(name string) (sim.Key, bool) {
	switch k := sim.Key(name); k {
	case sim.KeyForward, sim.KeyBack, sim.KeyLeft, sim.KeyRight:
		return k, true
	}
	return "", false
}

func (s *Server) isPilot(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pilot == sess
}

// requirePilot is isPilot with an error reply, for messages where silently
// ignoring an observer would leave them confused.
func (s *Server) requirePilot(sess *session) bool {
	if s.isPilot(sess) {
		return true
	}
	sess.sendError("only the pilot can do that")
	return false
}

// broadcast encodes one envelope and queues it on every session. Sessions
// whose buffer is full are dropped rather than allowed to stall the tick.
func (s *Server) broadcast(t protocol.MessageType, payload interface{}) {
	env, err := protocol.NewEnvelope(t, s.seq.Add(1), payload)
	if err != nil {
		s.logger.Printf("broadcast %s: %v", t, err)
		return
	}
	data, err := protocol.Encode(env)
	if err != nil {
		s.logger.Printf("broadcast %s: %v", t, err)
		return
	}
	s.mu.Lock()
	for sess := range s.sessions {
		if !sess.queueLocked(data) {
			s.dropLocked(sess, "send buffer full")
		}
	}
	s.mu.Unlock()
}

func (s *Server) remove(sess *session, reason string) {
	s.mu.Lock()
	s.dropLocked(sess, reason)
	s.mu.Unlock()
}

// dropLocked removes a session and, when it held the pilot seat, passes the
// seat to the oldest remaining session that asked to pilot. Caller holds
// s.mu.
func (s *Server) dropLocked(sess *session, reason string) {
	if _, ok := s.sessions[sess]; !ok {
		return
	}
	delete(s.sessions, sess)
	close(sess.send)
	s.logger.Printf("session %d closed: %s", sess.id, reason)
	if s.pilot != sess {
		return
	}
	s.pilot = nil
	for cand := range s.sessions {
		if !cand.wantsPilot {
			continue
		}
		if s.pilot == nil || cand.id < s.pilot.id {
			s.pilot = cand
		}
	}
	if s.pilot == nil {
		// Nobody left to drive. Park the character and drop whatever
		// input is still buffered.
		s.enqueue(s.scene.Stop)
	}
	s.sendControlLocked()
}

// sendControlLocked tells every session its current role. Queueing is best
// effort here; a session with a full buffer is cleaned up by the next
// broadcast instead of recursively inside this walk.
func (s *Server) sendControlLocked() {
	piloted := s.pilot != nil
	for sess := range s.sessions {
		role := protocol.ModeObserver
		if sess == s.pilot {
			role = protocol.ModePilot
		}
		env, err := protocol.NewEnvelope(protocol.MessageControl, s.seq.Add(1), protocol.Control{Role: role, Piloted: piloted})
		if err != nil {
			continue
		}
		data, err := protocol.Encode(env)
		if err != nil {
			continue
		}
		sess.queueLocked(data)
	}
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	for sess := range s.sessions {
		delete(s.sessions, sess)
		close(sess.send)
	}
	s.pilot = nil
	s.mu.Unlock()
}
