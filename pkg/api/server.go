package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/types"
)

// Server is the reference timer authority: it tracks each user's timer
// set, ticks running timers server-side, and pushes update frames to
// every socket that user has open. One instance backs the
// reconciliation client's integration tests and the serve command.
type Server struct {
	mu    sync.Mutex
	users map[string]*userState

	httpSrv *http.Server
	stopCh  chan struct{}
	logger  zerolog.Logger
}

type userState struct {
	timers map[string]*types.ServerTimer
	order  []string
	conns  map[*websocket.Conn]struct{}
}

// NewServer creates an empty authority server
func NewServer() *Server {
	return &Server{
		users:  make(map[string]*userState),
		stopCh: make(chan struct{}),
		logger: log.WithComponent("api"),
	}
}

// Handler returns the server's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/timers/command", s.handleCommand)
	mux.HandleFunc("/v1/timers/ws", s.handleSocket)
	return mux
}

// Start serves HTTP on addr and begins the tick loop. Blocks until
// Stop.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	go s.tickLoop()

	s.logger.Info().Str("addr", addr).Msg("timer authority listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	close(s.stopCh)
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(ctx)
	}
}

func (s *Server) user(id string) *userState {
	u, ok := s.users[id]
	if !ok {
		u = &userState{
			timers: make(map[string]*types.ServerTimer),
			conns:  make(map[*websocket.Conn]struct{}),
		}
		s.users[id] = u
	}
	return u
}

// handleCommand is the point-to-point command endpoint.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd types.TimerCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if cmd.UserID == "" || cmd.TimerID == "" {
		http.Error(w, "userId and timerId required", http.StatusBadRequest)
		return
	}

	changed := s.applyCommand(cmd)
	if changed != nil {
		s.pushUpdate(cmd.UserID, []types.ServerTimer{*changed})
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyCommand mutates one user's timer set and returns the changed
// record, or nil for a delete or unknown pause.
func (s *Server) applyCommand(cmd types.TimerCommand) *types.ServerTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(cmd.UserID)

	switch cmd.Action {
	case types.CommandStart:
		t, ok := u.timers[cmd.TimerID]
		if !ok {
			t = &types.ServerTimer{ID: cmd.TimerID}
			u.timers[cmd.TimerID] = t
			u.order = append(u.order, cmd.TimerID)
		}
		t.Label = cmd.Label
		t.Duration = cmd.Duration
		t.Remaining = cmd.Remaining
		if t.Remaining <= 0 {
			t.Remaining = cmd.Duration
		}
		t.Status = types.TimerRunning
		out := *t
		return &out

	case types.CommandPause:
		t, ok := u.timers[cmd.TimerID]
		if !ok {
			return nil
		}
		t.Remaining = cmd.Remaining
		t.Status = types.TimerPaused
		out := *t
		return &out

	case types.CommandDelete:
		delete(u.timers, cmd.TimerID)
		for i, id := range u.order {
			if id == cmd.TimerID {
				u.order = append(u.order[:i], u.order[i+1:]...)
				break
			}
		}
		return nil

	default:
		s.logger.Warn().Str("action", string(cmd.Action)).Msg("unknown command action")
		return nil
	}
}

// handleSocket upgrades to the duplex reconciliation channel.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The widget embeds on arbitrary origins.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	s.mu.Lock()
	u := s.user(userID)
	u.conns[conn] = struct{}{}
	init := types.ServerFrame{Type: types.FrameInit, Timers: s.snapshotLocked(u)}
	s.mu.Unlock()

	s.writeFrame(conn, init)
	s.logger.Debug().Str("user_id", userID).Msg("socket connected")

	defer func() {
		s.mu.Lock()
		delete(u.conns, conn)
		s.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Debug().Str("user_id", userID).Msg("socket disconnected")
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var frame types.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed client frame")
			continue
		}

		switch frame.Type {
		case types.FramePing:
			s.writeFrame(conn, types.ServerFrame{Type: types.FramePong})
		default:
			s.logger.Debug().Str("type", string(frame.Type)).Msg("dropping unknown client frame")
		}
	}
}

func (s *Server) snapshotLocked(u *userState) []types.ServerTimer {
	out := make([]types.ServerTimer, 0, len(u.order))
	for _, id := range u.order {
		if t, ok := u.timers[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

func (s *Server) writeFrame(conn *websocket.Conn, frame types.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug().Err(err).Msg("socket write failed")
	}
}

// pushUpdate sends the changed subset to every socket the user has
// open.
func (s *Server) pushUpdate(userID string, timers []types.ServerTimer) {
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(u.conns))
	for c := range u.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	frame := types.ServerFrame{Type: types.FrameUpdate, Timers: timers}
	for _, c := range conns {
		s.writeFrame(c, frame)
	}
}

// tickLoop decrements every running timer once per second and pushes
// the changed subset to connected sockets.
func (s *Server) tickLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Server) tick() {
	type push struct {
		userID string
		timers []types.ServerTimer
	}
	var pushes []push

	s.mu.Lock()
	for userID, u := range s.users {
		var changed []types.ServerTimer
		for _, id := range u.order {
			t, ok := u.timers[id]
			if !ok || t.Status != types.TimerRunning {
				continue
			}
			t.Remaining--
			if t.Remaining <= 0 {
				t.Remaining = 0
				t.Status = types.TimerCompleted
			}
			changed = append(changed, *t)
		}
		if len(changed) > 0 {
			pushes = append(pushes, push{userID: userID, timers: changed})
		}
	}
	s.mu.Unlock()

	for _, p := range pushes {
		s.pushUpdate(p.userID, p.timers)
	}
}

// Timers returns a copy of one user's current timer set, oldest first.
func (s *Server) Timers(userID string) []types.ServerTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	return s.snapshotLocked(u)
}
