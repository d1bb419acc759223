package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/userdata"
	"github.com/cgast/atwork/pkg/workflow"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin
	},
}

// Server is the inspector HTTP + WebSocket server.
type Server struct {
	bus       events.EventBus
	store     userdata.Store
	logger    *slog.Logger
	mux       *http.ServeMux
	startTime time.Time
}

// New creates a new inspector server.
func New(bus events.EventBus, store userdata.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bus:       bus,
		store:     store,
		logger:    logger,
		mux:       http.NewServeMux(),
		startTime: time.Now(),
	}

	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/userdata", s.handleUserdata)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on port until ctx is done.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("inspector: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// StartAsync starts the server in a goroutine and returns immediately.
func (s *Server) StartAsync(ctx context.Context, port int) {
	go func() {
		if err := s.Start(ctx, port); err != nil {
			s.logger.Error("inspector stopped", "error", err)
		}
	}()
}

// handleWebSocket replays the retained history, then streams new events
// until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	// reader: handles pongs and notices the close
	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for _, ev := range s.bus.History(time.Time{}) {
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	history := s.bus.History(time.Time{})
	counts := make(map[events.EventType]int)
	for _, ev := range history {
		counts[ev.Type]++
	}

	status := map[string]any{
		"uptime":   time.Since(s.startTime).String(),
		"events":   len(history),
		"runs":     counts[events.EventWorkflowStart],
		"parsed":   counts[events.EventTaskParsed],
		"rejected": counts[events.EventTaskRejected],
	}
	var runID string
	if err := s.store.Get(userdata.ScopeSession, workflow.KeyRunID, &runID); err == nil {
		status["last_run"] = runID
	}
	writeJSON(w, status)
}

// handleUserdata returns every scope, or one with ?scope=.
func (s *Server) handleUserdata(w http.ResponseWriter, r *http.Request) {
	scopes := userdata.Scopes
	if scope := r.URL.Query().Get("scope"); scope != "" {
		scopes = []string{scope}
	}

	result := make(map[string]map[string]any)
	for _, scope := range scopes {
		items, err := s.store.List(scope)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if len(items) > 0 {
			result[scope] = items
		}
	}
	writeJSON(w, result)
}

// handleHistory returns retained events, optionally one run's with ?run=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if run := r.URL.Query().Get("run"); run != "" {
		if mb, ok := s.bus.(*events.MemoryBus); ok {
			writeJSON(w, nonNil(mb.Run(run)))
			return
		}
		var filtered []events.Event
		for _, ev := range s.bus.History(time.Time{}) {
			if ev.RunID == run {
				filtered = append(filtered, ev)
			}
		}
		writeJSON(w, nonNil(filtered))
		return
	}
	writeJSON(w, nonNil(s.bus.History(time.Time{})))
}

// handleRuns returns the recorded workflow results.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(userdata.ScopeHistory)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, items)
}

func nonNil(evs []events.Event) []events.Event {
	if evs == nil {
		return []events.Event{}
	}
	return evs
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}
