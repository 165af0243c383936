package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.repoaudit/pkg/logging"
)

// Message kinds sent to WebSocket clients.
const (
	KindSnapshot = "snapshot"
	KindEvent    = "event"
)

const writeWait = 5 * time.Second

// Message is one frame written to a WebSocket client. The first
// frame of every connection is a snapshot of the dashboard.
type Message struct {
	Kind      string         `json:"kind"`
	Event     *AuditEvent    `json:"event,omitempty"`
	Dashboard *DashboardData `json:"dashboard,omitempty"`
}

type wsClient struct {
	send chan []byte
}

// Server streams audit events over WebSocket and serves the
// aggregated run state.
//
//	GET /events   WebSocket stream of Message frames
//	GET /summary  collector stats and dashboard as JSON
//	GET /health   liveness probe
type Server struct {
	addr      string
	collector *EventCollector
	dashboard *DashboardData
	logger    logging.Logger
	upgrader  websocket.Upgrader
	mux       *http.ServeMux

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	server  *http.Server
}

// NewServer creates a server bound to addr that follows
// collector. Events are forwarded as soon as they are emitted,
// even before Start is called.
func NewServer(
	addr string, collector *EventCollector, logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	s := &Server{
		addr:      addr,
		collector: collector,
		dashboard: BuildDashboardData(collector),
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[*wsClient]struct{}),
	}

	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/summary", s.handleSummary)
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	collector.OnEvent(func(event AuditEvent) {
		s.dashboard.UpdateFromEvent(event)
		data, err := json.Marshal(Message{Kind: KindEvent, Event: &event})
		if err != nil {
			return
		}
		s.broadcast(data)
	})
	return s
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler { return s.mux }

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	s.logger.Info("monitor listening", logging.StringField("addr", s.addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.ErrorField(err))
		return
	}
	defer func() { _ = conn.Close() }()

	client := &wsClient{send: make(chan []byte, 64)}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(Message{
		Kind: KindSnapshot, Dashboard: s.dashboard.Snapshot(),
	})
	if err != nil {
		return
	}

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case data := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Stats     CollectorStats `json:"stats"`
		Dashboard *DashboardData `json:"dashboard"`
	}{s.collector.Stats(), s.dashboard.Snapshot()})
}

func (s *Server) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Debug("monitor client too slow, event dropped")
		}
	}
}
