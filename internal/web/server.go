// Package web provides an HTTP status server for the ir-learner daemon.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/ir-learner/internal/status"
)

const (
	defaultPushInterval = time.Second
	writeWait           = 5 * time.Second
)

// Server serves the status page, JSON, metrics and a websocket feed.
type Server struct {
	httpServer   *http.Server
	tracker      *status.Tracker
	metrics      http.Handler
	pushInterval time.Duration
	log          *slog.Logger
	upgrader     websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithPushInterval sets how often /ws clients receive a snapshot.
func WithPushInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pushInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts ...Option) *Server {
	s := &Server{
		tracker:      tracker,
		pushInterval: defaultPushInterval,
		log:          slog.Default(),
		done:         make(chan struct{}),
		upgrader: websocket.Upgrader{
			// The page is served from the same device; any LAN origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server and ends websocket feeds,
// which http.Server does not track once hijacked.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Warn("render status page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleWS pushes a compact status document immediately and then every
// push interval until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go readPump(conn, gone)

	s.log.Debug("ws client connected", "remote_addr", r.RemoteAddr)
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, status.FormatCompactJSON(s.tracker.Snapshot())); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.log.Debug("ws write failed", "remote_addr", r.RemoteAddr, "error", err)
			}
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			s.log.Debug("ws client disconnected", "remote_addr", r.RemoteAddr)
			return
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}
	}
}

// readPump discards client frames so close frames are processed, and
// closes gone when the connection fails.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
