// Package websocket serves the JSON wire protocol over WebSocket connections.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/gameserver"
)

// Hub is the request dispatcher behind every connection.
type Hub interface {
	Connect() *gameserver.Mailbox
	Disconnect(id string)
	HandleMessage(id string, raw []byte)
	RoomCount() int
}

// Server accepts WebSocket connections and bridges them to the Hub.
type Server struct {
	cfg    config.WebSocketConfig
	limits config.LimitsConfig
	hub    Hub
	logger *zap.Logger

	upgrader websocket.Upgrader
	http     *http.Server

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a WebSocket server.
//
// Precondition: hub and logger must be non-nil.
func NewServer(cfg config.WebSocketConfig, limits config.LimitsConfig, hub Hub, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		limits: limits,
		hub:    hub,
		logger: logger,
		ready:  make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes: the upgrade endpoint and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	mux.HandleFunc("/healthz", s.serveHealth)
	return mux
}

// Start listens on the configured address and serves until Stop is called.
//
// Postcondition: Returns nil after a clean Stop, or the listen/serve error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("websocket server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.cfg.Path),
	)
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down. Open WebSocket connections are hijacked
// and end when the hub closes their mailboxes.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("websocket shutdown", zap.Error(err))
	}
}

// Addr returns the bound listener address once Start is listening.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"rooms":  s.hub.RoomCount(),
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	box := s.hub.Connect()
	logger := s.logger.With(
		zap.String("conn_id", box.ID()),
		zap.String("remote_addr", r.RemoteAddr),
	)
	go s.writePump(conn, box, logger)
	s.readPump(conn, box.ID(), logger)
}

// readPump feeds inbound frames to the hub until the connection fails,
// then disconnects the participant.
func (s *Server) readPump(conn *websocket.Conn, id string, logger *zap.Logger) {
	defer s.hub.Disconnect(id)

	limiter := rate.NewLimiter(rate.Limit(s.limits.MessagesPerSecond), s.limits.Burst)
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if !limiter.Allow() {
			logger.Debug("rate limited, frame dropped")
			continue
		}
		s.hub.HandleMessage(id, data)
	}
}

// writePump is the connection's only writer. It exits when the mailbox is
// closed or a write fails, and always closes the socket.
func (s *Server) writePump(conn *websocket.Conn, box *gameserver.Mailbox, logger *zap.Logger) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-box.Out():
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("encoding outbound message", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
