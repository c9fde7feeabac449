// Package realtime serves the Cantas WebSocket endpoint: it authenticates
// connections, reads their event frames in order, dispatches them to the
// event table and fans broadcasts out to the connected clients.
//
// Inbound frames:
//
//	{"id": 1, "name": "card:patch", "args": [], "kwargs": {"id": "...", "title": "X"}}
//
// Outbound frames:
//
//	{"type": "ack", "id": 1, "result": ...}
//	{"type": "ack", "id": 1, "error": {"code": "not_found", "message": "..."}}
//	{"type": "event", "channel": "/card/<id>:update", "payload": {...}}
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/events"
	"github.com/dyluth/cantas/pkg/board"
)

const maxDecodeErrorsPerConn = 3

// Authenticator resolves the user of an upgrade request.
// *auth.Authenticator implements it.
type Authenticator interface {
	Authenticate(r *http.Request) (*board.Document, error)
}

// Server is the http.Handler of the WebSocket endpoint.
type Server struct {
	auth       Authenticator
	dispatcher *Dispatcher
	hub        *Hub
	logger     *slog.Logger
	ws         websocket.Handler
}

// NewServer creates the WebSocket endpoint.
func NewServer(authenticator Authenticator, dispatcher *Dispatcher, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		auth:       authenticator,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger.With("component", "realtime"),
	}
	s.ws = websocket.Handler(s.handleConn)
	return s
}

// ServeHTTP authenticates the request and upgrades it. Requests without a
// valid identity are rejected with 401 before the upgrade.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, err := s.auth.Authenticate(r)
	if err != nil {
		s.logger.Info("rejected connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	s.ws.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
}

func (s *Server) handleConn(conn *websocket.Conn) {
	defer conn.Close()

	user, _ := auth.UserFromContext(conn.Request().Context())
	session := newSession(&events.Conn{ID: uuid.NewString(), User: user}, newPeer(json.NewEncoder(conn)))
	logger := s.logger.With("conn", session.ID())

	s.hub.Register(session)
	session.setState(StateOpen)
	logger.Info("connection opened", "user", user.ID)

	defer func() {
		session.setState(StateClosed)
		s.hub.Unregister(session)
		logger.Info("connection closed")
	}()

	// Handler store work outlives the connection.
	ctx := context.WithoutCancel(conn.Request().Context())

	decodeErrors := 0
	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("read failed", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			decodeErrors++
			_ = session.send(errorFrame{Type: "ack", Error: ErrorBody{Code: CodeValidation, Message: "invalid frame payload"}})
			if decodeErrors >= maxDecodeErrorsPerConn {
				logger.Warn("closing connection after repeated invalid frames", "error", err)
				return
			}
			continue
		}
		decodeErrors = 0

		if frame.Name == "" {
			_ = session.send(errorFrame{Type: "ack", ID: frame.ID, Error: ErrorBody{Code: CodeValidation, Message: "missing event name"}})
			continue
		}

		s.dispatcher.Dispatch(ctx, session, frame)
	}
}
