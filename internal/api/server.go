// Package api serves the Cantas HTTP surface: the JSON listing pages, the
// development login, the health check and the mount point of the WebSocket
// endpoint.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/models"
)

const shutdownTimeout = 5 * time.Second

// Options configures the router.
type Options struct {
	Service       *models.Service
	Authenticator *auth.Authenticator
	Store         Pinger

	// Socket serves the WebSocket endpoint at /socket when set.
	Socket http.Handler

	// DevLogin enables the admin/admin form login at POST /login.
	DevLogin bool

	Logger *slog.Logger
}

// NewRouter builds the HTTP routes:
//
//	GET  /healthz
//	GET  /socket
//	GET  /api/mine, /api/public, /api/closed, /api/invited, /api/new
//	GET  /api/cards/mine
//	GET  /api/archived/cards/{boardId}, /api/archived/lists/{boardId}
//	GET  /api/archived/getorders/{listId}
//	GET  /api/boards/{boardId}, /api/cards/{cardId}
//	POST /login (development only), GET /logout
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	mux := http.NewServeMux()
	mux.Handle("/healthz", NewHealthHandler(opts.Store))
	if opts.Socket != nil {
		mux.Handle("/socket", opts.Socket)
	}

	p := &pages{svc: opts.Service, logger: logger}
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, opts.Authenticator.Middleware(h))
	}
	protect("GET /api/mine", p.boards(p.mine))
	protect("GET /api/public", p.boards(p.public))
	protect("GET /api/closed", p.boards(p.closed))
	protect("GET /api/invited", p.boards(p.invited))
	protect("GET /api/new", p.newBoard)
	protect("GET /api/cards/mine", p.myCards)
	protect("GET /api/archived/cards/{boardId}", p.archivedCards)
	protect("GET /api/archived/lists/{boardId}", p.archivedLists)
	protect("GET /api/archived/getorders/{listId}", p.listOrders)
	protect("GET /api/boards/{boardId}", p.single(models.Board, "boardId"))
	protect("GET /api/cards/{cardId}", p.single(models.Card, "cardId"))

	s := &sessions{svc: opts.Service, auth: opts.Authenticator, logger: logger}
	if opts.DevLogin {
		mux.HandleFunc("POST /login", s.login)
	}
	mux.HandleFunc("GET /logout", s.logout)

	return mux
}

// Server runs the HTTP listener.
type Server struct {
	addr       string
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer creates a server for handler listening on addr.
// The server is not started until Start is called.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// runs until ctx is cancelled, at which point it shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}
