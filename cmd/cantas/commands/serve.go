package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/api"
	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/events"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/realtime"
	"github.com/dyluth/cantas/pkg/board"
)

var (
	serveAddr     string
	serveLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Cantas server",
	Long: `Run the HTTP server: the JSON pages under /api, the WebSocket event
endpoint at /socket and the health check at /healthz.

Configuration is read from cantas.yml; REDIS_URL, CANTAS_SECRET,
CANTAS_INSTANCE and CANTAS_ADDR override it. The server stops gracefully on
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(serveLogLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", serveLogLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	client, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	srv, err := buildServer(ctx, cfg.Server.Addr, client, serverSettings{
		secret:     []byte(cfg.Auth.Secret),
		cookieName: cfg.Auth.CookieName,
		tokenTTL:   cfg.TokenTTL(),
		devLogin:   cfg.Server.DevLogin,
	}, logger)
	if err != nil {
		return err
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("cantas started", "instance", cfg.Instance, "addr", srv.Addr(), "dev_login", cfg.Server.DevLogin)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

type serverSettings struct {
	secret     []byte
	cookieName string
	tokenTTL   time.Duration
	devLogin   bool
}

// buildServer wires the store into the event table, the realtime hub and the
// HTTP routes. The hub listens for broadcasts until ctx is cancelled.
func buildServer(ctx context.Context, addr string, client *board.Client, settings serverSettings, logger *slog.Logger) (*api.Server, error) {
	svc := models.NewService(board.NewRepository(client))

	table, err := events.NewCantasTable(svc)
	if err != nil {
		return nil, fmt.Errorf("failed to build event table: %w", err)
	}
	logger.Debug("event table built", "events", table.Len())

	hub := realtime.NewHub(logger)
	if err := hub.Listen(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to subscribe to broadcasts: %w", err)
	}

	authenticator := auth.NewAuthenticator(settings.secret, settings.cookieName, settings.tokenTTL, svc, models.User)
	dispatcher := realtime.NewDispatcher(table, client, hub, svc, realtime.WithLogger(logger))

	router := api.NewRouter(api.Options{
		Service:       svc,
		Authenticator: authenticator,
		Store:         client,
		Socket:        realtime.NewServer(authenticator, dispatcher, hub, logger),
		DevLogin:      settings.devLogin,
		Logger:        logger,
	})

	return api.NewServer(addr, router, logger), nil
}
