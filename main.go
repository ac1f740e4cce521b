// Command concentration starts the Concentration game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and an optional .env file); flags
// override them. Ngrok tunneling is available for external access during
// development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/concentration/api"
	"github.com/wricardo/mcp-training/concentration/game/config"
	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/service"
	"github.com/wricardo/mcp-training/concentration/game/session"
	"github.com/wricardo/mcp-training/concentration/game/store"
	"github.com/wricardo/mcp-training/concentration/transport/mcp"
	"github.com/wricardo/mcp-training/concentration/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Concentration Game Server"
)

const (
	cleanupInterval  = time.Hour
	syncInterval     = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
	externalProbeTTL = 2 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env file: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Flags are declared on the root command and are
// visible to every mode.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "concentration",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "data-dir", Usage: "Directory for sessions and the best score"},
			&cli.StringFlag{Name: "static-dir", Usage: "Directory served at / (empty disables)"},
			&cli.StringFlag{Name: "store-driver", Usage: "Best score store: memory, file, sqlite or redis"},
			&cli.StringFlag{Name: "store-dsn", Usage: "Store path or redis address"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return fmt.Errorf("unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", cmd.Args().First())
			}
			return runHTTPServer(ctx, cmd)
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadSettings reads the environment, applies flag overrides and validates
// the result
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("data-dir") {
		settings.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("static-dir") {
		settings.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("store-driver") {
		settings.StoreDriver = cmd.String("store-driver")
	}
	if cmd.IsSet("store-dsn") {
		settings.StoreDSN = cmd.String("store-dsn")
	}
	if cmd.IsSet("ngrok") {
		settings.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		settings.NgrokAuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.NgrokDomain = cmd.String("ngrok-domain")
	}
	if settings.NgrokAuthToken == "" {
		// Also support the underscore spelling
		settings.NgrokAuthToken = os.Getenv("NGROK_AUTH_TOKEN")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// newLogger returns a development logger in debug mode and a production
// logger otherwise. Both write to stderr, which keeps stdout free for MCP.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app holds the wired services shared by both modes
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	store    store.Store
	hub      *websocket.Hub
	manager  *session.Manager
	service  service.GameService
}

// initializeServices opens the best score store and wires the session
// manager, game service and WebSocket hub.
func initializeServices(ctx context.Context, settings *config.Settings, logger *zap.Logger) (*app, error) {
	st, err := store.Open(ctx, settings.StoreDriver, settings.StoreTarget())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", settings.StoreDriver, err)
	}

	persistence, err := session.NewFilePersistence(settings.SessionsPath())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	// The hub needs the service to answer intents and the service needs
	// engines that broadcast through the hub; the handler is bound last.
	handler := &websocket.ServiceHandler{}
	hub := websocket.NewHub(handler, logger.Named("websocket"))

	factory := func(id string, view engine.View) *engine.GameEngine {
		return engine.NewEngine(engine.Options{
			View:   engine.MultiView{view, hub.SessionView(id)},
			Sounds: hub.SessionSounds(id),
			Store:  st,
			Logger: logger.Named("engine").With(zap.String("session", id)),
		})
	}

	manager := session.NewManagerWithPersistence(persistence, factory, logger.Named("session"))
	if err := manager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	gameService := service.NewGameService(manager, st, logger.Named("service"))
	handler.Service = gameService

	logger.Info("services initialized",
		zap.String("store", settings.StoreDriver),
		zap.String("sessions_dir", settings.SessionsPath()),
		zap.Int("sessions", manager.Count()))

	return &app{
		settings: settings,
		logger:   logger,
		store:    st,
		hub:      hub,
		manager:  manager,
		service:  gameService,
	}, nil
}

// close flushes every session to disk and releases the store
func (a *app) close() {
	if err := a.manager.SaveAllSessions(); err != nil {
		a.logger.Warn("failed to save sessions", zap.Error(err))
	}
	a.manager.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

// routes combines the REST API with the /mcp endpoint backed by an MCP
// client pointed at baseURL
func (a *app) routes(baseURL string) http.Handler {
	apiServer := api.NewServer(a.service, a.hub, a.logger.Named("api"), a.settings.StaticDir)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp endpoint, plus the background session routines. If ngrok is enabled
// it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	a, err := initializeServices(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.close()

	addr := settings.Addr()
	handler := a.routes("http://" + addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sessionCleanupRoutine(gctx, a.manager, cleanupInterval, settings.SessionTTL, logger)
		return nil
	})

	g.Go(func() error {
		filesystemSyncRoutine(gctx, a.manager, syncInterval, logger)
		return nil
	})

	if settings.NgrokEnabled {
		g.Go(func() error {
			serveNgrok(gctx, settings, handler, logger)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged; they never stop the local server.
func serveNgrok(ctx context.Context, settings *config.Settings, handler http.Handler, logger *zap.Logger) {
	if settings.NgrokAuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		logger.Info("using custom ngrok domain", zap.String("domain", settings.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine periodically drops in-memory sessions whose
// snapshot file was deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := manager.SyncWithPersistence(); pruned > 0 {
				logger.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", pruned))
			}
		}
	}
}

// externalAPIAvailable reports whether a healthy API server answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, externalProbeTTL)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured address; otherwise it starts an internal one
// on a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	externalURL := "http://" + settings.Addr()
	logger.Info("checking for external API server", zap.String("url", externalURL))

	if externalAPIAvailable(ctx, externalURL) {
		logger.Info("MCP stdio server ready (using external HTTP server)", zap.String("url", externalURL))
		return server.ServeStdio(mcp.NewClient(externalURL).GetMCPServer())
	}

	logger.Info("no external API server found, starting internal HTTP server")

	a, err := initializeServices(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()

	httpServer := &http.Server{Handler: a.routes(internalURL)}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("MCP stdio server ready (using internal HTTP server)", zap.String("url", internalURL))
	stdioErr := server.ServeStdio(mcp.NewClient(internalURL).GetMCPServer())

	cancel()
	if err := g.Wait(); err != nil {
		logger.Warn("internal HTTP server stopped with error", zap.Error(err))
	}
	return stdioErr
}
