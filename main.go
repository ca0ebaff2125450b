// Command tile-grid-game starts the Tile Grid Game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, preset and session directories, the session store backend,
// debug logging, and optional ngrok tunneling for external access during development.
// Every flag default can be supplied through the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/tile-grid-game/api"
	"github.com/wricardo/tile-grid-game/game/config"
	"github.com/wricardo/tile-grid-game/game/service"
	"github.com/wricardo/tile-grid-game/game/session"
	"github.com/wricardo/tile-grid-game/transport/mcp"
	"github.com/wricardo/tile-grid-game/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tile Grid Game Server"
)

// Session store backends
const (
	storeFile   = "file"
	storeSQLite = "sqlite"
)

// serverEnv holds the environment-provided defaults for the command-line flags.
type serverEnv struct {
	Port           int    `env:"TILEGRID_PORT" envDefault:"8080"`
	Host           string `env:"TILEGRID_HOST" envDefault:"localhost"`
	ConfigDir      string `env:"CONFIG_DIR" envDefault:"configs"`
	DefaultConfig  string `env:"TILEGRID_DEFAULT_CONFIG"`
	SessionsDir    string `env:"SESSIONS_DIR" envDefault:"sessions"`
	Store          string `env:"TILEGRID_STORE" envDefault:"file"`
	SessionMaxAge  string `env:"TILEGRID_SESSION_MAX_AGE" envDefault:"24h"`
	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokAuthAlt   string `env:"NGROK_AUTH_TOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// loadServerEnv reads .env (if present) and parses the environment.
func loadServerEnv() (serverEnv, error) {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	var cfg serverEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.NgrokAuthToken == "" {
		cfg.NgrokAuthToken = cfg.NgrokAuthAlt
	}
	return cfg, nil
}

// options is the resolved runtime configuration
type options struct {
	Port          int
	Host          string
	ConfigDir     string
	DefaultConfig string
	SessionsDir   string
	Store         string
	SessionMaxAge time.Duration
	Debug         bool
	NgrokEnabled  bool
	NgrokAuth     string
	NgrokDomain   string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// newApp builds the command tree with flag defaults taken from defaults.
func newApp(defaults serverEnv) *cli.Command {
	return &cli.Command{
		Name:    "tile-grid-game",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: defaults.Port, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "host", Value: defaults.Host, Usage: "HTTP server host"},
			&cli.StringFlag{Name: "config-dir", Value: defaults.ConfigDir, Usage: "Directory containing board presets"},
			&cli.StringFlag{Name: "default-config", Value: defaults.DefaultConfig, Usage: "Preset used when a session names none (default classic)"},
			&cli.StringFlag{Name: "sessions-dir", Value: defaults.SessionsDir, Usage: "Directory for persisted sessions"},
			&cli.StringFlag{Name: "store", Value: defaults.Store, Usage: "Session store backend: file or sqlite"},
			&cli.StringFlag{Name: "session-max-age", Value: defaults.SessionMaxAge, Usage: "Idle time before a session is pruned"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Value: defaults.NgrokEnabled, Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Value: defaults.NgrokAuthToken, Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Value: defaults.NgrokDomain, Usage: "Custom ngrok domain (optional)"},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioCommand,
			},
		},
		Action: runServerCommand,
	}
}

// optionsFromCommand resolves flags into options
func optionsFromCommand(cmd *cli.Command) (options, error) {
	opts := options{
		Port:          cmd.Int("port"),
		Host:          cmd.String("host"),
		ConfigDir:     cmd.String("config-dir"),
		DefaultConfig: cmd.String("default-config"),
		SessionsDir:   cmd.String("sessions-dir"),
		Store:         cmd.String("store"),
		Debug:         cmd.Bool("debug"),
		NgrokEnabled:  cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}

	maxAge, err := time.ParseDuration(cmd.String("session-max-age"))
	if err != nil {
		return opts, fmt.Errorf("invalid session-max-age: %w", err)
	}
	opts.SessionMaxAge = maxAge

	if opts.Store != storeFile && opts.Store != storeSQLite {
		return opts, fmt.Errorf("unknown store %q: use %s or %s", opts.Store, storeFile, storeSQLite)
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return opts, fmt.Errorf("invalid port %d", opts.Port)
	}
	return opts, nil
}

func setupLogging(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// main loads the environment, builds the command tree, and runs it.
func main() {
	defaults, err := loadServerEnv()
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(defaults).Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts, err := optionsFromCommand(cmd)
	if err != nil {
		return err
	}
	setupLogging(opts.Debug)
	log.Printf("Starting %s v%s (mode: server, store: %s)", AppName, Version, opts.Store)

	services, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	go services.runBackground(ctx, opts.SessionMaxAge)

	return runHTTPServer(ctx, opts, services.game)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	opts, err := optionsFromCommand(cmd)
	if err != nil {
		return err
	}
	setupLogging(opts.Debug)
	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)
	log.Printf("Starting %s v%s (mode: stdio-mcp, store: %s)", AppName, Version, opts.Store)

	services, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	go services.runBackground(ctx, opts.SessionMaxAge)

	return runStdioMCPWithInternalServer(opts, services.game)
}

// newMainRouter mounts the API server and the /mcp proxy endpoint.
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns after ctx is cancelled.
func runHTTPServer(ctx context.Context, opts options, gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(gameService, hub)

	addr := opts.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case runErr = <-serverErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is cancelled.
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// services bundles the wired managers so background routines and shutdown can reach them.
type services struct {
	game        service.GameService
	sessions    *session.Manager
	configs     *config.Manager
	persistence session.SessionPersistence
	closeStore  func() error
}

// Close flushes sessions and releases the store
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Printf("Warning: Failed to save sessions on shutdown: %v", err)
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			log.Printf("Warning: Failed to close session store: %v", err)
		}
	}
}

// newPersistence opens the configured session store
func newPersistence(opts options, configManager *config.Manager) (session.SessionPersistence, func() error, error) {
	switch opts.Store {
	case storeSQLite:
		if err := os.MkdirAll(opts.SessionsDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create sessions directory: %w", err)
		}
		store, err := session.NewSQLitePersistence(filepath.Join(opts.SessionsDir, "sessions.db"), configManager)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := session.NewFilePersistence(opts.SessionsDir, configManager)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

// initializeServices wires session/config managers and the game service.
func initializeServices(opts options) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if opts.DefaultConfig != "" {
		if err := configManager.SetDefault(opts.DefaultConfig); err != nil {
			return nil, fmt.Errorf("failed to set default config %q: %w", opts.DefaultConfig, err)
		}
	}

	persistence, closeStore, err := newPersistence(opts, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)

	// Load persisted sessions on startup
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}
	log.Printf("Loaded %d sessions, %d board presets", sessionManager.Count(), configManager.Count())

	return &services{
		game:        service.NewGameService(sessionManager, configManager),
		sessions:    sessionManager,
		configs:     configManager,
		persistence: persistence,
		closeStore:  closeStore,
	}, nil
}

// runBackground runs the cleanup and store sync routines until ctx is cancelled.
func (s *services) runBackground(ctx context.Context, maxAge time.Duration) {
	cleanup := time.NewTicker(1 * time.Hour)
	defer cleanup.Stop()
	storeSync := time.NewTicker(5 * time.Second)
	defer storeSync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			s.cleanupSessions(maxAge)
			s.refreshPresets()
		case <-storeSync.C:
			s.syncStore()
		}
	}
}

// cleanupSessions drops idle sessions from memory and prunes them from the store.
func (s *services) cleanupSessions(maxAge time.Duration) {
	if removed := s.sessions.CleanupExpiredSessions(maxAge); removed > 0 {
		log.Printf("Cleaned up %d expired sessions", removed)
	}

	pruned, err := s.sessions.PruneStore(maxAge)
	if err != nil {
		log.Printf("Warning: Failed to prune session store: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Pruned %d inactive sessions from the store", pruned)
	}
}

// refreshPresets drops cached presets so edits in the config directory are picked up.
func (s *services) refreshPresets() {
	if err := s.configs.RefreshCache(); err != nil {
		log.Printf("Warning: Failed to refresh board presets: %v", err)
		return
	}
	log.Printf("Refreshed board presets, default is %q", s.configs.GetDefault().Name)
}

// syncStore removes sessions from memory when their stored record was deleted externally.
func (s *services) syncStore() int {
	if s.persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range s.sessions.List() {
		if !s.persistence.Exists(sess.ID) {
			if err := s.sessions.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				log.Printf("Pruned session %s from memory (record deleted)", sess.ID)
			}
		}
	}

	if pruned > 0 {
		log.Printf("Store sync: pruned %d orphaned sessions from memory", pruned)
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(opts options, gameService service.GameService) error {
	externalURL := fmt.Sprintf("http://%s", opts.addr())
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Stop()

		httpServer := &http.Server{
			Handler: api.NewServer(gameService, hub),
		}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
