// Command spellground starts the Spell Ground server.
//
// It supports two modes:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the WebSocket stream and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the question set and results directories, logging,
// and optional ngrok tunneling for easy external access during development.
// Every flag can also be set through the environment or a .env file.
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/spellground/api"
	"github.com/wricardo/spellground/game/config"
	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
	"github.com/wricardo/spellground/game/session"
	"github.com/wricardo/spellground/transport/mcp"
	"github.com/wricardo/spellground/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Spell Ground Server"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Hour
)

// options holds the process configuration resolved from flags and environment
type options struct {
	host        string
	port        int
	configDir   string
	resultsDir  string
	sessionTTL  time.Duration
	debug       bool
	logLevel    string
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

// serverFlags are shared by every mode
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("SPELLGROUND_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("SPELLGROUND_PORT", "PORT"),
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Value:   "configs",
			Usage:   "Directory containing question sets (.json, .yaml, .yml)",
			Sources: cli.EnvVars("CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:    "results-dir",
			Value:   "results",
			Usage:   "Directory archiving finished puzzles (empty keeps them in memory)",
			Sources: cli.EnvVars("RESULTS_DIR"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   24 * time.Hour,
			Usage:   "Remove sessions idle for longer than this",
			Sources: cli.EnvVars("SESSION_TTL"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging with console output",
			Sources: cli.EnvVars("DEBUG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (trace, debug, info, warn, error)",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        int(cmd.Int("port")),
		configDir:   cmd.String("config-dir"),
		resultsDir:  cmd.String("results-dir"),
		sessionTTL:  cmd.Duration("session-ttl"),
		debug:       cmd.Bool("debug"),
		logLevel:    cmd.String("log-level"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "spellground",
		Usage:   AppName,
		Version: Version,
		Flags:   serverFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing a running HTTP server or starting an internal one",
				Action:  stdioMCPAction,
			},
		},
	}
}

// main loads .env, then runs the selected mode until a signal arrives.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// setupLogging configures the global logger. Logs always go to stderr so the
// stdio MCP mode keeps stdout for the protocol.
func setupLogging(opts options) error {
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}
	if opts.debug {
		level = zerolog.DebugLevel
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// app bundles the wired services of one process
type app struct {
	service  service.GameService
	sessions *session.Manager
	configs  *config.Manager
	hub      *websocket.Hub
}

// initializeServices wires the config and session managers, the result store,
// the WebSocket hub and the game service.
func initializeServices(opts options) (*app, error) {
	logger := log.Logger

	configManager, err := config.NewManager(opts.configDir, config.WithLogger(logger.With().Str("component", "config").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	var results service.ResultStore = session.NewMemoryResultStore()
	if opts.resultsDir != "" {
		store, err := session.NewFileResultStore(opts.resultsDir, logger.With().Str("component", "results").Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to create result store: %w", err)
		}
		results = store
	}

	sessionManager := session.NewManager(session.WithLogger(logger.With().Str("component", "sessions").Logger()))
	hub := websocket.NewHub(websocket.WithLogger(logger.With().Str("component", "websocket").Logger()))

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithLogger(logger.With().Str("component", "service").Logger()),
		service.WithNotifier(hub),
		service.WithResultStore(results),
	)

	// Pointer events sent over the WebSocket drive the same controller as the REST API
	hub.SetInboundHandler(func(sessionID string, in engine.PointerInput) error {
		_, err := gameService.Pointer(context.Background(), sessionID, in)
		return err
	})

	return &app{
		service:  gameService,
		sessions: sessionManager,
		configs:  configManager,
		hub:      hub,
	}, nil
}

// start launches the background workers of a: the hub loop, the frame loop,
// the question set watcher and session cleanup. They stop when ctx is done.
func (a *app) start(ctx context.Context, g *errgroup.Group, ttl time.Duration) {
	g.Go(func() error {
		a.hub.Run()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.hub.Stop()
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(service.RunFrameLoop(ctx, a.service, engine.FrameDuration))
	})
	g.Go(func() error {
		return a.configs.Watch(ctx)
	})
	g.Go(func() error {
		runSessionCleanup(ctx, a.sessions, cleanupInterval, ttl)
		return nil
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSessionCleanup periodically removes sessions that have not been accessed
// within ttl.
func runSessionCleanup(ctx context.Context, manager *session.Manager, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Info().Int("removed", removed).Msg("Cleaned up expired sessions")
			}
		}
	}
}

// newRootHandler mounts the API at the root and the MCP proxy at /mcp
func newRootHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

// serveAction runs the HTTP server with REST API, WebSocket hub and /mcp endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	if err := setupLogging(opts); err != nil {
		return err
	}
	log.Info().Str("version", Version).Str("mode", "serve").Msgf("Starting %s", AppName)

	a, err := initializeServices(opts)
	if err != nil {
		return err
	}

	addr := opts.addr()
	apiServer := api.NewServer(a.service, a.hub, api.WithLogger(log.Logger.With().Str("component", "api").Logger()))
	handler := newRootHandler(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	a.start(ctx, g, opts.sessionTTL)

	g.Go(func() error {
		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("websocket", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	if opts.ngrok {
		g.Go(func() error {
			runTunnel(ctx, opts, handler)
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("Server stopped")
	return err
}

// runTunnel serves handler through an ngrok tunnel until ctx is done.
// Failures are logged; the local server keeps running without a tunnel.
func runTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Info().Str("domain", opts.ngrokDomain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("websocket", ngrokURL+"/ws?session=<session_id>").
		Str("mcp", ngrokURL+"/mcp").
		Msg("Ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// stdioMCPAction runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it starts an internal API bound to a
// random loopback port and targets that.
func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	if err := setupLogging(opts); err != nil {
		return err
	}

	externalURL := "http://" + opts.addr()
	log.Info().Str("url", externalURL).Msg("Checking for external API server")

	if apiAvailable(ctx, externalURL) {
		log.Info().Str("url", externalURL).Msg("MCP stdio server ready (using external HTTP server)")
		return server.ServeStdio(mcp.NewClient(externalURL).GetMCPServer())
	}

	a, err := initializeServices(opts)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	internalURL := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	a.start(ctx, g, opts.sessionTTL)

	httpServer := &http.Server{
		Handler: api.NewServer(a.service, a.hub, api.WithLogger(log.Logger.With().Str("component", "api").Logger())),
	}
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.Info().Str("url", internalURL).Msg("MCP stdio server ready (using internal HTTP server)")
	serveErr := server.ServeStdio(mcp.NewClient(internalURL).GetMCPServer())
	cancel()

	return errors.Join(serveErr, g.Wait())
}

// apiAvailable reports whether a Spell Ground API answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
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
