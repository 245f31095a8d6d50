package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/logging"
	"github.com/teemow/concierge/internal/resources"
	"github.com/teemow/concierge/internal/server"
	"github.com/teemow/concierge/internal/tools/calendar_tools"
	"github.com/teemow/concierge/internal/tools/email_tools"
	"github.com/teemow/concierge/internal/tools/google_tools"
)

// Supported MCP transports.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		transport     string
		httpAddr      string
		metricsConfig MetricsConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to provide calendar and email tools for AI assistants.

Every email_send call creates a draft that waits for the user's decision.
The assistant relays the user's reply through email_decide; nothing is sent
until the user approves.

Supports multiple transports:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp with health endpoints

Metrics:
  Prometheus metrics can be exposed on a dedicated port (streamable-http only)
  with --metrics or METRICS_ENABLED=true. Use --metrics-addr or METRICS_ADDR
  to change the listen address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(transport, httpAddr, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&metricsConfig.Enabled, "metrics", false, "Expose Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&metricsConfig.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

func runServe(transport, httpAddr string, metricsConfig MetricsConfig) error {
	if transport != transportStdio && transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
		metricsConfig.Enabled = true
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	opts := []server.Option{server.WithLogger(logger)}
	if provider.Enabled() {
		opts = append(opts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", "error", err)
		}
	}()

	mcpSrv := newMCPServer(serverContext)
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		var metricsServer *server.MetricsServer
		if metricsConfig.Enabled && provider.Enabled() {
			metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
				Addr:                    metricsConfig.Addr,
				InstrumentationProvider: provider,
			})
			if err != nil {
				return fmt.Errorf("failed to create metrics server: %w", err)
			}
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, metricsServer, logger)
	}
}

// newMCPServer creates the MCP server with session hooks bound to sc.
// A disconnecting session drops its pending draft.
func newMCPServer(sc *server.ServerContext) *mcpserver.MCPServer {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		sc.Metrics().IncrementActiveSessions(ctx)
		sc.Logger().Debug("session registered", logging.Thread(session.SessionID()))
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, session mcpserver.ClientSession) {
		sc.SessionClosed(session.SessionID())
	})

	return mcpserver.NewMCPServer("concierge", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithHooks(hooks),
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc)
			},
		},
		{
			name: "Email",
			register: func() error {
				return email_tools.RegisterEmailTools(mcpSrv, sc)
			},
		},
		{
			name: "Google",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, sc)
			},
		},
		{
			name: "User Resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr string, metricsServer *server.MetricsServer, logger *slog.Logger) error {
	httpServer := server.NewHTTPServer(mcpSrv, sc)
	httpServer.Health().SetVersion(version)

	serverDone := make(chan error, 2)
	go func() {
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverDone <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "concierge MCP server listening on %s%s\n", addr, server.DefaultMCPEndpoint)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverDone:
		logger.Error("server stopped", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during metrics server shutdown", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("server stopped with error: %w", runErr)
	}
	return nil
}
