package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/concierge/internal/agent"
	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/calendar"
	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/gmail"
	"github.com/teemow/concierge/internal/google"
	"github.com/teemow/concierge/internal/instrumentation"
	"github.com/teemow/concierge/internal/logging"
)

// ServerContext holds the shared state of the MCP server: configuration,
// per-account Google clients, the approval machine and instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg           config.Config
	tokenProvider google.TokenProvider
	logger        *slog.Logger

	calendarClients map[string]calendar.Backend
	emailSenders    map[string]gmail.Sender

	machine     *approval.Machine
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithTokenProvider sets where OAuth tokens come from (default: token files on disk).
func WithTokenProvider(p google.TokenProvider) Option {
	return func(sc *ServerContext) { sc.tokenProvider = p }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger attaches an audit logger.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// NewServerContext creates a new server context. The approval machine is
// created here with an executor for email_send that sends through the
// account named in the draft.
func NewServerContext(ctx context.Context, cfg config.Config, opts ...Option) (*ServerContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:             ctx,
		cancel:          cancel,
		cfg:             cfg,
		tokenProvider:   google.NewFileTokenProvider(),
		logger:          slog.Default(),
		calendarClients: make(map[string]calendar.Backend),
		emailSenders:    make(map[string]gmail.Sender),
	}
	for _, opt := range opts {
		opt(sc)
	}

	sc.machine = approval.NewMachine(approval.Config{
		Logger:  sc.logger,
		Metrics: sc.metrics,
		Audit:   sc.auditLogger,
	})
	sc.machine.RegisterExecutor(ToolEmailSend, approval.ExecutorFunc(sc.sendApprovedEmail))

	return sc, nil
}

// ToolEmailSend is the gated MCP tool whose drafts the machine executes.
const ToolEmailSend = "email_send"

func (sc *ServerContext) sendApprovedEmail(ctx context.Context, action approval.PendingAction) (string, error) {
	account, _ := action.Arguments["account"].(string)
	if account == "" {
		account = sc.cfg.Account
	}
	sender, err := sc.EmailSenderForAccount(ctx, account)
	if err != nil {
		return "", err
	}
	return agent.EmailExecutor(sender).Execute(ctx, action)
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the runtime configuration.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Machine returns the approval machine shared by all sessions.
func (sc *ServerContext) Machine() *approval.Machine {
	return sc.machine
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// ResolveAccount returns account, or the configured default when it is empty.
func (sc *ServerContext) ResolveAccount(account string) string {
	if account == "" {
		return sc.cfg.Account
	}
	return account
}

// authError explains how to authorize an account that has no token.
func (sc *ServerContext) authError(account string) error {
	return fmt.Errorf("%w: %s", google.ErrNoToken, google.GetAuthenticationErrorMessage(account))
}

// CalendarBackendForAccount returns the calendar client for the account,
// creating and caching it on first use.
func (sc *ServerContext) CalendarBackendForAccount(ctx context.Context, account string) (calendar.Backend, error) {
	account = sc.ResolveAccount(account)

	sc.mu.RLock()
	backend, ok := sc.calendarClients[account]
	sc.mu.RUnlock()
	if ok {
		return backend, nil
	}

	if !calendar.HasTokenForAccountWithProvider(account, sc.tokenProvider) {
		return nil, sc.authError(account)
	}

	client, err := calendar.NewClientForAccountWithProvider(ctx, account, sc.tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar client for account %s: %w", account, err)
	}
	client.SetMetrics(sc.metrics)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.calendarClients[account]; ok {
		return existing, nil
	}
	sc.calendarClients[account] = client
	sc.logger.Debug("created calendar client", logging.Account(account))
	return client, nil
}

// SetCalendarBackendForAccount installs a calendar backend for the account.
func (sc *ServerContext) SetCalendarBackendForAccount(account string, backend calendar.Backend) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.calendarClients[sc.ResolveAccount(account)] = backend
}

// EmailSenderForAccount returns the Gmail client for the account,
// creating and caching it on first use.
func (sc *ServerContext) EmailSenderForAccount(ctx context.Context, account string) (gmail.Sender, error) {
	account = sc.ResolveAccount(account)

	sc.mu.RLock()
	sender, ok := sc.emailSenders[account]
	sc.mu.RUnlock()
	if ok {
		return sender, nil
	}

	if sc.tokenProvider == nil || !sc.tokenProvider.HasTokenForAccount(account) {
		return nil, sc.authError(account)
	}

	client, err := gmail.NewClientForAccountWithProvider(ctx, account, sc.tokenProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}
	client.SetMetrics(sc.metrics)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.emailSenders[account]; ok {
		return existing, nil
	}
	sc.emailSenders[account] = client
	sc.logger.Debug("created gmail client", logging.Account(account))
	return client, nil
}

// SetEmailSenderForAccount installs an email sender for the account.
func (sc *ServerContext) SetEmailSenderForAccount(account string, sender gmail.Sender) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.emailSenders[sc.ResolveAccount(account)] = sender
}

// CalculatorForAccount returns an availability calculator over the
// account's calendar, using the configured work hours and time zone.
func (sc *ServerContext) CalculatorForAccount(ctx context.Context, account string) (*calendar.Calculator, error) {
	backend, err := sc.CalendarBackendForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	availCfg, err := sc.cfg.AvailabilityConfig(sc.logger, sc.metrics)
	if err != nil {
		return nil, err
	}
	return calendar.NewCalculator(backend, availCfg)
}

// SessionClosed drops the approval state of an MCP session.
func (sc *ServerContext) SessionClosed(threadID string) {
	sc.machine.Forget(threadID)
	sc.metrics.DecrementActiveSessions(sc.ctx)
	sc.logger.Debug("session closed", logging.Thread(threadID))
}

// IsShutdown returns true if the server is shutting down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown gracefully shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	sc.calendarClients = make(map[string]calendar.Backend)
	sc.emailSenders = make(map[string]gmail.Sender)
	return nil
}
