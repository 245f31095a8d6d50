package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/concierge/internal/agent"
	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/router"
	"github.com/teemow/concierge/internal/server"
)

// errNoAPIKey is returned when chat starts without model credentials.
var errNoAPIKey = errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is not set")

// chatAgent answers one user turn on a thread.
type chatAgent interface {
	Invoke(ctx context.Context, threadID, request string) (router.Result, error)
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive assistant",
		Long: `Start an interactive session with the scheduling and email assistant.

Ask for meetings, free slots or emails in plain language. Email drafts are
shown before sending; answer with "Approve", "Reject [reason]" or
"Edit: [changes]". Type "quit" or "exit" to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(in io.Reader, out io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	supervisor, cleanup, err := newSupervisor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return chatLoop(ctx, in, out, supervisor, uuid.NewString(), logger)
}

// newSupervisor wires the model, the Google clients and the three agents.
// Missing Google credentials are fatal here rather than on the first turn.
func newSupervisor(ctx context.Context, cfg config.Config, logger *slog.Logger) (*agent.Agent, func(), error) {
	if cfg.APIKey == "" {
		return nil, nil, errNoAPIKey
	}

	sc, err := server.NewServerContext(ctx, cfg, server.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = sc.Shutdown() }

	fail := func(err error) (*agent.Agent, func(), error) {
		cleanup()
		return nil, nil, err
	}

	backend, err := sc.CalendarBackendForAccount(ctx, cfg.Account)
	if err != nil {
		return fail(err)
	}
	sender, err := sc.EmailSenderForAccount(ctx, cfg.Account)
	if err != nil {
		return fail(err)
	}
	calc, err := sc.CalculatorForAccount(ctx, cfg.Account)
	if err != nil {
		return fail(err)
	}

	prompts, err := agent.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return fail(err)
	}

	model, err := agent.NewGeminiModel(ctx, cfg.APIKey, cfg.ModelName, cfg.Temperature)
	if err != nil {
		return fail(fmt.Errorf("failed to create model client: %w", err))
	}
	cleanup = func() {
		_ = model.Close()
		_ = sc.Shutdown()
	}

	base := agent.Config{Model: model, Logger: logger, Metrics: sc.Metrics()}

	calendarAgent, err := agent.NewCalendarAgent(base, prompts, agent.CalendarDeps{
		Backend:    backend,
		Calculator: calc,
		CalendarID: cfg.CalendarID,
	})
	if err != nil {
		return fail(err)
	}
	emailAgent, err := agent.NewEmailAgent(base, prompts, cfg.UserName, sender, sc.Machine())
	if err != nil {
		return fail(err)
	}
	// The supervisor sees every request first, so it clears settled drafts.
	supervisorCfg := base
	supervisorCfg.Machine = sc.Machine()
	supervisor, err := agent.NewSupervisor(supervisorCfg, prompts, cfg.UserName, calendarAgent, emailAgent)
	if err != nil {
		return fail(err)
	}
	return supervisor, cleanup, nil
}

// chatLoop reads one request per line until EOF, "quit" or "exit".
// A failing or panicking turn is reported and the loop goes on.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a chatAgent, threadID string, logger *slog.Logger) error {
	fmt.Fprintln(out, "concierge is ready. Type 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		fmt.Fprintf(out, "\nAssistant: %s\n", chatTurn(ctx, a, threadID, line, logger))

		if ctx.Err() != nil {
			return nil
		}
	}
}

func chatTurn(ctx context.Context, a chatAgent, threadID, line string, logger *slog.Logger) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("chat turn panicked", "thread", threadID, "panic", r)
			reply = "Sorry, something went wrong while handling that. Please try again."
		}
	}()

	res, err := a.Invoke(ctx, threadID, line)
	if err != nil {
		logger.Error("chat turn failed", "thread", threadID, "error", err)
		return fmt.Sprintf("Sorry, I could not complete that: %v", err)
	}
	return router.Render(res)
}
