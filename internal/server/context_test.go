package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/calendar"
	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/gmail"
	"github.com/teemow/concierge/internal/google"
)

type noTokens struct{}

func (noTokens) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	return nil, google.ErrNoToken
}

func (noTokens) HasTokenForAccount(string) bool { return false }

type stubSender struct {
	accounts []string
	account  string
	err      error
}

func (s *stubSender) SendEmail(_ context.Context, msg *gmail.EmailMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.accounts = append(s.accounts, s.account)
	return "id-" + msg.Subject, nil
}

type stubBackend struct {
	busy []calendar.TimeRange
}

func (b *stubBackend) QueryFreeBusy(_ context.Context, _, _ time.Time, ids []string) ([]calendar.FreeBusyInfo, error) {
	infos := []calendar.FreeBusyInfo{{Calendar: ids[0], Busy: b.busy}}
	return infos, nil
}

func (b *stubBackend) ListEvents(context.Context, string, time.Time, time.Time, string) ([]calendar.EventSummary, error) {
	return nil, nil
}

func (b *stubBackend) CreateEvent(_ context.Context, _ string, input calendar.EventInput) (*calendar.EventSummary, error) {
	return &calendar.EventSummary{ID: "ev", Summary: input.Summary}, nil
}

func testConfig() config.Config {
	return config.Config{
		Account:        config.DefaultAccount,
		CalendarID:     calendar.PrimaryCalendarID,
		WorkStartHour:  8,
		WorkEndHour:    17,
		SlotStep:       30 * time.Minute,
		TimeZone:       "UTC",
		BackendTimeout: 5 * time.Second,
	}
}

func newTestContext(t *testing.T) *ServerContext {
	t.Helper()
	sc, err := NewServerContext(context.Background(), testConfig(), WithTokenProvider(noTokens{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContext_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.WorkEndHour = 6
	_, err := NewServerContext(context.Background(), cfg)
	assert.Error(t, err)
}

func TestServerContext_MissingToken(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	_, err := sc.CalendarBackendForAccount(ctx, "work")
	assert.ErrorIs(t, err, google.ErrNoToken)
	assert.Contains(t, err.Error(), `account "work"`)

	_, err = sc.EmailSenderForAccount(ctx, "")
	assert.ErrorIs(t, err, google.ErrNoToken)

	_, err = sc.CalculatorForAccount(ctx, "work")
	assert.ErrorIs(t, err, google.ErrNoToken)
}

func TestServerContext_InstalledClients(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	backend := &stubBackend{}
	sc.SetCalendarBackendForAccount("", backend)
	got, err := sc.CalendarBackendForAccount(ctx, config.DefaultAccount)
	require.NoError(t, err)
	assert.Same(t, backend, got)

	calc, err := sc.CalculatorForAccount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, calc.Location())
}

func TestServerContext_ExecutorUsesDraftAccount(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	work := &stubSender{account: "work"}
	def := &stubSender{account: config.DefaultAccount}
	sc.SetEmailSenderForAccount("work", work)
	sc.SetEmailSenderForAccount("", def)

	m := sc.Machine()
	_, err := m.Submit(ctx, "s1", ToolEmailSend, map[string]any{
		"account": "work", "to": "jane@example.com", "subject": "Hi", "body": "Hello",
	})
	require.NoError(t, err)
	out, err := m.Decide(ctx, "s1", approval.Approve())
	require.NoError(t, err)
	assert.Equal(t, approval.OutcomeExecuted, out.Kind)
	assert.Equal(t, "Email sent successfully. Message Id: id-Hi", out.Result)
	assert.Equal(t, []string{"work"}, work.accounts)
	assert.Empty(t, def.accounts)

	_, err = m.Submit(ctx, "s2", ToolEmailSend, map[string]any{
		"to": "jane@example.com", "subject": "Hey", "body": "Hello",
	})
	require.NoError(t, err)
	_, err = m.Decide(ctx, "s2", approval.Approve())
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultAccount}, def.accounts)
}

func TestServerContext_ExecutorFailure(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()
	sc.SetEmailSenderForAccount("", &stubSender{err: errors.New("quota exceeded")})

	_, err := sc.Machine().Submit(ctx, "s1", ToolEmailSend, map[string]any{
		"to": "jane@example.com", "subject": "Hi", "body": "Hello",
	})
	require.NoError(t, err)
	out, err := sc.Machine().Decide(ctx, "s1", approval.Approve())
	require.NoError(t, err)
	assert.Equal(t, approval.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Error, "quota exceeded")
}

func TestServerContext_SessionClosed(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	_, err := sc.Machine().Submit(ctx, "s1", ToolEmailSend, map[string]any{"to": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, approval.StateAwaitingDecision, sc.Machine().State("s1"))

	sc.SessionClosed("s1")
	assert.Equal(t, approval.StateNoPending, sc.Machine().State("s1"))
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := newTestContext(t)
	assert.False(t, sc.IsShutdown())

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
	assert.NoError(t, sc.Shutdown(), "second shutdown is a no-op")
}
