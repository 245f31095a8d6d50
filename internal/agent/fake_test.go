package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/concierge/internal/gmail"
)

// scriptedModel hands out sessions that answer from a shared script.
// Each step inspects what was sent and returns the next reply.
type scriptedModel struct {
	mu       sync.Mutex
	steps    []step
	sent     []string
	sessions int
	system   string
	tools    []ToolSpec
}

type step func(text string, results []ToolResult) (Reply, error)

func (m *scriptedModel) NewSession(system string, tools []ToolSpec) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	m.system = system
	m.tools = tools
	return &scriptedSession{model: m}, nil
}

func (m *scriptedModel) next(text string, results []ToolResult) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text != "" {
		m.sent = append(m.sent, text)
	}
	for _, r := range results {
		m.sent = append(m.sent, r.Name+"="+r.Output)
	}
	if len(m.steps) == 0 {
		return Reply{}, fmt.Errorf("script exhausted")
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	return s(text, results)
}

type scriptedSession struct {
	model *scriptedModel
}

func (s *scriptedSession) SendText(_ context.Context, text string) (Reply, error) {
	return s.model.next(text, nil)
}

func (s *scriptedSession) SendResults(_ context.Context, results []ToolResult) (Reply, error) {
	return s.model.next("", results)
}

func say(text string) step {
	return func(string, []ToolResult) (Reply, error) {
		return Reply{Text: text}, nil
	}
}

func call(name string, args map[string]any) step {
	return func(string, []ToolResult) (Reply, error) {
		return Reply{Calls: []ToolCall{{Name: name, Args: args}}}, nil
	}
}

// echo answers with the output of the first tool result.
func echo() step {
	return func(_ string, results []ToolResult) (Reply, error) {
		if len(results) == 0 {
			return Reply{}, fmt.Errorf("expected tool results")
		}
		return Reply{Text: results[0].Output}, nil
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, msg *gmail.EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg.Body)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}
