package agent

import (
	"context"

	"github.com/teemow/concierge/internal/router"
)

// Supervisor tool names.
const (
	ToolScheduleEvent = "schedule_event"
	ToolManageEmail   = "manage_email"
)

// NewSupervisor creates the top-level agent that delegates calendar work
// to calendarAgent and email work, including approval replies, to emailAgent.
func NewSupervisor(cfg Config, prompts *Prompts, userName string, calendarAgent, emailAgent router.SubAgent) (*Agent, error) {
	system, err := prompts.Render(PromptSupervisor, map[string]any{"user_name": userName})
	if err != nil {
		return nil, err
	}

	emailRouter := router.New(ToolManageEmail, emailAgent, cfg.Logger)

	requestParam := []Param{{Name: "request", Type: TypeString, Required: true}}

	cfg.Name = "supervisor"
	cfg.SystemPrompt = system
	cfg.Tools = []Tool{
		{
			Spec: ToolSpec{
				Name: ToolScheduleEvent,
				Description: "Schedule calendar events using natural language. Use this when the user wants to create, " +
					"modify, or check calendar appointments. Input: a natural language scheduling request " +
					"(e.g., 'meeting with design team next Tuesday at 2pm').",
				Params: requestParam,
			},
			Handler: func(ctx context.Context, threadID string, args map[string]any) (string, error) {
				req, err := requiredString(args, "request")
				if err != nil {
					return "", err
				}
				res, err := calendarAgent.Invoke(ctx, threadID, req)
				if err != nil {
					return "", err
				}
				return router.Render(res), nil
			},
		},
		{
			Spec: ToolSpec{
				Name: ToolManageEmail,
				Description: "Send emails using natural language. Use this when the user wants to send notifications, " +
					"reminders, or any email communication. Input: a natural language email request " +
					"(e.g., 'send them a reminder about the meeting') OR an approval reply: 'Approve', " +
					"'Reject [reason]', 'Edit: [changes]'.",
				Params: requestParam,
			},
			Handler: func(ctx context.Context, threadID string, args map[string]any) (string, error) {
				req, err := requiredString(args, "request")
				if err != nil {
					return "", err
				}
				return emailRouter.Route(ctx, threadID, req), nil
			},
		},
	}
	return New(cfg)
}
