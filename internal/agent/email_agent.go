package agent

import (
	"context"
	"fmt"

	"github.com/teemow/concierge/internal/approval"
	"github.com/teemow/concierge/internal/gmail"
)

// ToolSendEmail is the gated email tool.
const ToolSendEmail = "send_email"

// SendEmailSpec declares the send_email tool.
var SendEmailSpec = ToolSpec{
	Name:        ToolSendEmail,
	Description: "Send an email. The draft is shown to the user, who must approve it before it is sent.",
	Params: []Param{
		{Name: "to", Type: TypeStringArray, Description: "Recipient email addresses", Required: true},
		{Name: "subject", Type: TypeString, Description: "Email subject", Required: true},
		{Name: "body", Type: TypeString, Description: "Email body", Required: true},
		{Name: "cc", Type: TypeStringArray, Description: "CC recipients"},
	},
}

// NewEmailAgent creates the email sub-agent. Its send_email calls go
// through machine, which sends approved drafts with sender.
func NewEmailAgent(cfg Config, prompts *Prompts, userName string, sender gmail.Sender, machine *approval.Machine) (*Agent, error) {
	system, err := prompts.Render(PromptEmail, map[string]any{"user_name": userName})
	if err != nil {
		return nil, err
	}

	machine.RegisterExecutor(ToolSendEmail, EmailExecutor(sender))

	cfg.Name = "email"
	cfg.SystemPrompt = system
	cfg.Machine = machine
	cfg.Tools = []Tool{{Spec: SendEmailSpec, Gated: true}}
	return New(cfg)
}

// EmailExecutor sends approved send_email drafts.
func EmailExecutor(sender gmail.Sender) approval.Executor {
	return approval.ExecutorFunc(func(ctx context.Context, action approval.PendingAction) (string, error) {
		msg, err := EmailFromArgs(action.Arguments)
		if err != nil {
			return "", err
		}
		id, err := sender.SendEmail(ctx, msg)
		if err != nil {
			return "", fmt.Errorf("error sending email: %w", err)
		}
		return "Email sent successfully. Message Id: " + id, nil
	})
}

// EmailFromArgs builds a validated message from send_email arguments.
func EmailFromArgs(args map[string]any) (*gmail.EmailMessage, error) {
	msg := &gmail.EmailMessage{
		To:      stringSliceArg(args, "to"),
		Cc:      stringSliceArg(args, "cc"),
		Bcc:     stringSliceArg(args, "bcc"),
		Subject: stringArg(args, "subject"),
		Body:    stringArg(args, "body"),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
