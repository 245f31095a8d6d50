package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the model answers with no candidates.
var ErrEmptyResponse = errors.New("model returned an empty response")

// GeminiModel runs sessions against the Gemini API with function calling.
type GeminiModel struct {
	client      *genai.Client
	name        string
	temperature float32
}

// NewGeminiModel creates a Gemini client for the named model.
func NewGeminiModel(ctx context.Context, apiKey, name string, temperature float32) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY or GOOGLE_API_KEY must be set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, name: name, temperature: temperature}, nil
}

// Close releases the underlying client.
func (g *GeminiModel) Close() error {
	return g.client.Close()
}

// NewSession starts a chat with the given system prompt and tools.
func (g *GeminiModel) NewSession(system string, tools []ToolSpec) (Session, error) {
	model := g.client.GenerativeModel(g.name)
	model.SetTemperature(g.temperature)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, functionDeclaration(t))
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &geminiSession{chat: model.StartChat()}, nil
}

func functionDeclaration(t ToolSpec) *genai.FunctionDeclaration {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(t.Params)),
	}
	for _, p := range t.Params {
		schema.Properties[p.Name] = paramSchema(p)
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schema,
	}
}

func paramSchema(p Param) *genai.Schema {
	switch p.Type {
	case TypeInteger:
		return &genai.Schema{Type: genai.TypeInteger, Description: p.Description}
	case TypeStringArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: p.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: p.Description}
	}
}

type geminiSession struct {
	chat *genai.ChatSession
}

func (s *geminiSession) SendText(ctx context.Context, text string) (Reply, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return Reply{}, fmt.Errorf("gemini generate error: %w", err)
	}
	return toReply(resp)
}

func (s *geminiSession) SendResults(ctx context.Context, results []ToolResult) (Reply, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     r.Name,
			Response: map[string]any{"result": r.Output},
		})
	}
	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini generate error: %w", err)
	}
	return toReply(resp)
}

func toReply(resp *genai.GenerateContentResponse) (Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Reply{}, ErrEmptyResponse
	}

	var (
		reply Reply
		sb    strings.Builder
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.FunctionCall:
			reply.Calls = append(reply.Calls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	reply.Text = strings.TrimSpace(sb.String())
	return reply, nil
}
