package agent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Prompt keys.
const (
	PromptSupervisor = "supervisor"
	PromptCalendar   = "calendar"
	PromptEmail      = "email"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts is a set of named system prompt templates.
type Prompts struct {
	templates map[string]*template.Template
}

// LoadPrompts reads prompts from path, or the built-in set when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return ParsePrompts(defaultPrompts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts parses a YAML mapping of prompt key to template text.
func ParsePrompts(data []byte) (*Prompts, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	p := &Prompts{templates: make(map[string]*template.Template, len(raw))}
	for key, text := range raw {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", key, err)
		}
		p.templates[key] = tmpl
	}
	return p, nil
}

// Render executes the prompt named key with vars.
func (p *Prompts) Render(key string, vars map[string]any) (string, error) {
	tmpl, ok := p.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("prompt %q: %w", key, err)
	}
	return b.String(), nil
}
