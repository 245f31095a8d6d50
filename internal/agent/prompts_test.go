package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts_Default(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)

	vars := map[string]any{"today": "2026-03-02", "user_name": "Alice"}
	for _, key := range []string{PromptSupervisor, PromptCalendar, PromptEmail} {
		t.Run(key, func(t *testing.T) {
			out, err := p.Render(key, vars)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestLoadPrompts_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_key: \"Hello {{.name}}!\"\nsimple_key: Just a string.\n"), 0o600))

	p, err := LoadPrompts(path)
	require.NoError(t, err)

	out, err := p.Render("test_key", map[string]any{"name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", out)

	out, err = p.Render("simple_key", nil)
	require.NoError(t, err)
	assert.Equal(t, "Just a string.", out)

	_, err = p.Render("missing", nil)
	assert.Error(t, err)

	_, err = p.Render("test_key", map[string]any{})
	assert.Error(t, err, "missing variables are an error")
}

func TestLoadPrompts_Errors(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParsePrompts([]byte("bad: \"{{.unclosed\"\n"))
	assert.Error(t, err)

	_, err = ParsePrompts([]byte("- not\n- a map\n"))
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"missing", nil, 30, false},
		{"float", float64(45), 45, false},
		{"fraction", 1.5, 0, true},
		{"string", "60", 60, false},
		{"bad string", "soon", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.value != nil {
				args["n"] = tt.value
			}
			got, err := intArg(args, "n", 30)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
