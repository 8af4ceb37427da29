package providers

import (
	"encoding/json"
	"testing"

	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicBuildURL(t *testing.T) {
	p := &AnthropicProvider{}
	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "https://proxy.local/v1/messages", p.BuildURL("https://proxy.local/"))
}

func TestAnthropicBuildRequestBody_SystemPromptLifted(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-x", []llm.Message{
		{Role: "system", Content: "You generate incidents."},
		{Role: "user", Content: "Go."},
	}, nil, 0)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "You generate incidents.", req["system"])
	assert.Len(t, req["messages"], 1, "system message must not appear in messages")
	assert.Equal(t, float64(4096), req["max_tokens"], "default max_tokens applied")
}

func TestAnthropicParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}],
		"model": "claude-x",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 7, "output_tokens": 4}
	}`), "claude-x")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, 11, resp.TokensUsed)
	assert.Equal(t, "end_turn", resp.FinishReason)
}
