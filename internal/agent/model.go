package agent

import (
	"context"
	"encoding/json"

	"github.com/seattleguide/seattleguide/internal/tools"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the working conversation. Assistant messages may
// carry tool calls; the user message that follows carries their results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall represents a tool invocation request from the LLM
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is the outcome of one ToolCall, fed back to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Turn is everything a model needs for one completion. With NoToolUse set the
// tools stay declared, since the history may reference them, but the model
// must answer in text.
type Turn struct {
	System    string
	Messages  []Message
	Tools     []tools.Tool
	NoToolUse bool
	MaxTokens int
}

// Step is what the model produced in one completion.
type Step struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Model streams one completion. onText receives text deltas as they arrive;
// an error from onText stops the stream and is returned as is.
type Model interface {
	Name() string
	Stream(ctx context.Context, turn Turn, onText func(string) error) (*Step, error)
}

func inputOrEmpty(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return json.RawMessage(`{}`)
	}
	return in
}
