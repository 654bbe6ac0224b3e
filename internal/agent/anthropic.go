package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/seattleguide/seattleguide/internal/tools"
)

// AnthropicModel streams completions from the Messages API or a compatible provider.
type AnthropicModel struct {
	client anthropic.Client
	model  string
}

func NewAnthropicModel(apiKey, model, baseURL string, extra ...option.RequestOption) *AnthropicModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (m *AnthropicModel) Name() string { return m.model }

func (m *AnthropicModel) Stream(ctx context.Context, turn Turn, onText func(string) error) (*Step, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: int64(turn.MaxTokens),
		Messages:  toAnthropicMessages(turn.Messages),
	}
	if turn.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: turn.System}}
	}
	if len(turn.Tools) > 0 {
		params.Tools = toAnthropicTools(turn.Tools)
		if turn.NoToolUse {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		}
	}

	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
			if err := onText(text.Text); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	// Read the accumulated union fields directly: tool input is built up from
	// deltas on the block itself.
	step := &Step{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			step.Text += block.Text
		case "tool_use":
			step.ToolCalls = append(step.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}
	return step, nil
}

func toAnthropicTools(ts []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(ts))
	for i, t := range ts {
		out[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        string(t.Name),
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Properties(),
				Required:   t.Required(),
			},
		}}
	}
	return out
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		for _, r := range m.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Content, r.IsError))
		}
		if m.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Text))
		}
		for _, c := range m.ToolCalls {
			blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, inputOrEmpty(c.Input), c.Name))
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}
