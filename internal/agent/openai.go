package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/seattleguide/seattleguide/internal/tools"
)

// OpenAIModel streams chat completions from OpenAI or any compatible endpoint.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

func NewOpenAIModel(apiKey, model, baseURL string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (m *OpenAIModel) Name() string { return m.model }

func (m *OpenAIModel) Stream(ctx context.Context, turn Turn, onText func(string) error) (*Step, error) {
	req := openai.ChatCompletionRequest{
		Model:     m.model,
		MaxTokens: turn.MaxTokens,
		Messages:  toOpenAIMessages(turn.System, turn.Messages),
		Stream:    true,
	}
	if len(turn.Tools) > 0 {
		req.Tools = toOpenAITools(turn.Tools)
		if turn.NoToolUse {
			req.ToolChoice = "none"
		}
	}

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	defer stream.Close()

	step := &Step{}
	calls := map[int]*ToolCall{}
	args := map[int][]byte{}
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LLM stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			step.StopReason = string(choice.FinishReason)
		}
		if text := choice.Delta.Content; text != "" {
			step.Text += text
			if err := onText(text); err != nil {
				return nil, err
			}
		}
		// Tool calls arrive in fragments keyed by index: the first carries id
		// and name, later ones append to the arguments.
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &ToolCall{}
				calls[idx] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Name = tc.Function.Name
			}
			args[idx] = append(args[idx], tc.Function.Arguments...)
		}
	}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		call := calls[idx]
		call.Input = args[idx]
		step.ToolCalls = append(step.ToolCalls, *call)
	}
	return step, nil
}

func toOpenAITools(ts []tools.Tool) []openai.Tool {
	out := make([]openai.Tool, len(ts))
	for i, t := range ts {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(t.Name),
				Description: t.Description,
				Parameters:  t.InputSchema(),
			},
		}
	}
	return out
}

func toOpenAIMessages(system string, msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		// Chat completions have no error flag on tool messages; failed results
		// already carry an "error:" prefix.
		for _, r := range m.ToolResults {
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    r.Content,
				ToolCallID: r.CallID,
			})
		}
		if m.Role == RoleAssistant {
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text}
			for _, c := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   c.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      c.Name,
						Arguments: string(inputOrEmpty(c.Input)),
					},
				})
			}
			if msg.Content != "" || len(msg.ToolCalls) > 0 {
				out = append(out, msg)
			}
			continue
		}
		if m.Text != "" {
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text})
		}
	}
	return out
}
