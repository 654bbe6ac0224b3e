package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seattleguide/seattleguide/internal/service"
	"github.com/seattleguide/seattleguide/internal/tools"
)

// Guide runs the multi-turn tool-calling loop for one chat request.
type Guide struct {
	model         Model
	maxTokens     int
	maxIterations int
}

func NewGuide(model Model, maxTokens, maxIterations int) *Guide {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if maxIterations <= 0 {
		maxIterations = 1
	}
	return &Guide{model: model, maxTokens: maxTokens, maxIterations: maxIterations}
}

// Model returns the name of the underlying model.
func (g *Guide) Model() string { return g.model.Name() }

// RunResult summarises a finished loop.
type RunResult struct {
	ToolsUsed  []string
	Iterations int
	Forced     bool
}

// Run streams the reply to w while the model calls tools until it stops
// asking for them. Tool failures are handed back to the model as error
// results; only a missing credential aborts the run. When the iteration cap is
// reached the model is asked for a final answer with tool use disabled.
func (g *Guide) Run(ctx context.Context, conversation []Message, reg *tools.Registry, w io.Writer) (*RunResult, error) {
	available := reg.Tools()

	var extra []string
	msgs := make([]Message, 0, len(conversation)+2*g.maxIterations)
	for _, m := range conversation {
		if m.Role == RoleSystem {
			extra = append(extra, m.Text)
			continue
		}
		msgs = append(msgs, m)
	}

	turn := Turn{
		System:    SystemPrompt(available, extra),
		Tools:     available,
		MaxTokens: g.maxTokens,
	}
	out := &textWriter{w: w}
	res := &RunResult{}

	for iter := 0; iter < g.maxIterations; iter++ {
		res.Iterations++
		turn.Messages = msgs
		out.startStep()

		step, err := g.model.Stream(ctx, turn, out.write)
		if err != nil {
			return res, err
		}

		log.Debug().
			Int("iter", iter).
			Str("stop_reason", step.StopReason).
			Int("tool_calls", len(step.ToolCalls)).
			Msg("agent iteration")

		if len(step.ToolCalls) == 0 {
			return res, nil
		}

		msgs = append(msgs, Message{Role: RoleAssistant, Text: step.Text, ToolCalls: step.ToolCalls})
		results, err := runTools(ctx, reg, step.ToolCalls)
		if err != nil {
			return res, err
		}
		for _, c := range step.ToolCalls {
			res.ToolsUsed = append(res.ToolsUsed, c.Name)
		}
		msgs = append(msgs, Message{Role: RoleUser, ToolResults: results})
	}

	res.Forced = true
	res.Iterations++
	turn.Messages = append(msgs, Message{Role: RoleUser, Text: forceFinalPrompt})
	turn.NoToolUse = true
	out.startStep()
	if _, err := g.model.Stream(ctx, turn, out.write); err != nil {
		return res, fmt.Errorf("final answer call failed: %w", err)
	}
	return res, nil
}

// runTools executes one step's calls concurrently; results keep call order.
func runTools(ctx context.Context, reg *tools.Registry, calls []ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			start := time.Now()
			content, err := reg.Dispatch(gctx, call.Name, call.Input)
			if errors.Is(err, service.ErrMissingCredential) {
				return err
			}

			results[i] = ToolResult{CallID: call.ID, Name: call.Name, Content: content}
			if err != nil {
				log.Warn().Err(err).Str("tool", call.Name).Str("input", string(call.Input)).
					Dur("duration", time.Since(start)).Msg("tool execution error")
				results[i].Content = fmt.Sprintf("error: %v", err)
				results[i].IsError = true
				return nil
			}
			log.Info().Str("tool", call.Name).Dur("duration", time.Since(start)).
				Int("result_bytes", len(content)).Msg("tool executed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// textWriter separates text from consecutive steps with a blank line.
type textWriter struct {
	w       io.Writer
	wrote   bool
	newStep bool
}

func (t *textWriter) startStep() { t.newStep = true }

func (t *textWriter) write(s string) error {
	if t.newStep && t.wrote {
		if _, err := io.WriteString(t.w, "\n\n"); err != nil {
			return err
		}
	}
	t.newStep = false
	if _, err := io.WriteString(t.w, s); err != nil {
		return err
	}
	t.wrote = true
	return nil
}
