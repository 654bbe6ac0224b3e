package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seattleguide/seattleguide/internal/config"
	"github.com/seattleguide/seattleguide/internal/models"
	"github.com/seattleguide/seattleguide/internal/security"
	"github.com/seattleguide/seattleguide/internal/service"
	"github.com/seattleguide/seattleguide/internal/tools"
)

// ErrRejected marks a request refused before any model or tool call.
var ErrRejected = errors.New("message rejected")

// ChatHandler orchestrates the chat pipeline: validation, routing, the
// per-request tool registry and the guide loop.
type ChatHandler struct {
	guide       *Guide
	router      *service.IntentRouter
	services    tools.Services
	toolConfig  tools.Config
	routingMode string
	piiDetector *security.PIIDetector
	promptVal   *security.PromptValidator
	auditLogger *security.AuditLogger
}

// NewChatHandler creates a handler wired with security components. A nil
// promptVal disables injection checks.
func NewChatHandler(
	guide *Guide,
	router *service.IntentRouter,
	services tools.Services,
	toolConfig tools.Config,
	routingMode string,
	piiDetector *security.PIIDetector,
	promptVal *security.PromptValidator,
	auditLogger *security.AuditLogger,
) *ChatHandler {
	return &ChatHandler{
		guide:       guide,
		router:      router,
		services:    services,
		toolConfig:  toolConfig,
		routingMode: routingMode,
		piiDetector: piiDetector,
		promptVal:   promptVal,
		auditLogger: auditLogger,
	}
}

// Session is a validated and routed request, ready to stream.
type Session struct {
	Conversation []Message
	Registry     *tools.Registry
	Offered      []tools.Name
	Routing      service.RoutingResult
	prompt       string
}

// OfferedNames lists the offered tools as strings.
func (s *Session) OfferedNames() []string {
	names := make([]string, len(s.Offered))
	for i, n := range s.Offered {
		names[i] = string(n)
	}
	return names
}

// Prepare validates the conversation and decides which tools this request may
// use. It makes no outbound calls.
func (h *ChatHandler) Prepare(req *models.ChatRequest, apiKey string) (*Session, error) {
	prompt := req.LastUserMessage()
	reject := func(reason string) error {
		h.auditLogger.LogRejected(prompt, apiKey, reason)
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	if err := req.Validate(); err != nil {
		return nil, reject(err.Error())
	}

	conversation := make([]Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		if m.Role != models.RoleAssistant {
			if found, kw := h.piiDetector.Detect(m.Content); found {
				return nil, reject(fmt.Sprintf("messages[%d]: sensitive data detected (%s), please remove it", i, kw))
			}
			if h.promptVal != nil {
				if vr := h.promptVal.Validate(m.Content); !vr.Valid {
					return nil, reject(fmt.Sprintf("messages[%d]: %s", i, vr.Message))
				}
			}
		}
		conversation = append(conversation, Message{Role: Role(m.Role), Text: m.Content})
	}

	routing := h.router.Route(prompt)
	offered := tools.ForIntents(routing.Intents)
	if h.routingMode == config.RoutingModeModel {
		offered = tools.AllNames()
	}

	reg, err := tools.NewRegistry(h.toolConfig, h.services, offered...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	log.Debug().
		Str("routing_mode", h.routingMode).
		Float64("confidence", routing.Confidence).
		Str("reasoning", routing.Reasoning).
		Int("tools_offered", len(offered)).
		Msg("chat routed")

	return &Session{
		Conversation: conversation,
		Registry:     reg,
		Offered:      reg.Names(),
		Routing:      routing,
		prompt:       prompt,
	}, nil
}

// Stream runs the guide and writes the reply to w as it is generated.
func (h *ChatHandler) Stream(ctx context.Context, s *Session, apiKey string, w io.Writer) error {
	start := time.Now()
	res, err := h.guide.Run(ctx, s.Conversation, s.Registry, w)

	audit := security.ChatAudit{
		Prompt:          s.prompt,
		APIKey:          apiKey,
		Model:           h.guide.Model(),
		ToolsOffered:    s.OfferedNames(),
		Success:         err == nil,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	if res != nil {
		audit.ToolsUsed = res.ToolsUsed
		audit.Iterations = res.Iterations
	}
	if err != nil {
		audit.Error = err.Error()
	}
	h.auditLogger.LogChatRequest(audit)

	if err != nil {
		return fmt.Errorf("agent run: %w", err)
	}
	return nil
}
