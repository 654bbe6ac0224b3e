package security

import (
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// ChatAudit describes one finished chat request.
type ChatAudit struct {
	Prompt          string
	APIKey          string
	Model           string
	ToolsOffered    []string
	ToolsUsed       []string
	Iterations      int
	Success         bool
	ExecutionTimeMs int64
	Error           string
}

// LogChatRequest records a chat request. The prompt and key are only logged as hashes.
func (a *AuditLogger) LogChatRequest(e ChatAudit) {
	if !a.enabled {
		return
	}

	evt := log.Info().
		Str("event", "chat_audit").
		Str("prompt_hash", hashStr(e.Prompt)[:16]).
		Str("api_key_hash", hashStr(e.APIKey)[:16]).
		Str("model", e.Model).
		Strs("tools_offered", e.ToolsOffered).
		Strs("tools_used", e.ToolsUsed).
		Int("iterations", e.Iterations).
		Bool("success", e.Success).
		Int64("execution_time_ms", e.ExecutionTimeMs)

	if e.Error != "" {
		evt = evt.Str("error", e.Error)
	}
	evt.Msg("audit")
}

// LogRejected records a message refused before it reached the model.
func (a *AuditLogger) LogRejected(prompt, apiKey, reason string) {
	if !a.enabled {
		return
	}
	log.Warn().
		Str("event", "chat_rejected").
		Str("prompt_hash", hashStr(prompt)[:16]).
		Str("api_key_hash", hashStr(apiKey)[:16]).
		Str("reason", reason).
		Msg("audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
