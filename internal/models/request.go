package models

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxChatMessages = 50

	// Chat timeouts in seconds.
	DefaultChatTimeout = 120
	MinChatTimeout     = 10
	MaxChatTimeout     = 600

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged entry of the conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest for POST /api/v1/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Timeout  int           `json:"timeout"`
}

func (r *ChatRequest) SetDefaults() {
	if r.Timeout == 0 {
		r.Timeout = DefaultChatTimeout
	}
	if r.Timeout < MinChatTimeout {
		r.Timeout = MinChatTimeout
	}
	if r.Timeout > MaxChatTimeout {
		r.Timeout = MaxChatTimeout
	}
}

// Validate checks the conversation shape. The last message must come from the user.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	if len(r.Messages) > MaxChatMessages {
		return fmt.Errorf("too many messages: %d (max %d)", len(r.Messages), MaxChatMessages)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("messages[%d]: content cannot be empty", i)
		}
	}
	if last := r.Messages[len(r.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("last message must have role %q", RoleUser)
	}
	return nil
}

// LastUserMessage returns the content the router and validators look at.
func (r *ChatRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
