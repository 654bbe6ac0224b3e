package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seattleguide/seattleguide/internal/agent"
	"github.com/seattleguide/seattleguide/internal/models"
	"github.com/seattleguide/seattleguide/internal/service"
)

// StreamApology is appended when the reply breaks off after bytes were sent.
const StreamApology = "\n\nSorry, something went wrong while answering. Please try again."

// streamMargin leaves room to write the timeout response before the server's
// write deadline closes the connection.
const streamMargin = 5 * time.Second

// ChatHandler handles POST /api/v1/chat
type ChatHandler struct {
	chat        *agent.ChatHandler
	keyHeader   string
	maxDuration time.Duration
}

// NewChatHandler caps every reply at writeTimeout minus a small margin so the
// request deadline fires before the server cuts the stream. A non-positive
// writeTimeout leaves only the per-request timeout.
func NewChatHandler(chat *agent.ChatHandler, keyHeader string, writeTimeout time.Duration) *ChatHandler {
	if keyHeader == "" {
		keyHeader = "X-API-Key"
	}
	h := &ChatHandler{chat: chat, keyHeader: keyHeader}
	if writeTimeout > 0 {
		h.maxDuration = max(writeTimeout-streamMargin, writeTimeout/2)
	}
	return h
}

// Chat streams the assistant reply as plain text, flushing after every delta.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	apiKey := r.Header.Get(h.keyHeader)

	session, err := h.chat.Prepare(&req, apiKey)
	if err != nil {
		if errors.Is(err, agent.ErrRejected) {
			models.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("chat prepare failed")
		models.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	timeout := time.Duration(req.Timeout) * time.Second
	if h.maxDuration > 0 && timeout > h.maxDuration {
		timeout = h.maxDuration
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	sw := &streamWriter{w: w, offered: strings.Join(session.OfferedNames(), ",")}
	err = h.chat.Stream(ctx, session, apiKey, sw)
	if err == nil {
		if !sw.started {
			// Empty reply; still answer with the streaming content type.
			sw.writeHeader()
		}
		return
	}

	log.Error().
		Err(err).
		Bool("partial", sw.started).
		Strs("tools_offered", session.OfferedNames()).
		Msg("chat stream failed")

	if sw.started {
		_, _ = io.WriteString(sw, StreamApology)
		return
	}

	status := http.StatusInternalServerError
	msg := "the assistant could not answer right now"
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		status = http.StatusServiceUnavailable
		msg = "a lookup service is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		msg = "the assistant took too long to answer"
	}
	models.WriteError(w, status, msg)
}

// streamWriter delays the status line until the first byte so errors raised
// before any output can still become a JSON error response.
type streamWriter struct {
	w       http.ResponseWriter
	offered string
	started bool
}

func (s *streamWriter) writeHeader() {
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Tools-Offered", s.offered)
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if !s.started {
		s.writeHeader()
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, nil
}
