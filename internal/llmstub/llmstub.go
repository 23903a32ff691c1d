// Package llmstub serves a fake OpenAI-compatible chat completions API. It
// backs network-free tests and cmd/openai-stub.
package llmstub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Response shapes the stub can answer with.
const (
	// StyleOpenAI answers {"choices":[{"message":{"content":...}}]}.
	StyleOpenAI = "openai"
	// StyleResponse answers {"response":...}, the shape some self-hosted
	// gateways use.
	StyleResponse = "response"
)

// SizeLimitMessage is the error text returned when a request exceeds MaxInput.
const SizeLimitMessage = "This model's maximum context length is exceeded; please reduce the length of the messages."

// Server is an http.Handler implementing /v1/models and /v1/chat/completions.
// The zero value answers every request with a summary in the OpenAI shape.
type Server struct {
	// Model is reported by /v1/models. Empty means "test-model".
	Model string
	// MaxInput rejects requests whose last message is longer than this many
	// runes. Zero disables the limit.
	MaxInput int
	// LimitStatus is the status used for size rejections. Zero means 400.
	LimitStatus int
	// Style selects the success response shape.
	Style string
	// Reply builds the completion from the last user message. Nil uses a
	// deterministic digest of the message.
	Reply func(content string) string

	mu       sync.Mutex
	requests []Request
}

// Request is a chat request as the stub recorded it.
type Request struct {
	Model         string
	Authorization string
	Content       string
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// Requests returns a copy of the chat requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns the number of chat requests received so far.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/v1/models", "/models":
		s.models(w)
	case "/v1/chat/completions", "/chat/completions":
		s.chat(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) models(w http.ResponseWriter) {
	model := s.Model
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   []map[string]any{{"id": model, "object": "model", "owned_by": "stub"}},
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body: "+err.Error())
		return
	}
	content := ""
	if n := len(req.Messages); n > 0 {
		content = req.Messages[n-1].Content
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{Model: req.Model, Authorization: r.Header.Get("Authorization"), Content: content})
	call := len(s.requests)
	s.mu.Unlock()

	size := utf8.RuneCountInString(content)
	log.Debug().Int("call", call).Str("model", req.Model).Int("runes", size).Msg("stub chat request")
	if s.MaxInput > 0 && size > s.MaxInput {
		status := s.LimitStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeError(w, status, "context_length_exceeded", SizeLimitMessage)
		return
	}

	reply := s.Reply
	if reply == nil {
		reply = Digest
	}
	text := reply(content)
	if s.Style == StyleResponse {
		writeJSON(w, http.StatusOK, map[string]any{"response": text})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-stub-%d", call),
		"object":  "chat.completion",
		"model":   req.Model,
		"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": text}}},
	})
}

// Digest is the default reply: a short Markdown summary naming the first
// heading of the content and its size.
func Digest(content string) string {
	title := "Summary"
	for _, line := range strings.Split(content, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok && strings.TrimSpace(t) != "" {
			title = strings.TrimSpace(t)
			break
		}
	}
	return fmt.Sprintf("# %s\n\nDigest of %d characters.", title, utf8.RuneCountInString(content))
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg, "type": "invalid_request_error", "code": code},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
