// Package summarize sends page content to a remote chat service and
// classifies the answer.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/hyperifyio/pagedigest/internal/cache"
	"github.com/hyperifyio/pagedigest/internal/llm"
)

// maxResponseBytes caps how much of a custom provider's answer is read.
const maxResponseBytes = 4 << 20

// Request is one summarization attempt.
type Request struct {
	Provider       llm.Provider
	APIKey         string
	Content        string
	PromptTemplate string
	MaxLength      int
}

// ChatFactory builds the chat client used for standard providers.
type ChatFactory func(endpoint string, apiKey string, httpClient *http.Client) llm.Client

// Client talks to the configured provider. The zero value is usable.
type Client struct {
	HTTPClient *http.Client
	// Cache, when set, serves repeated prompts without a remote call.
	Cache *cache.SummaryCache
	// NewChat overrides the go-openai client for standard providers.
	NewChat ChatFactory
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Summarize performs one remote call and never returns an error: every
// problem is folded into a Failure or SizeLimitExceeded outcome.
func (c *Client) Summarize(ctx context.Context, req Request) Outcome {
	if req.Provider == nil {
		return Failure{Message: "no provider configured"}
	}
	message := UserMessage(req)
	model := req.Provider.ModelName()
	key := cache.KeyFrom(model, message)
	if c.Cache != nil {
		if text, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
			log.Debug().Str("model", model).Msg("summary cache hit")
			return Success{Text: text}
		}
	}

	log.Debug().Str("provider", req.Provider.KeyName()).Str("model", model).Int("chars", len([]rune(message))).Msg("requesting summary")
	var out Outcome
	switch p := req.Provider.(type) {
	case llm.StandardProvider:
		out = c.standard(ctx, p, req.APIKey, message)
	case llm.CustomProvider:
		out = c.custom(ctx, p, req.APIKey, message)
	default:
		out = Failure{Message: fmt.Sprintf("unsupported provider %T", req.Provider)}
	}

	if s, ok := out.(Success); ok && c.Cache != nil {
		if err := c.Cache.Save(ctx, key, model, s.Text); err != nil {
			log.Warn().Err(err).Msg("summary cache save failed")
		}
	}
	return out
}

func (c *Client) standard(ctx context.Context, p llm.StandardProvider, apiKey string, message string) Outcome {
	var chat llm.Client
	if c.NewChat != nil {
		chat = c.NewChat(p.Endpoint, apiKey, c.HTTPClient)
	} else {
		chat = llm.NewOpenAI(p.Endpoint, apiKey, c.HTTPClient)
	}
	resp, err := chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.Model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: message}},
	})
	if err != nil {
		return classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return Failure{Message: "no choices returned"}
	}
	return Success{Text: resp.Choices[0].Message.Content}
}

func classifyError(err error) Outcome {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusRequestEntityTooLarge || IsSizeLimit(apiErr.Message) {
			return SizeLimitExceeded{Message: apiErr.Message}
		}
		return Failure{Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusRequestEntityTooLarge {
		return SizeLimitExceeded{Message: err.Error()}
	}
	return Failure{Message: err.Error()}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

func (c *Client) custom(ctx context.Context, p llm.CustomProvider, apiKey string, message string) Outcome {
	payload, err := json.Marshal(chatBody{Model: p.Model, Messages: []chatMessage{{Role: "user", Content: message}}})
	if err != nil {
		return Failure{Message: fmt.Sprintf("encode request: %v", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Failure{Message: fmt.Sprintf("new request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return Failure{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Failure{Message: fmt.Sprintf("read response: %v", err)}
	}
	return parseCustom(resp.StatusCode, body)
}

// parseCustom classifies a custom provider's answer. It accepts the OpenAI
// choices shape, a bare "response" field, and otherwise returns the raw JSON.
func parseCustom(status int, body []byte) Outcome {
	if status == http.StatusRequestEntityTooLarge {
		return SizeLimitExceeded{Message: fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))}
	}
	if !gjson.ValidBytes(body) {
		return Failure{Message: fmt.Sprintf("invalid JSON response (HTTP %d): %s", status, truncate(strings.TrimSpace(string(body)), 200))}
	}
	if e := gjson.GetBytes(body, "error"); truthy(e) {
		msg := e.Get("message").String()
		if msg == "" && e.Type == gjson.String {
			msg = e.String()
		}
		if msg == "" {
			msg = "request failed: " + e.Raw
		}
		if IsSizeLimit(msg) {
			return SizeLimitExceeded{Message: msg}
		}
		return Failure{Message: msg}
	}
	if status < 200 || status > 299 {
		return Failure{Message: fmt.Sprintf("HTTP %d: %s", status, truncate(strings.TrimSpace(string(body)), 200))}
	}
	if content := gjson.GetBytes(body, "choices.0.message.content"); content.Exists() {
		return Success{Text: content.String()}
	}
	if r := gjson.GetBytes(body, "response"); r.Exists() {
		return Success{Text: r.String()}
	}
	return Success{Text: string(body)}
}

// truthy mirrors how a loosely typed client tests a field: missing, null,
// false, empty string and zero all count as absent.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return true
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
