package llm

import (
	"context"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Provider is the resolved remote service a request is sent to. It is either
// a StandardProvider or a CustomProvider.
type Provider interface {
	// KeyName is the name the API key is stored under in settings.
	KeyName() string
	// ModelName is the model identifier sent in the request.
	ModelName() string
	// URL is the full chat completions endpoint.
	URL() string
	isProvider()
}

// StandardProvider is a built-in OpenAI-compatible service family such as
// "silicon-flow" or "zhipu".
type StandardProvider struct {
	Kind     string
	Endpoint string
	Model    string
}

func (p StandardProvider) KeyName() string   { return p.Kind }
func (p StandardProvider) ModelName() string { return p.Model }
func (p StandardProvider) URL() string       { return p.Endpoint }
func (StandardProvider) isProvider()         {}

// CustomKeyName is the settings key of the custom provider's API key.
const CustomKeyName = "custom"

// CustomProvider is a user-configured endpoint spoken to with a plain HTTP
// POST. Its response may come in several shapes.
type CustomProvider struct {
	Endpoint string
	Model    string
}

func (CustomProvider) KeyName() string     { return CustomKeyName }
func (p CustomProvider) ModelName() string { return p.Model }
func (p CustomProvider) URL() string       { return p.Endpoint }
func (CustomProvider) isProvider()         {}

// Client is the minimal interface needed by core logic to call a chat model.
// It mirrors go-openai's CreateChatCompletion so any OpenAI-compatible
// backend can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability that allows listing available models.
// Callers detect it with a type assertion.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}

// BaseURL derives the API base from a chat completions endpoint, e.g.
// "https://api.siliconflow.cn/v1/chat/completions" becomes
// "https://api.siliconflow.cn/v1".
func BaseURL(endpoint string) string {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return strings.TrimRight(base, "/")
}

// NewOpenAI builds a go-openai backed client for a chat completions endpoint.
// A nil httpClient uses http.DefaultClient.
func NewOpenAI(endpoint string, apiKey string, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = BaseURL(endpoint)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}
