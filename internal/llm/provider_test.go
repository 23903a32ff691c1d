package llm

import (
	"context"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pagedigest/internal/llmstub"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://api.siliconflow.cn/v1/chat/completions":         "https://api.siliconflow.cn/v1",
		"https://open.bigmodel.cn/api/paas/v4/chat/completions/": "https://open.bigmodel.cn/api/paas/v4",
		"http://localhost:8081/v1":                               "http://localhost:8081/v1",
		" http://localhost:8081/v1/ ":                            "http://localhost:8081/v1",
	}
	for in, want := range cases {
		if got := BaseURL(in); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProviderVariants(t *testing.T) {
	var p Provider = StandardProvider{Kind: "zhipu", Endpoint: "https://z/chat/completions", Model: "glm-4-flash"}
	if p.KeyName() != "zhipu" || p.ModelName() != "glm-4-flash" || p.URL() != "https://z/chat/completions" {
		t.Fatalf("unexpected standard provider accessors")
	}
	p = CustomProvider{Endpoint: "https://c", Model: "mine"}
	if p.KeyName() != CustomKeyName || p.ModelName() != "mine" || p.URL() != "https://c" {
		t.Fatalf("unexpected custom provider accessors")
	}
	switch p.(type) {
	case CustomProvider:
	default:
		t.Fatalf("expected CustomProvider in type switch")
	}
}

func TestNewOpenAI_TalksToEndpoint(t *testing.T) {
	stub := &llmstub.Server{Model: "glm-4-9b", Reply: func(string) string { return "ok" }}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1/chat/completions", "sk-test", srv.Client())
	resp, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "glm-4-9b",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected response %+v", resp)
	}
	reqs := stub.Requests()
	if len(reqs) != 1 || reqs[0].Authorization != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %+v", reqs)
	}

	var lister ModelLister = c
	models, err := lister.ListModels(context.Background())
	if err != nil || len(models.Models) != 1 || models.Models[0].ID != "glm-4-9b" {
		t.Fatalf("list models: %+v %v", models, err)
	}
}
