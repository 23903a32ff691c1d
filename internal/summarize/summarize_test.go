package summarize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pagedigest/internal/cache"
	"github.com/hyperifyio/pagedigest/internal/llm"
	"github.com/hyperifyio/pagedigest/internal/llmstub"
)

func standardReq(endpoint string) Request {
	return Request{
		Provider:       llm.StandardProvider{Kind: "silicon-flow", Endpoint: endpoint + "/v1/chat/completions", Model: "glm-4-9b"},
		APIKey:         "sk-test",
		Content:        "# Page\n\nbody text",
		PromptTemplate: "Summarize in {{maxLength}} chars, max {{maxLength}}.",
		MaxLength:      100,
	}
}

func TestUserMessage(t *testing.T) {
	req := Request{Content: "一二三四五六", PromptTemplate: "limit {{maxLength}} / {{maxLength}}", MaxLength: 4}
	if got := UserMessage(req); got != "limit 4 / 4\n\n一二三四" {
		t.Fatalf("unexpected message %q", got)
	}
	req.MaxLength = 0
	if got := UserMessage(req); !strings.HasPrefix(got, "limit 8000 / 8000\n\n") {
		t.Fatalf("expected default max length, got %q", got)
	}
}

func TestIsSizeLimit(t *testing.T) {
	yes := []string{
		"Token limit reached", "Input TOO LONG", "context length exceeded", "rate limit",
		"This model's maximum context length is 8192", "输入超出限制", "内容过长", "文本太长", "超过最大长度",
	}
	for _, m := range yes {
		if !IsSizeLimit(m) {
			t.Fatalf("expected %q to be a size limit", m)
		}
	}
	for _, m := range []string{"invalid api key", "model not found", ""} {
		if IsSizeLimit(m) {
			t.Fatalf("did not expect %q to be a size limit", m)
		}
	}
}

func TestSummarize_StandardSuccess(t *testing.T) {
	stub := &llmstub.Server{Reply: func(string) string { return "ok" }}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client()}
	out := c.Summarize(context.Background(), standardReq(srv.URL))
	if s, ok := out.(Success); !ok || s.Text != "ok" {
		t.Fatalf("expected Success(ok), got %#v", out)
	}
	reqs := stub.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if reqs[0].Model != "glm-4-9b" || reqs[0].Authorization != "Bearer sk-test" {
		t.Fatalf("unexpected request %+v", reqs[0])
	}
	if reqs[0].Content != "Summarize in 100 chars, max 100.\n\n# Page\n\nbody text" {
		t.Fatalf("unexpected content %q", reqs[0].Content)
	}
}

func TestSummarize_StandardSizeLimit(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge} {
		stub := &llmstub.Server{MaxInput: 5, LimitStatus: status}
		srv := httptest.NewServer(stub)
		c := &Client{HTTPClient: srv.Client()}
		out := c.Summarize(context.Background(), standardReq(srv.URL))
		srv.Close()
		if _, ok := out.(SizeLimitExceeded); !ok {
			t.Fatalf("status %d: expected SizeLimitExceeded, got %#v", status, out)
		}
	}
}

func TestSummarize_Standard413WithoutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	out := (&Client{HTTPClient: srv.Client()}).Summarize(context.Background(), standardReq(srv.URL))
	if _, ok := out.(SizeLimitExceeded); !ok {
		t.Fatalf("expected SizeLimitExceeded, got %#v", out)
	}
}

func TestSummarize_StandardOtherErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"auth_error"}}`))
	}))
	defer srv.Close()

	out := (&Client{HTTPClient: srv.Client()}).Summarize(context.Background(), standardReq(srv.URL))
	f, ok := out.(Failure)
	if !ok || f.Message != "Invalid API key" {
		t.Fatalf("expected Failure with provider message, got %#v", out)
	}
}

type fakeChat struct {
	resp openai.ChatCompletionResponse
	err  error
}

func (f fakeChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f.resp, f.err
}

func TestSummarize_StandardWithInjectedChat(t *testing.T) {
	cases := []struct {
		name string
		chat fakeChat
		want string
	}{
		{"no choices", fakeChat{}, "failure"},
		{"transport", fakeChat{err: errors.New("dial tcp: refused")}, "failure"},
		{"api size", fakeChat{err: &openai.APIError{Message: "input exceeds token limit", HTTPStatusCode: 400}}, "size_limit"},
		{"request 413", fakeChat{err: &openai.RequestError{HTTPStatusCode: 413, Err: errors.New("too big")}}, "size_limit"},
		{"ok", fakeChat{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "x"}}}}}, "success"},
	}
	for _, tc := range cases {
		chat := tc.chat
		c := &Client{NewChat: func(string, string, *http.Client) llm.Client { return chat }}
		if got := Kind(c.Summarize(context.Background(), standardReq("http://unused"))); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func customReq(url string) Request {
	return Request{
		Provider:       llm.CustomProvider{Endpoint: url, Model: "mine"},
		APIKey:         "ck",
		Content:        "content",
		PromptTemplate: "p",
		MaxLength:      50,
	}
}

func TestSummarize_CustomShapes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   string
		text   string
	}{
		{"openai shape", 200, `{"choices":[{"message":{"content":"from choices"}}]}`, "success", "from choices"},
		{"response shape", 200, `{"response":"from response"}`, "success", "from response"},
		{"raw json", 200, `{"output":{"text":"x"}}`, "success", `{"output":{"text":"x"}}`},
		{"size error", 400, `{"error":{"message":"Prompt too long for model"}}`, "size_limit", ""},
		{"chinese size error", 400, `{"error":{"message":"输入内容超出模型限制"}}`, "size_limit", ""},
		{"string error", 400, `{"error":"quota exhausted"}`, "failure", ""},
		{"other error", 401, `{"error":{"message":"bad key"}}`, "failure", ""},
		{"falsy error", 200, `{"error":null,"response":"fine"}`, "success", "fine"},
		{"not json", 502, `<html>bad gateway</html>`, "failure", ""},
		{"http 413", 413, `nope`, "size_limit", ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		out := (&Client{HTTPClient: srv.Client()}).Summarize(context.Background(), customReq(srv.URL))
		srv.Close()
		if Kind(out) != tc.kind {
			t.Fatalf("%s: got %#v, want kind %s", tc.name, out, tc.kind)
		}
		if s, ok := out.(Success); ok && s.Text != tc.text {
			t.Fatalf("%s: got text %q, want %q", tc.name, s.Text, tc.text)
		}
	}
}

func TestSummarize_CustomSendsBearerAndJSON(t *testing.T) {
	stub := &llmstub.Server{Style: llmstub.StyleResponse, Reply: func(string) string { return "done" }}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out := (&Client{HTTPClient: srv.Client()}).Summarize(context.Background(), customReq(srv.URL+"/v1/chat/completions"))
	if s, ok := out.(Success); !ok || s.Text != "done" {
		t.Fatalf("expected Success(done), got %#v", out)
	}
	reqs := stub.Requests()
	if len(reqs) != 1 || reqs[0].Authorization != "Bearer ck" || reqs[0].Model != "mine" || reqs[0].Content != "p\n\ncontent" {
		t.Fatalf("unexpected request %+v", reqs)
	}
}

func TestSummarize_CustomTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if out := (&Client{}).Summarize(context.Background(), customReq(url)); Kind(out) != "failure" {
		t.Fatalf("expected failure, got %#v", out)
	}
}

func TestSummarize_NoProvider(t *testing.T) {
	if out := (&Client{}).Summarize(context.Background(), Request{}); Kind(out) != "failure" {
		t.Fatalf("expected failure, got %#v", out)
	}
}

func TestSummarize_CacheServesRepeats(t *testing.T) {
	stub := &llmstub.Server{Reply: func(string) string { return "cached" }}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), Cache: &cache.SummaryCache{Dir: t.TempDir()}}
	for i := 0; i < 3; i++ {
		if s, ok := c.Summarize(context.Background(), standardReq(srv.URL)).(Success); !ok || s.Text != "cached" {
			t.Fatalf("call %d: unexpected outcome", i)
		}
	}
	if stub.Calls() != 1 {
		t.Fatalf("expected one remote call, got %d", stub.Calls())
	}
}

func TestSummarize_FailureNotCached(t *testing.T) {
	stub := &llmstub.Server{MaxInput: 1}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), Cache: &cache.SummaryCache{Dir: t.TempDir()}}
	c.Summarize(context.Background(), standardReq(srv.URL))
	c.Summarize(context.Background(), standardReq(srv.URL))
	if stub.Calls() != 2 {
		t.Fatalf("size-limit outcomes must not be cached, got %d calls", stub.Calls())
	}
}
