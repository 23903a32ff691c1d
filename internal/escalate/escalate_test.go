package escalate

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperifyio/pagedigest/internal/llm"
	"github.com/hyperifyio/pagedigest/internal/reduce"
	"github.com/hyperifyio/pagedigest/internal/summarize"
)

// scripted returns outcomes in order and repeats the last one.
type scripted struct {
	outcomes []summarize.Outcome
	seen     []string
}

func (s *scripted) Summarize(_ context.Context, req summarize.Request) summarize.Outcome {
	s.seen = append(s.seen, req.Content)
	i := len(s.seen) - 1
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	return s.outcomes[i]
}

func baseRequest() summarize.Request {
	return summarize.Request{
		Provider:       llm.StandardProvider{Kind: "silicon-flow", Endpoint: "http://unused/v1/chat/completions", Model: "glm-4-9b"},
		APIKey:         "k",
		PromptTemplate: "Summarize in {{maxLength}}",
		MaxLength:      8000,
	}
}

func longContent() string {
	var b strings.Builder
	b.WriteString("# Long page\n\n## Overview\n\n")
	for i := 0; i < 30; i++ {
		b.WriteString("This paragraph carries enough distinct words to count as ordinary prose for scoring purposes here.\n\n")
	}
	b.WriteString("## Comments\n\nNice post!\n\nCopyright 2024 Example. All rights reserved.")
	return b.String()
}

func TestRun_SuccessInOneCall(t *testing.T) {
	client := &scripted{outcomes: []summarize.Outcome{summarize.Success{Text: "ok"}}}
	res := New(client).Run(context.Background(), longContent(), baseRequest())
	if res.Text != "ok" || res.Calls != 1 || res.State != Succeeded || res.Level != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if client.seen[0] != longContent() {
		t.Fatalf("first attempt must send unmodified content")
	}
}

func TestRun_PersistentSizeLimitIsBounded(t *testing.T) {
	client := &scripted{outcomes: []summarize.Outcome{summarize.SizeLimitExceeded{Message: "too long"}}}
	res := New(client).Run(context.Background(), longContent(), baseRequest())
	if res.Calls != MaxCalls || len(client.seen) != MaxCalls {
		t.Fatalf("expected %d calls, got %d", MaxCalls, res.Calls)
	}
	if res.State != Exhausted || res.Text != ContentTooLongMessage {
		t.Fatalf("expected exhausted with fixed message, got %+v", res)
	}
	if res.Level != reduce.LevelHeadMiddleTail {
		t.Fatalf("expected last level 3, got %v", res.Level)
	}
	wantStates := []State{Initial, Prefiltered, Level1, Level2, Level3}
	for i, a := range res.Attempts {
		if a.State != wantStates[i] || a.Outcome != "size_limit" {
			t.Fatalf("attempt %d: unexpected %+v", i, a)
		}
	}
}

func TestRun_AttemptsShrink(t *testing.T) {
	client := &scripted{outcomes: []summarize.Outcome{summarize.SizeLimitExceeded{}}}
	content := longContent()
	New(client).Run(context.Background(), content, baseRequest())

	prefiltered := reduce.PreFilter(content)
	if client.seen[1] != prefiltered {
		t.Fatalf("second attempt must be the pre-filtered content")
	}
	if strings.Contains(prefiltered, "Nice post!") || strings.Contains(prefiltered, "All rights reserved") {
		t.Fatalf("pre-filter should drop comments and copyright: %q", prefiltered)
	}
	for i, lvl := range reduce.Levels {
		if want := reduce.Reduce(prefiltered, lvl); client.seen[i+2] != want {
			t.Fatalf("level %v attempt must reduce the pre-filtered content", lvl)
		}
	}
	for i := 1; i < len(client.seen); i++ {
		if len([]rune(client.seen[i])) > len([]rune(client.seen[i-1])) {
			t.Fatalf("attempt %d grew: %d > %d", i, len([]rune(client.seen[i])), len([]rune(client.seen[i-1])))
		}
	}
	for i := 2; i < len(client.seen); i++ {
		if !strings.HasPrefix(client.seen[i], "# Long page\n") {
			t.Fatalf("attempt %d lost the title line", i)
		}
	}
}

func TestRun_FailureIsNotRetried(t *testing.T) {
	client := &scripted{outcomes: []summarize.Outcome{
		summarize.SizeLimitExceeded{},
		summarize.Failure{Message: "invalid api key"},
		summarize.Success{Text: "never"},
	}}
	res := New(client).Run(context.Background(), longContent(), baseRequest())
	if res.Calls != 2 || res.State != Failed {
		t.Fatalf("expected failure after 2 calls, got %+v", res)
	}
	if res.Text != "# Summary failed\n\ninvalid api key" {
		t.Fatalf("unexpected failure text %q", res.Text)
	}
}

func TestRun_EndToEndScenario(t *testing.T) {
	paragraphs := []string{
		"Intro paragraph with概述 keyword (12 words exactly)",
		"Filler.", "Filler.", "Filler.", "Filler.", "Filler.",
	}
	content := "# Test\n\n" + strings.Join(paragraphs, "\n\n")
	client := &scripted{outcomes: []summarize.Outcome{
		summarize.SizeLimitExceeded{},
		summarize.SizeLimitExceeded{},
		summarize.Success{Text: "done"},
	}}
	res := New(client).Run(context.Background(), content, baseRequest())
	if res.Text != "done" {
		t.Fatalf("expected done, got %q", res.Text)
	}
	if res.Calls != 3 || len(client.seen) != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", res.Calls)
	}
	if res.Level != reduce.LevelTruncate || res.State != Succeeded {
		t.Fatalf("expected success at level 1, got %+v", res)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &scripted{outcomes: []summarize.Outcome{summarize.Success{Text: "x"}}}
	res := New(client).Run(ctx, "# T\n\nbody", baseRequest())
	if res.Calls != 0 || res.State != Failed || !strings.HasPrefix(res.Text, "# Summary failed\n\n") {
		t.Fatalf("expected no calls and a failure, got %+v", res)
	}
}

func TestNext_TransitionTable(t *testing.T) {
	size := summarize.SizeLimitExceeded{}
	chain := []State{Initial, Prefiltered, Level1, Level2, Level3, Exhausted}
	for i := 0; i+1 < len(chain); i++ {
		if got := Next(chain[i], size); got != chain[i+1] {
			t.Fatalf("Next(%v, size) = %v, want %v", chain[i], got, chain[i+1])
		}
		if got := Next(chain[i], summarize.Success{}); got != Succeeded {
			t.Fatalf("Next(%v, success) = %v", chain[i], got)
		}
		if got := Next(chain[i], summarize.Failure{}); got != Failed {
			t.Fatalf("Next(%v, failure) = %v", chain[i], got)
		}
	}
	if got := Next(Succeeded, summarize.Success{}); got != Failed {
		t.Fatalf("terminal states have no transitions, got %v", got)
	}
	if got := Next(Initial, nil); got != Failed {
		t.Fatalf("unknown outcome should fail, got %v", got)
	}
}

func TestFormatFailure(t *testing.T) {
	if got := FormatFailure("boom"); got != "# Summary failed\n\nboom" {
		t.Fatalf("unexpected %q", got)
	}
	if !strings.HasPrefix(ContentTooLongMessage, "# Summary failed\n\n") {
		t.Fatalf("content-too-long message should share the failure shape")
	}
}
