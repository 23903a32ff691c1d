package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagedigest/internal/budget"
	"github.com/hyperifyio/pagedigest/internal/cache"
	"github.com/hyperifyio/pagedigest/internal/escalate"
	"github.com/hyperifyio/pagedigest/internal/extract"
	"github.com/hyperifyio/pagedigest/internal/fetch"
	"github.com/hyperifyio/pagedigest/internal/llm"
	"github.com/hyperifyio/pagedigest/internal/reduce"
	"github.com/hyperifyio/pagedigest/internal/settings"
	"github.com/hyperifyio/pagedigest/internal/summarize"
)

var (
	// ErrBusy is returned when a summary is requested while another one is
	// still running on the same App.
	ErrBusy = errors.New("another summary is in progress, please wait")
	// ErrSummaryFailed is returned after a failure message has been written,
	// so callers can exit non-zero.
	ErrSummaryFailed = errors.New("summary failed")
	// ErrRemoteListUnsupported is returned when the selected provider has no
	// OpenAI-compatible model listing.
	ErrRemoteListUnsupported = errors.New("remote model listing needs a built-in provider")
)

// App wires input loading, extraction and the escalation pipeline.
type App struct {
	cfg        Config
	settings   settings.Settings
	httpClient *http.Client
	fetcher    *fetch.Client
	extractor  extract.Extractor
	summarizer escalate.Summarizer

	stdin  io.Reader
	stdout io.Writer

	busy atomic.Bool
}

// Option customizes an App.
type Option func(*App)

// WithSummarizer replaces the remote summarization client.
func WithSummarizer(s escalate.Summarizer) Option {
	return func(a *App) { a.summarizer = s }
}

// WithSettings uses s instead of loading the settings file.
func WithSettings(s settings.Settings) Option {
	return func(a *App) { a.settings = s }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.stdin = in
		a.stdout = out
	}
}

// New loads settings and builds the pipeline components. Flag values in cfg
// win over environment variables, which win over the settings file.
func New(cfg Config, opts ...Option) (*App, error) {
	ApplyEnvToConfig(&cfg)
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	a := &App{cfg: cfg, stdin: os.Stdin, stdout: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}

	if a.settings.ModelDefinitions == nil {
		if err := settings.LoadDotEnv(cfg.EnvFiles...); err != nil {
			return nil, err
		}
		s, err := settings.Load(cfg.SettingsPath)
		if err != nil {
			return nil, err
		}
		a.settings = s
	}
	if cfg.Model != "" {
		if err := a.settings.CheckModel(cfg.Model); err != nil {
			return nil, fmt.Errorf("model override: %w", err)
		}
		a.settings.CurrentModel = cfg.Model
	}
	if cfg.MaxLength > 0 {
		a.settings.Summary.MaxLength = cfg.MaxLength
	}
	settings.Normalize(&a.settings)

	ex, err := extract.New(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	a.extractor = ex
	a.httpClient = newHTTPClient(cfg.Timeout)
	a.fetcher = &fetch.Client{
		HTTPClient:        a.httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       3,
		PerRequestTimeout: cfg.Timeout,
	}

	var summaries *cache.SummaryCache
	if cfg.CacheDir != "" && !cfg.NoCache {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		pagesDir := filepath.Join(cfg.CacheDir, "pages")
		summariesDir := filepath.Join(cfg.CacheDir, "summaries")
		if cfg.CacheMaxAge > 0 {
			pages, _ := cache.PurgePagesByAge(pagesDir, cfg.CacheMaxAge)
			sums, _ := cache.PurgeSummariesByAge(summariesDir, cfg.CacheMaxAge)
			log.Debug().Int("pages", pages).Int("summaries", sums).Msg("purged expired cache entries")
		}
		a.fetcher.Cache = &cache.PageCache{Dir: pagesDir, StrictPerms: cfg.CacheStrictPerms}
		summaries = &cache.SummaryCache{Dir: summariesDir, StrictPerms: cfg.CacheStrictPerms}
	}
	if a.summarizer == nil {
		a.summarizer = &summarize.Client{HTTPClient: a.httpClient, Cache: summaries}
	}
	return a, nil
}

// Settings returns the effective settings.
func (a *App) Settings() settings.Settings {
	return a.settings
}

// RemoteModels asks the selected provider which models it serves. Only
// built-in providers are asked; custom endpoints need not implement listing.
func (a *App) RemoteModels(ctx context.Context) ([]string, error) {
	provider, key, err := a.settings.Resolve()
	if err != nil {
		return nil, err
	}
	std, ok := provider.(llm.StandardProvider)
	if !ok {
		return nil, ErrRemoteListUnsupported
	}
	var lister llm.ModelLister = llm.NewOpenAI(std.URL(), key, a.httpClient)
	list, err := lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models at %s: %w", std.URL(), err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	log.Debug().Str("provider", std.KeyName()).Int("models", len(ids)).Msg("listed remote models")
	return ids, nil
}

// ReadInput returns the raw page and, for URLs, its parsed address.
func (a *App) ReadInput(ctx context.Context) ([]byte, *url.URL, error) {
	in := strings.TrimSpace(a.cfg.InputPath)
	switch {
	case in == "" || in == "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil, nil
	case strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://"):
		u, err := url.Parse(in)
		if err != nil {
			return nil, nil, fmt.Errorf("parse url: %w", err)
		}
		b, _, err := a.fetcher.Get(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return b, u, nil
	}
	b, err := os.ReadFile(in)
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil, nil
}

// Extract reads the input and returns its readable content.
func (a *App) Extract(ctx context.Context) (extract.Content, error) {
	raw, u, err := a.ReadInput(ctx)
	if err != nil {
		return extract.Content{}, err
	}
	c := a.extractor.Extract(raw, u)
	log.Debug().Str("title", c.Title).Int("runes", len([]rune(c.Body))).Msg("extracted content")
	return c, nil
}

// Document returns the Markdown sent to the summarizer: the extracted content
// with links and images reduced to their text.
func (a *App) Document(ctx context.Context) (string, error) {
	c, err := a.Extract(ctx)
	if err != nil {
		return "", err
	}
	return extract.StripLinks(c.Markdown()), nil
}

// Summarize runs the whole pipeline once. Configuration problems are
// returned as errors before any remote call; remote failures are reported in
// the result text.
func (a *App) Summarize(ctx context.Context) (escalate.Result, error) {
	if !a.busy.CompareAndSwap(false, true) {
		return escalate.Result{}, ErrBusy
	}
	defer a.busy.Store(false)

	provider, key, err := a.settings.Resolve()
	if err != nil {
		return escalate.Result{}, err
	}
	doc, err := a.Document(ctx)
	if err != nil {
		return escalate.Result{}, err
	}
	req := summarize.Request{
		Provider:       provider,
		APIKey:         key,
		PromptTemplate: a.settings.Summary.PromptTemplate,
		MaxLength:      a.settings.Summary.MaxLength,
	}
	res := escalate.New(a.summarizer).Run(ctx, doc, req)
	log.Info().
		Str("model", provider.ModelName()).
		Str("state", res.State.String()).
		Int("calls", res.Calls).
		Int("level", int(res.Level)).
		Msg("summary finished")
	return res, nil
}

// Run summarizes the input and writes the result to the configured output.
func (a *App) Run(ctx context.Context) error {
	res, err := a.Summarize(ctx)
	if err != nil {
		return err
	}
	if err := a.Write(res.Text); err != nil {
		return err
	}
	if res.State != escalate.Succeeded {
		return ErrSummaryFailed
	}
	return nil
}

// Write sends text to the output file, or stdout when none is configured.
func (a *App) Write(text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if a.cfg.OutputPath == "" || a.cfg.OutputPath == "-" {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	if err := os.WriteFile(a.cfg.OutputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("path", a.cfg.OutputPath).Msg("wrote output")
	return nil
}

// Stage is one step of the reduction preview.
type Stage struct {
	Name   string
	Text   string
	Runes  int
	Tokens int
}

// Preview returns the content each escalation attempt would send, without
// calling the service.
func (a *App) Preview(ctx context.Context) ([]Stage, error) {
	doc, err := a.Document(ctx)
	if err != nil {
		return nil, err
	}
	stage := func(name, text string) Stage {
		return Stage{Name: name, Text: text, Runes: len([]rune(text)), Tokens: budget.EstimateTokens(text)}
	}
	pre := reduce.PreFilter(doc)
	stages := []Stage{stage(escalate.Initial.String(), doc), stage(escalate.Prefiltered.String(), pre)}
	for _, lvl := range reduce.Levels {
		stages = append(stages, stage(lvl.String(), reduce.Reduce(pre, lvl)))
	}
	return stages, nil
}
