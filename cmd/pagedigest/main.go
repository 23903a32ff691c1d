package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pagedigest/internal/app"
	"github.com/hyperifyio/pagedigest/internal/budget"
	"github.com/hyperifyio/pagedigest/internal/extract"
	"github.com/hyperifyio/pagedigest/internal/settings"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newCLI(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Error().Err(err).Msg("pagedigest failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps run errors to the process status: 2 when a summary was
// attempted and failed, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, app.ErrSummaryFailed) {
		return 2
	}
	return 1
}

func newCLI(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "pagedigest",
		Usage:     "summarize a web page with a language model, shrinking it until it fits",
		UsageText: "pagedigest [global options] [command] [page.html | URL | -]",
		Version:   app.BuildVersion,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "HTML file, http(s) URL, or - for stdin"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the result to this file instead of stdout"},
			&cli.StringFlag{Name: "settings", Usage: "YAML or JSON settings file", EnvVars: []string{app.EnvSettings}},
			&cli.StringSliceFlag{Name: "env-file", Usage: "dotenv files to load", Value: cli.NewStringSlice(".env")},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model identifier from the settings"},
			&cli.IntFlag{Name: "max-length", Usage: "maximum characters of page content sent per request"},
			&cli.StringFlag{Name: "extractor", Value: "heuristic", Usage: "content extractor: heuristic or readability", EnvVars: []string{app.EnvExtractor}},
			&cli.StringFlag{Name: "cache-dir", Value: ".pagedigest-cache", Usage: "cache directory for pages and summaries", EnvVars: []string{app.EnvCacheDir}},
			&cli.DurationFlag{Name: "cache-max-age", Usage: "purge cache entries older than this (0 disables)", EnvVars: []string{app.EnvCacheMaxAge}},
			&cli.BoolFlag{Name: "cache-clear", Usage: "clear the cache before running"},
			&cli.BoolFlag{Name: "cache-strict-perms", Usage: "create cache entries with 0700/0600 permissions"},
			&cli.BoolFlag{Name: "no-cache", Usage: "disable the page and summary caches"},
			&cli.DurationFlag{Name: "timeout", Value: app.DefaultTimeout, Usage: "timeout for each page fetch and model request"},
			&cli.StringFlag{Name: "user-agent", Value: app.DefaultUserAgent, Usage: "User-Agent for page fetches"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
		Action: summarizeAction,
		Commands: []*cli.Command{
			{
				Name:   "summarize",
				Usage:  "summarize the page (default)",
				Action: summarizeAction,
			},
			{
				Name:  "extract",
				Usage: "print the extracted Markdown without calling a model",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "keep-links", Usage: "keep Markdown links and images"},
				},
				Action: extractAction,
			},
			{
				Name:  "reduce",
				Usage: "show what each escalation attempt would send",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "level", Usage: "print the content of one reduction level (1-3) instead of the overview"},
				},
				Action: reduceAction,
			},
			{
				Name:  "models",
				Usage: "list selectable models",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "remote", Usage: "ask the selected provider which models it serves"},
				},
				Action: modelsAction,
			},
			{
				Name:   "config",
				Usage:  "print the effective settings with keys masked",
				Action: configAction,
			},
			{
				Name:  "version",
				Usage: "print build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, app.VersionString())
					return err
				},
			},
		},
	}
}

// configFromContext builds the run configuration from global flags. A
// positional argument is accepted in place of --input.
func configFromContext(c *cli.Context) app.Config {
	cfg := app.Config{
		InputPath:        c.String("input"),
		OutputPath:       c.String("output"),
		SettingsPath:     c.String("settings"),
		EnvFiles:         c.StringSlice("env-file"),
		Model:            c.String("model"),
		MaxLength:        c.Int("max-length"),
		Extractor:        c.String("extractor"),
		CacheDir:         c.String("cache-dir"),
		CacheMaxAge:      c.Duration("cache-max-age"),
		CacheClear:       c.Bool("cache-clear"),
		CacheStrictPerms: c.Bool("cache-strict-perms"),
		NoCache:          c.Bool("no-cache"),
		Timeout:          c.Duration("timeout"),
		UserAgent:        c.String("user-agent"),
		Verbose:          c.Bool("verbose"),
	}
	if cfg.InputPath == "" && c.Args().Present() {
		cfg.InputPath = c.Args().First()
	}
	return cfg
}

func newApp(c *cli.Context) (*app.App, error) {
	a, err := app.New(configFromContext(c), app.WithIO(c.App.Reader, c.App.Writer))
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

func summarizeAction(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	return a.Run(c.Context)
}

func extractAction(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	content, err := a.Extract(c.Context)
	if err != nil {
		return err
	}
	text := content.Markdown()
	if !c.Bool("keep-links") {
		text = extract.StripLinks(text)
	}
	return a.Write(text)
}

func reduceAction(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	stages, err := a.Preview(c.Context)
	if err != nil {
		return err
	}
	if lvl := c.Int("level"); lvl != 0 {
		if lvl < 1 || lvl > 3 {
			return fmt.Errorf("level must be between 1 and 3, got %d", lvl)
		}
		return a.Write(stages[lvl+1].Text)
	}
	model := modelName(a.Settings())
	window := budget.ModelContextTokens(model)
	fmt.Fprintf(c.App.Writer, "model %s, context window %d tokens\n", model, window)
	for _, st := range stages {
		fits := "no"
		if budget.FitsInContext(model, 0, st.Tokens) {
			fits = "yes"
		}
		fmt.Fprintf(c.App.Writer, "%-18s %8d runes %8d tokens  fits=%s\n", st.Name, st.Runes, st.Tokens, fits)
	}
	return nil
}

func modelsAction(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	if c.Bool("remote") {
		ids, err := a.RemoteModels(c.Context)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(c.App.Writer, id)
		}
		return nil
	}
	s := a.Settings()
	for _, id := range s.ModelIDs() {
		mark := " "
		if id == s.CurrentModel {
			mark = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %-20s %s\n", mark, id, modelNameFor(s, id))
	}
	return nil
}

func configAction(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(a.Settings().Redacted())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = c.App.Writer.Write(b)
	return err
}

func modelName(s settings.Settings) string {
	return modelNameFor(s, s.CurrentModel)
}

func modelNameFor(s settings.Settings, id string) string {
	if id == settings.CustomModelID {
		return s.CustomModel.Name
	}
	return s.ModelDefinitions[id].Name
}
