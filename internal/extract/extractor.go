package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
)

// Extractor converts raw HTML into Content. Implementations are deterministic
// and never fail; problems surface as a fallback document.
type Extractor interface {
	Extract(input []byte, pageURL *url.URL) Content
}

// HeuristicExtractor removes page chrome by selector and keeps the first
// main-content region.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(input []byte, _ *url.URL) Content {
	return FromHTML(input)
}

// ReadabilityExtractor lets go-readability isolate the article first and
// then runs the heuristic pipeline over the distilled HTML. Pages readability
// cannot handle fall back to the heuristic path.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(input []byte, pageURL *url.URL) Content {
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(input), pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		log.Debug().Err(err).Str("url", pageURL.String()).Msg("readability found no article; using heuristic extraction")
		return FromHTML(input)
	}
	c := FromHTML([]byte(article.Content))
	c.Title = strings.TrimSpace(article.Title)
	if c.Title == "" {
		if doc, perr := ParseHTML(input); perr == nil {
			c.Title = doc.Title()
		}
	}
	return c
}

// New returns the extractor registered under name: "heuristic" (the default
// when name is empty) or "readability".
func New(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "heuristic":
		return HeuristicExtractor{}, nil
	case "readability":
		return ReadabilityExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q", name)
}
