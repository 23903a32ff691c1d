package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagedigest/internal/llmstub"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	stub := &llmstub.Server{Model: os.Getenv("MODEL_ID"), Style: os.Getenv("STUB_STYLE")}
	if v := strings.TrimSpace(os.Getenv("STUB_MAX_INPUT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatal().Err(err).Str("STUB_MAX_INPUT", v).Msg("invalid size limit")
		}
		stub.MaxInput = n
	}
	if strings.TrimSpace(os.Getenv("STUB_LIMIT_413")) != "" {
		stub.LimitStatus = http.StatusRequestEntityTooLarge
	}

	log.Info().Str("addr", addr).Str("model", stub.Model).Int("max_input", stub.MaxInput).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, stub); err != nil {
		log.Fatal().Err(err).Msg("stub server stopped")
	}
}
