package app

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Environment variables read by ApplyEnvToConfig.
const (
	EnvCacheDir    = "PAGEDIGEST_CACHE_DIR"
	EnvCacheMaxAge = "PAGEDIGEST_CACHE_MAX_AGE"
	EnvSettings    = "PAGEDIGEST_SETTINGS"
	EnvExtractor   = "PAGEDIGEST_EXTRACTOR"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = strings.TrimSpace(os.Getenv(EnvCacheDir))
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = strings.TrimSpace(os.Getenv(EnvSettings))
	}
	if cfg.Extractor == "" {
		cfg.Extractor = strings.TrimSpace(os.Getenv(EnvExtractor))
	}
	if cfg.CacheMaxAge == 0 {
		if s := strings.TrimSpace(os.Getenv(EnvCacheMaxAge)); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.CacheMaxAge = d
			} else {
				log.Warn().Str(EnvCacheMaxAge, s).Msg("ignoring invalid cache max age")
			}
		}
	}
}
