package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"
)

// Environment variables that override the settings file.
const (
	EnvModel          = "PAGEDIGEST_MODEL"
	EnvMaxLength      = "PAGEDIGEST_MAX_LENGTH"
	EnvPromptTemplate = "PAGEDIGEST_PROMPT_TEMPLATE"
	EnvSiliconFlowKey = "SILICONFLOW_API_KEY"
	EnvZhipuKey       = "ZHIPU_API_KEY"
	EnvCustomKey      = "CUSTOM_API_KEY"
	EnvCustomName     = "CUSTOM_MODEL_NAME"
	EnvCustomEndpoint = "CUSTOM_MODEL_ENDPOINT"
)

// LoadDotEnv loads dotenv files into the process environment. Variables that
// are already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ReadFile parses a YAML or JSON settings document into its generic form.
// Files without a known extension are tried as YAML, then JSON.
func ReadFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &m); err != nil {
			if jerr := json.Unmarshal(b, &m); jerr != nil {
				return nil, fmt.Errorf("parse settings: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return m, nil
}

// Load builds the effective settings: defaults, then the file at path (when
// non-empty), then environment overrides. An unknown model in the file is
// reset to DefaultModel; an unknown model in the environment is an error
// wrapping ErrInvalidModel.
func Load(path string) (Settings, error) {
	s := Defaults()
	if strings.TrimSpace(path) != "" {
		m, err := ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("settings file %s: %w", path, err)
		}
		if s, err = Merge(s, m); err != nil {
			return Settings{}, fmt.Errorf("settings file %s: %w", path, err)
		}
	}
	Normalize(&s)
	ApplyEnv(&s)
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		if err := s.CheckModel(v); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvModel, err)
		}
	}
	Normalize(&s)
	log.Debug().
		Str("model", s.CurrentModel).
		Int("model_definitions", len(s.ModelDefinitions)).
		Bool("siliconflow_key", s.APIKeys[ProviderSiliconFlow] != "").
		Bool("zhipu_key", s.APIKeys[ProviderZhipu] != "").
		Bool("custom_enabled", s.CustomModel.Enabled).
		Msg("settings loaded")
	return s, nil
}

// ApplyEnv overlays environment variables on s. Set variables take
// precedence over file values.
func ApplyEnv(s *Settings) {
	if s == nil {
		return
	}
	if s.APIKeys == nil {
		s.APIKeys = map[string]string{}
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		s.CurrentModel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxLength)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.Summary.MaxLength = n
		} else {
			log.Warn().Str(EnvMaxLength, v).Msg("ignoring invalid max length")
		}
	}
	if v := os.Getenv(EnvPromptTemplate); strings.TrimSpace(v) != "" {
		s.Summary.PromptTemplate = v
	}
	for env, name := range map[string]string{
		EnvSiliconFlowKey: ProviderSiliconFlow,
		EnvZhipuKey:       ProviderZhipu,
		EnvCustomKey:      CustomModelID,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			s.APIKeys[name] = v
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCustomName)); v != "" {
		s.CustomModel.Name = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCustomEndpoint)); v != "" {
		s.CustomModel.APIEndpoint = v
		s.CustomModel.Enabled = true
	}
}

// Normalize fills missing sections with defaults and resets an unknown
// current model to DefaultModel.
func Normalize(s *Settings) {
	if s == nil {
		return
	}
	d := Defaults()
	if s.ModelDefinitions == nil {
		s.ModelDefinitions = d.ModelDefinitions
	}
	if s.APIKeys == nil {
		s.APIKeys = map[string]string{}
	}
	if s.Summary.MaxLength <= 0 {
		s.Summary.MaxLength = DefaultMaxLength
	}
	if strings.TrimSpace(s.Summary.PromptTemplate) == "" {
		s.Summary.PromptTemplate = DefaultPromptTemplate
	}
	if _, ok := s.ModelDefinitions[s.CurrentModel]; !ok && s.CurrentModel != CustomModelID {
		log.Warn().Str("model", s.CurrentModel).Str("default", DefaultModel).Msg("invalid model selection; resetting to default")
		s.CurrentModel = DefaultModel
	}
}
