package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/pagedigest/internal/llm"
)

var (
	// ErrMissingAPIKey is returned when the selected provider has no key.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrInvalidModel is returned when the selected model cannot be used.
	ErrInvalidModel = errors.New("invalid model")
)

// Resolve returns the provider for the current model and its API key. It
// fails before any remote call when the selection is unusable.
func (s Settings) Resolve() (llm.Provider, string, error) {
	var p llm.Provider
	if s.CurrentModel == CustomModelID {
		cm := s.CustomModel
		if !cm.Enabled {
			return nil, "", fmt.Errorf("%w: custom model is not enabled", ErrInvalidModel)
		}
		if strings.TrimSpace(cm.Name) == "" || strings.TrimSpace(cm.APIEndpoint) == "" {
			return nil, "", fmt.Errorf("%w: custom model needs a name and an API endpoint", ErrInvalidModel)
		}
		p = llm.CustomProvider{Endpoint: strings.TrimSpace(cm.APIEndpoint), Model: strings.TrimSpace(cm.Name)}
	} else {
		def, ok := s.ModelDefinitions[s.CurrentModel]
		if !ok {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidModel, s.CurrentModel)
		}
		if strings.TrimSpace(def.Type) == "" || strings.TrimSpace(def.APIEndpoint) == "" || strings.TrimSpace(def.Name) == "" {
			return nil, "", fmt.Errorf("%w: %q has an incomplete definition", ErrInvalidModel, s.CurrentModel)
		}
		p = llm.StandardProvider{Kind: def.Type, Endpoint: def.APIEndpoint, Model: def.Name}
	}
	key := strings.TrimSpace(s.APIKeys[p.KeyName()])
	if key == "" {
		return nil, "", fmt.Errorf("%w for provider %q", ErrMissingAPIKey, p.KeyName())
	}
	return p, key, nil
}

// CheckModel reports whether id names a selectable model. Selections made on
// the command line or in the environment are checked with it; only a stale
// file selection is reset by Normalize.
func (s Settings) CheckModel(id string) error {
	if id == CustomModelID {
		return nil
	}
	if _, ok := s.ModelDefinitions[id]; ok {
		return nil
	}
	return fmt.Errorf("%w: unknown model %q (available: %s)", ErrInvalidModel, id, strings.Join(s.ModelIDs(), ", "))
}
