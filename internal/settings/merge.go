package settings

import (
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// DeepMerge returns a new map holding dst overlaid with src. Nested maps are
// merged key by key; any other value in src, including nil and slices,
// replaces the value in dst. Neither argument is modified.
func DeepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = cloneValue(v)
	}
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			base, _ := out[k].(map[string]any)
			out[k] = DeepMerge(base, sm)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return DeepMerge(nil, t)
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = cloneValue(e)
		}
		return c
	}
	return v
}

// ToMap converts s into its generic map form using the YAML field names.
func (s Settings) ToMap() (map[string]any, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return m, nil
}

// Merge overlays a partial settings document on base and returns the result.
func Merge(base Settings, overlay map[string]any) (Settings, error) {
	m, err := base.ToMap()
	if err != nil {
		return Settings{}, err
	}
	b, err := yaml.Marshal(DeepMerge(m, overlay))
	if err != nil {
		return Settings{}, fmt.Errorf("encode merged settings: %w", err)
	}
	var out Settings
	if err := yaml.Unmarshal(b, &out); err != nil {
		return Settings{}, fmt.Errorf("decode merged settings: %w", err)
	}
	return out, nil
}
