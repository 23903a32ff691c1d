// Package settings holds the user's provider and summary preferences: the
// schema, its defaults, and how file and environment layers merge over them.
package settings

import (
	"sort"
)

// DefaultModel is selected when no valid model is configured.
const DefaultModel = "glm-4-9b"

// CustomModelID selects the user-configured endpoint instead of a built-in
// model definition.
const CustomModelID = "custom"

// DefaultMaxLength is the default content ceiling in characters.
const DefaultMaxLength = 8000

// DefaultPromptTemplate asks for a structured Chinese Markdown summary.
const DefaultPromptTemplate = "请为以下网页内容提供一个结构清晰、易于阅读的中文摘要，帮助我快速理解网页的核心内容。请突出重点信息，使用Markdown格式输出，包括标题、段落、列表，以及使用**粗体**或*斜体*标记关键词和重要概念。可以使用引用块>来突出重要段落。不要使用代码块。"

// Provider families of the built-in models. They double as API key names.
const (
	ProviderSiliconFlow = "silicon-flow"
	ProviderZhipu       = "zhipu"
)

const (
	siliconFlowEndpoint = "https://api.siliconflow.cn/v1/chat/completions"
	zhipuEndpoint       = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
)

// ModelDefinition describes a built-in model.
type ModelDefinition struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	APIEndpoint string `yaml:"apiEndpoint" json:"apiEndpoint"`
}

// CustomModel is a user-supplied OpenAI-like endpoint.
type CustomModel struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Name        string `yaml:"name" json:"name"`
	APIEndpoint string `yaml:"apiEndpoint" json:"apiEndpoint"`
}

// Summary holds the summarization parameters.
type Summary struct {
	MaxLength      int    `yaml:"maxLength" json:"maxLength"`
	PromptTemplate string `yaml:"promptTemplate" json:"promptTemplate"`
}

// Settings is the complete settings record.
type Settings struct {
	CurrentModel     string                     `yaml:"currentModel" json:"currentModel"`
	NativeLanguage   string                     `yaml:"nativeLanguage" json:"nativeLanguage"`
	ModelDefinitions map[string]ModelDefinition `yaml:"modelDefinitions" json:"modelDefinitions"`
	APIKeys          map[string]string          `yaml:"apiKeys" json:"apiKeys"`
	CustomModel      CustomModel                `yaml:"customModel" json:"customModel"`
	Summary          Summary                    `yaml:"summary" json:"summary"`
}

// Defaults returns a new settings value with the built-in models. Every call
// returns fresh maps, so callers may modify the result.
func Defaults() Settings {
	return Settings{
		CurrentModel:   DefaultModel,
		NativeLanguage: "zh",
		ModelDefinitions: map[string]ModelDefinition{
			"glm-4-9b":           {Name: "THUDM/GLM-4-9B-0414", Type: ProviderSiliconFlow, APIEndpoint: siliconFlowEndpoint},
			"qwen-7b":            {Name: "Qwen/Qwen2.5-7B-Instruct", Type: ProviderSiliconFlow, APIEndpoint: siliconFlowEndpoint},
			"qwen-coder-7b":      {Name: "Qwen/Qwen2.5-Coder-7B-Instruct", Type: ProviderSiliconFlow, APIEndpoint: siliconFlowEndpoint},
			"glm-4-9b-chat":      {Name: "THUDM/glm-4-9b-chat", Type: ProviderSiliconFlow, APIEndpoint: siliconFlowEndpoint},
			"glm-4-flash":        {Name: "GLM-4-Flash", Type: ProviderZhipu, APIEndpoint: zhipuEndpoint},
			"glm-4-flash-250414": {Name: "GLM-4-Flash-250414", Type: ProviderZhipu, APIEndpoint: zhipuEndpoint},
		},
		APIKeys: map[string]string{
			ProviderSiliconFlow: "",
			ProviderZhipu:       "",
		},
		Summary: Summary{
			MaxLength:      DefaultMaxLength,
			PromptTemplate: DefaultPromptTemplate,
		},
	}
}

// ModelIDs returns the selectable model identifiers in sorted order,
// including CustomModelID when the custom model is enabled.
func (s Settings) ModelIDs() []string {
	ids := make([]string, 0, len(s.ModelDefinitions)+1)
	for id := range s.ModelDefinitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if s.CustomModel.Enabled {
		ids = append(ids, CustomModelID)
	}
	return ids
}

// Redacted returns a copy with API keys masked, safe to print.
func (s Settings) Redacted() Settings {
	out := s
	out.ModelDefinitions = make(map[string]ModelDefinition, len(s.ModelDefinitions))
	for k, v := range s.ModelDefinitions {
		out.ModelDefinitions[k] = v
	}
	out.APIKeys = make(map[string]string, len(s.APIKeys))
	for k, v := range s.APIKeys {
		out.APIKeys[k] = mask(v)
	}
	return out
}

func mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}
