package provider

import (
	"fmt"
	"strings"
)

// Validate checks that the section selected by Backend carries every field
// its factory requires. Error messages name the environment variable that
// populates the missing field so startup failures are actionable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Ollama.Host == "" {
			return fmt.Errorf("provider: OLLAMA_HOST is required for ollama backend")
		}
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureOpenAI.Deployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("provider: OPENROUTER_API_KEY is required for openrouter backend")
		}
		if c.OpenRouter.Model == "" {
			return fmt.Errorf("provider: OPENROUTER_MODEL is required for openrouter backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: GEMINI_MODEL is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, openrouter, gemini", c.Backend)
	}
	return nil
}

// reasoningPrefixes lists Azure deployment-name prefixes for reasoning-class
// models, which reject the temperature parameter.
var reasoningPrefixes = []string{"o1", "o3", "o4", "codex"}

// isAzureReasoningModel reports whether the deployment name looks like an
// o-series or codex-class reasoning model. Matching is case-insensitive and
// anchored at the start of the name: the prefix must be the whole name or be
// followed by a "-" suffix, so "gpt-5.2-codex" is not matched.
func isAzureReasoningModel(deployment string) bool {
	name := strings.ToLower(deployment)
	for _, p := range reasoningPrefixes {
		if name == p || strings.HasPrefix(name, p+"-") {
			return true
		}
	}
	return false
}
