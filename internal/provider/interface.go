// Package provider selects and constructs the chat model backend used for
// message enhancement. Supported backends: Ollama, OpenAI, Azure OpenAI,
// OpenRouter, Google Gemini.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported chat inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOpenRouter selects the OpenRouter aggregation API, which exposes
	// models from many upstream vendors behind an OpenAI-compatible surface.
	BackendOpenRouter Backend = "openrouter"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama configures the Ollama backend.
type ProviderOllama struct {
	// Host is the Ollama base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the Ollama model name (e.g. "llama3").
	Model string
}

// ProviderOpenAI configures the OpenAI backend.
type ProviderOpenAI struct {
	APIKey string
	Model  string
}

// ProviderAzureOpenAI configures the Azure OpenAI Service backend.
type ProviderAzureOpenAI struct {
	APIKey string
	// Endpoint is the resource endpoint (e.g. "https://my.openai.azure.com").
	Endpoint string
	// Deployment is the deployment name, used in place of a model name.
	Deployment string
	// APIVersion is the Azure OpenAI REST API version (e.g. "2024-02-01").
	APIVersion string
}

// ProviderOpenRouter configures the OpenRouter backend.
type ProviderOpenRouter struct {
	APIKey string
	// Model is the fully qualified OpenRouter model slug
	// (e.g. "anthropic/claude-3.5-sonnet").
	Model string
	// BaseURL overrides the default OpenRouter endpoint. Empty means
	// "https://openrouter.ai/api/v1".
	BaseURL string
}

// ProviderGemini configures the Google Gemini backend.
type ProviderGemini struct {
	APIKey string
	Model  string
}

// SharedTuning holds generation parameters applied to every backend.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the section matching
// Backend is consulted.
type Config struct {
	Backend Backend

	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	OpenRouter  ProviderOpenRouter
	Gemini      ProviderGemini

	Tuning SharedTuning
}

// Factory is the interface for constructing a ChatModel from a Config.
// Implementations must be safe to call from multiple goroutines.
type Factory interface {
	// New constructs and returns a ready-to-use ChatModel for the given config.
	New(ctx context.Context, cfg *Config) (model.ChatModel, error) //nolint:staticcheck // SA1019: model.ChatModel deprecated upstream; migration tracked separately
}
