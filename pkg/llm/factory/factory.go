package factory

import (
	"fmt"

	"legal-research-be/pkg/llm"
	"legal-research-be/pkg/llm/ollama"
	"legal-research-be/pkg/llm/openaicompat"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return openaicompat.NewProvider(baseURL, apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
