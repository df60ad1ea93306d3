package llm

import (
	"fmt"
	"os"
	"strings"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOllamaHost = "http://localhost:11434"
)

// NewProvider creates a provider for the given provider type and model.
// Supported provider types: "openai", "openrouter", "ollama". All three speak
// the OpenAI chat completions protocol; they differ in base URL and key.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewChatProvider("openai", apiKey, os.Getenv("OPENAI_BASE_URL"), model), nil

	case "openrouter":
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
		}
		return NewChatProvider("openrouter", apiKey, openRouterBaseURL, model), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = defaultOllamaHost
		}
		return NewChatProvider("ollama", "ollama", strings.TrimRight(host, "/")+"/v1", model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
