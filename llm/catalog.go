package llm

import (
	"fmt"
	"os"
	"strings"
)

// DefaultModel is used when no model is specified on the command line or
// the programmatic entry point.
const DefaultModel = "google/gemini-2.0-flash-001"

// providerEnvKeys maps a provider name to the environment variable holding
// its API key.
var providerEnvKeys = map[string]string{
	"openrouter": "OPENROUTER_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

// InferProvider guesses the provider from a model identifier. Namespaced
// model ids ("vendor/model") route through OpenRouter; bare ids are matched
// by their well-known prefixes.
func InferProvider(model string) string {
	switch {
	case strings.Contains(model, "/"):
		return "openrouter"
	case strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3"):
		return "openai"
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	default:
		return "openrouter"
	}
}

// APIKeyEnvVar returns the environment variable name holding the API key
// for the given provider.
func APIKeyEnvVar(provider string) (string, error) {
	key, ok := providerEnvKeys[provider]
	if !ok {
		return "", &ConfigurationError{BackendError: BackendError{
			Message: fmt.Sprintf("unknown provider %q", provider),
		}}
	}
	return key, nil
}

// APIKeyFromEnv reads the API key for a provider from the process
// environment. A missing key is a ConfigurationError: the caller must fail
// before starting any work that would need the backend.
func APIKeyFromEnv(provider string) (string, error) {
	envVar, err := APIKeyEnvVar(provider)
	if err != nil {
		return "", err
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", &ConfigurationError{BackendError: BackendError{
			Message: fmt.Sprintf("%s is not set (required for provider %q)", envVar, provider),
		}}
	}
	return key, nil
}
