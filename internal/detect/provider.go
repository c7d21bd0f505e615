package detect

import (
	"fmt"
	"strings"
)

// Provider selects the detection backend. It comes from configuration only.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderText   Provider = "text"
)

// Providers lists the supported providers
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderGemini, ProviderText}
}

// ParseProvider maps a configuration value to a Provider
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown detection provider %q (want openai, gemini or text)", s)
}

// Settings holds the per-provider configuration; only the selected
// provider's section is used
type Settings struct {
	Provider Provider
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Text     TextConfig
}

// NewBackend builds the backend named by s.Provider
func NewBackend(s Settings) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch s.Provider {
	case ProviderOpenAI:
		b, err = NewOpenAIBackend(s.OpenAI)
	case ProviderGemini:
		b, err = NewGeminiBackend(s.Gemini)
	case ProviderText:
		b, err = NewTextBackend(s.Text)
	default:
		return nil, fmt.Errorf("unknown detection provider %q", s.Provider)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
