package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini vision backend
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// Options are appended after the API key option, e.g. a custom endpoint
	Options []option.ClientOption
}

// GeminiBackend sends the page image to a Gemini model. A client is
// created per call so the backend holds no connection state.
type GeminiBackend struct {
	cfg GeminiConfig
}

// NewGeminiBackend creates the backend. The API key is required.
func NewGeminiBackend(cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &GeminiBackend{cfg: cfg}, nil
}

// Name returns the provider name
func (b *GeminiBackend) Name() string { return string(ProviderGemini) }

// Capability reports that this backend reads page images
func (b *GeminiBackend) Capability() Capability { return CapabilityVision }

// Complete sends the instruction followed by the page image
func (b *GeminiBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	if len(p.Image) == 0 {
		return "", fmt.Errorf("gemini: prompt has no image")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(b.cfg.APIKey)}, b.cfg.Options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(b.cfg.Model)
	if b.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(b.cfg.MaxTokens))
	}
	model.SetTemperature(0)

	mime := p.ImageMIME
	if mime == "" {
		mime = "image/jpeg"
	}

	resp, err := model.GenerateContent(ctx,
		genai.Text(p.Instruction),
		genai.Blob{MIMEType: mime, Data: p.Image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content failed: %w", err)
	}
	return responseText(resp)
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: response has no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: candidate has no content (finish reason: %v)", cand.FinishReason)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini: candidate has no text parts")
	}
	return b.String(), nil
}
