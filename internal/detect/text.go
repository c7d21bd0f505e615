package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextConfig configures the text-only chat completions backend
type TextConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// AuthHeader is the header carrying the key. "Authorization" (the
	// default) sends "Bearer <key>"; any other name sends the bare key.
	AuthHeader string
	// Headers are extra request headers, e.g. a provider API version
	Headers    map[string]string
	MaxTokens  int
	HTTPClient *http.Client
}

// TextBackend posts the extracted document text to an OpenAI-compatible
// chat completions endpoint
type TextBackend struct {
	cfg    TextConfig
	url    string
	client *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse covers both OpenAI-style choices and Anthropic-style
// content blocks
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewTextBackend creates the backend. Key, model and base URL are required.
func NewTextBackend(cfg TextConfig) (*TextBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("text: API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("text: model is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("text: base URL is required")
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	return &TextBackend{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		client: client,
	}, nil
}

// Name returns the provider name
func (b *TextBackend) Name() string { return string(ProviderText) }

// Capability reports that this backend reads extracted text
func (b *TextBackend) Capability() Capability { return CapabilityText }

// Complete sends the instruction and the document text as one user turn
func (b *TextBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	body := chatRequest{
		Model:     b.cfg.Model,
		MaxTokens: b.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "user", Content: p.Instruction + "\n\nDocument text:\n" + p.Text},
		},
	}

	raw, err := b.sendJSON(ctx, body)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("text: decode response: %w", err)
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("text: response has no message content")
}

// sendJSON posts body and returns the raw response. Each request carries a
// fresh X-Request-ID for correlating provider logs.
func (b *TextBackend) sendJSON(ctx context.Context, body any) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("text: encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("text: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if strings.EqualFold(b.cfg.AuthHeader, "Authorization") {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	} else {
		req.Header.Set(b.cfg.AuthHeader, b.cfg.APIKey)
	}
	for k, v := range b.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		log.Printf("detect: text req_id=%s send error after %v: %v", reqID, time.Since(start), err)
		return nil, fmt.Errorf("text: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("text: read response: %w", err)
	}

	log.Printf("detect: text req_id=%s status=%d bytes=%d elapsed=%v", reqID, resp.StatusCode, len(raw), time.Since(start))

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Code: resp.StatusCode, Body: prefix(string(raw), rawLogPrefix)}
	}
	return raw, nil
}
