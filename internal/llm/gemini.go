package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/metalagman/researchloop/internal/config"
	"google.golang.org/genai"
)

// Gemini generates text with the Gemini API.
type Gemini struct {
	model   string
	baseURL string
	timeout time.Duration
	client  *genai.Client
}

// NewGemini constructs a Gemini generator.
func NewGemini(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (*Gemini, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	apiKey, err := ResolveAPIKey(cfg, config.DefaultGeminiAPIKeyEnv)
	if err != nil {
		return nil, err
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &Gemini{
		model:   model,
		baseURL: baseURL,
		timeout: timeout,
		client:  client,
	}, nil
}

// Generate executes a single generateContent request.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return text, nil
}

// Describe reports the provider and model.
func (g *Gemini) Describe() Info {
	return Info{Provider: config.ProviderGemini, Model: g.model, BaseURL: g.baseURL}
}
