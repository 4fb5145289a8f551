package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/metalagman/researchloop/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	model   string
	baseURL string
	client  openai.Client
}

// NewOpenAI constructs a chat completions generator.
func NewOpenAI(cfg config.LLMConfig, httpClient *http.Client) (*OpenAI, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	apiKey, err := ResolveAPIKey(cfg, config.DefaultAPIKeyEnv)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{
		model:   model,
		baseURL: baseURL,
		client:  openai.NewClient(opts...),
	}, nil
}

// Generate executes a single chat completion request.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat.completions.create: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Describe reports the provider and model.
func (o *OpenAI) Describe() Info {
	return Info{Provider: config.ProviderOpenAI, Model: o.model, BaseURL: o.baseURL}
}
