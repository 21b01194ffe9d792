package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/pkg/logger"
	"google.golang.org/genai"
)

// ErrAINotConfigured is returned by Complete when no provider is usable.
var ErrAINotConfigured = errors.New("ai completion is not configured")

// ExternalServiceError wraps a failure from a remote completion or mail provider.
type ExternalServiceError struct {
	Provider string
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// AIService sends single-turn prompts to the configured LLM provider.
type AIService struct {
	cfg config.LLMConfig
}

func NewAIService(cfg config.LLMConfig) *AIService {
	return &AIService{cfg: cfg}
}

// Enabled reports whether Complete will attempt a remote call.
func (s *AIService) Enabled() bool {
	return s != nil && s.cfg.Enabled()
}

// Complete returns the generated text and the model that produced it.
func (s *AIService) Complete(ctx context.Context, prompt string) (string, string, error) {
	if !s.Enabled() {
		return "", "", ErrAINotConfigured
	}

	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	logger.Debug().Str("provider", s.cfg.Provider).Str("model", s.cfg.Model).Msg("[AI] completion request")

	var (
		content string
		err     error
	)
	switch s.cfg.Provider {
	case "anthropic":
		content, err = s.callAnthropic(ctx, prompt)
	case "ollama":
		content, err = s.callOllama(ctx, prompt)
	case "gemini":
		content, err = s.callGemini(ctx, prompt)
	case "azure":
		content, err = s.callAzure(ctx, prompt)
	default:
		// openai and other OpenAI-compatible services
		content, err = s.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return "", "", &ExternalServiceError{Provider: s.cfg.Provider, Err: err}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", "", &ExternalServiceError{Provider: s.cfg.Provider, Err: errors.New("empty completion")}
	}
	logger.Debug().Str("provider", s.cfg.Provider).Int("chars", len(content)).Msg("[AI] completion received")
	return content, s.cfg.Model, nil
}

func (s *AIService) temperature() float32 {
	if s.cfg.Temperature > 0 {
		return float32(s.cfg.Temperature)
	}
	return 0.7
}

func (s *AIService) maxTokens() int {
	if s.cfg.MaxTokens > 0 {
		return s.cfg.MaxTokens
	}
	return 512
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs (including custom endpoints)
func (s *AIService) callOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	return s.chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), prompt)
}

// callAzure uses Model as the deployment name; BaseURL is https://{resource}.openai.azure.com
func (s *AIService) callAzure(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultAzureConfig(s.cfg.APIKey, s.cfg.BaseURL)
	return s.chatCompletion(ctx, openai.NewClientWithConfig(clientConfig), prompt)
}

func (s *AIService) chatCompletion(ctx context.Context, client *openai.Client, prompt string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens(),
		Temperature: s.temperature(),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *AIService) callAnthropic(ctx context.Context, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(s.cfg.APIKey)}
	if s.cfg.BaseURL != "" && !strings.Contains(s.cfg.BaseURL, "api.openai.com") {
		opts = append(opts, option.WithBaseURL(s.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := s.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(s.maxTokens()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (s *AIService) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" || strings.Contains(baseURL, "api.openai.com") {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	stream := false
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    s.cfg.Model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": s.temperature(),
			"num_predict": s.maxTokens(),
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content.String(), nil
}

func (s *AIService) callGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: s.cfg.APIKey})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	model := s.cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	temp := s.temperature()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(s.maxTokens()),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
