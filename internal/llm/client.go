// Package llm is the chat-completions client used to transform chunks and answer questions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/config"
	scribeerrors "github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/format"
	"github.com/hpungsan/scribe/internal/logging"
)

// Config configures a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	Temperature  *float32
	MaxTokens    int
	SystemPrompt string
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	client *openai.Client
	cfg    Config
	log    *logging.Logger
}

// NewClient creates a Client. APIKey and Model are required.
func NewClient(cfg Config, log *logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	log = logging.OrNop(log).Named("llm")
	log.Debug("llm client created", zap.String("model", cfg.Model), zap.String("base_url", clientCfg.BaseURL))

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log,
	}, nil
}

// FromConfig builds a Client from application config, reading the key from
// the configured environment variable. A missing key yields TRANSFORM_UNCONFIGURED.
func FromConfig(cfg config.LLMConfig, log *logging.Logger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if cfg.APIKeyEnv == "" || key == "" {
		return nil, scribeerrors.NewTransformUnconfigured()
	}
	return NewClient(Config{
		APIKey:       key,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		SystemPrompt: cfg.SystemPrompt,
	}, log)
}

// Transform implements format.Transformer. Options override the client defaults.
func (c *Client) Transform(ctx context.Context, prompt string, opts format.TransformOptions) (string, error) {
	model := c.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := c.cfg.Temperature
	if opts.Temperature != nil {
		temperature = opts.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	return c.complete(ctx, model, temperature, maxTokens, prompt)
}

// Complete sends prompt with the client defaults.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, c.cfg.Model, c.cfg.Temperature, c.cfg.MaxTokens, prompt)
}

func (c *Client) complete(ctx context.Context, model string, temperature *float32, maxTokens int, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var messages []openai.ChatCompletionMessage
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if temperature != nil {
		req.Temperature = *temperature
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn("chat completion failed", zap.String("model", model), zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	c.log.Debug("chat completion",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
