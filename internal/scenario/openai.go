package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = `You write scenarios for a party game. Each scenario is one short, awkward, everyday situation in the given category that players must respond to.
Return one scenario per line, numbered, with no extra commentary.`

type OpenAIConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	SystemPromptPath string
	Timeout          time.Duration
}

type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	system  string
	timeout time.Duration
}

func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OpenAI API key is not configured")
	}
	config := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	system := defaultSystemPrompt
	if cfg.SystemPromptPath != "" {
		if content, err := os.ReadFile(cfg.SystemPromptPath); err == nil && strings.TrimSpace(string(content)) != "" {
			system = strings.TrimSpace(string(content))
		}
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		system:  system,
		timeout: timeout,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, category string, n int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.system},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Category: %s\nWrite %d scenarios.", category, n)},
		},
		Temperature: 0.9,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoScenarios
	}
	texts := ParseList(resp.Choices[0].Message.Content)
	if len(texts) == 0 {
		return nil, ErrNoScenarios
	}
	return texts, nil
}

// ParseList reads one scenario per line, dropping bullets and numbering.
func ParseList(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
