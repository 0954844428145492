package scoring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = `You judge answers in a party game. Players are given a category, an awkward scenario and some context, and reply with what they would do.
Rate the answer from 1 to 10 for humor, creativity and fit to the scenario.
Reply with exactly one line: Score: <number>, Feedback: <one short sentence>`

type OpenAIConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	SystemPromptPath string
}

// OpenAIScorer asks a chat completion model for a score.
type OpenAIScorer struct {
	client *openai.Client
	model  string
	system string
}

func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
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
	return &OpenAIScorer{
		client: openai.NewClientWithConfig(config),
		model:  model,
		system: readSystemPrompt(cfg.SystemPromptPath, defaultSystemPrompt),
	}, nil
}

func (s *OpenAIScorer) Score(ctx context.Context, req Request) (Result, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.system},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: 0.4,
		MaxTokens:   120,
	})
	if err != nil {
		return Result{}, fmt.Errorf("scoring request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}
	return ParseResponse(resp.Choices[0].Message.Content)
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Scenario: %s\n", req.Scenario)
	if strings.TrimSpace(req.Context) != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	fmt.Fprintf(&b, "Answer: %s", req.Answer)
	return b.String()
}

// readSystemPrompt returns the file content, or fallback when the file is
// missing or empty.
func readSystemPrompt(path, fallback string) string {
	if path == "" {
		return fallback
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	if text := strings.TrimSpace(string(content)); text != "" {
		return text
	}
	return fallback
}
