package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIInstruction = "Translate the user's text into %s. Respond with only the translation, nothing else."

// OpenAITranslator translates with an OpenAI chat model.
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAITranslator creates an OpenAITranslator. An empty baseURL uses the
// public API; an empty model uses gpt-4o-mini.
func NewOpenAITranslator(apiKey, baseURL, model string) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAITranslator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Translate asks the model for a translation of text into lang.
func (o *OpenAITranslator) Translate(ctx context.Context, text string, lang Language) (string, error) {
	if err := checkInput(text, lang); err != nil {
		return "", err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(openAIInstruction, lang.Name)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("translate: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoTranslation
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrNoTranslation
	}
	return out, nil
}

// Name returns "openai".
func (o *OpenAITranslator) Name() string { return "openai" }
