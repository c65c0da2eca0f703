package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Languages maps supported codes to the names used in prompts
var Languages = map[string]string{
	"en": "English",
	"zu": "isiZulu",
	"xh": "isiXhosa",
	"af": "Afrikaans",
	"st": "Sesotho",
	"tn": "Setswana",
	"ss": "Siswati",
	"nr": "isiNdebele",
	"ve": "Tshivenda",
	"ts": "Xitsonga",
}

// ErrUnsupportedLanguage is returned for codes outside Languages
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Engine translates one message. A nil source means detect it.
type Engine interface {
	Translate(ctx context.Context, text string, source *string, target string) (string, error)
}

// EchoEngine returns the text prefixed with the target code. Used when no model is configured.
type EchoEngine struct{}

func (EchoEngine) Translate(_ context.Context, text string, _ *string, target string) (string, error) {
	return fmt.Sprintf("[%s] %s", target, text), nil
}

// OpenAIEngine translates with a chat completion model
type OpenAIEngine struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIEngine creates an engine for the given API key and model
func NewOpenAIEngine(apiKey, model string, logger *logrus.Logger) *OpenAIEngine {
	return NewOpenAIEngineWithConfig(openai.DefaultConfig(apiKey), model, logger)
}

// NewOpenAIEngineWithConfig creates an engine from a full client config (custom base URL, HTTP client)
func NewOpenAIEngineWithConfig(cfg openai.ClientConfig, model string, logger *logrus.Logger) *OpenAIEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg), model: model, logger: logger}
}

func (e *OpenAIEngine) Translate(ctx context.Context, text string, source *string, target string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(source, target)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		e.logger.WithError(err).WithField("model", e.model).Error("translation request failed")
		return "", fmt.Errorf("translation request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translation returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemPrompt(source *string, target string) string {
	from := "the language the text is written in"
	if source != nil {
		from = Languages[*source]
	}
	return fmt.Sprintf("You translate text from %s into %s. Reply with the translation only.", from, Languages[target])
}

func validate(source *string, target string) error {
	if source != nil {
		if _, ok := Languages[*source]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, *source)
		}
	}
	if _, ok := Languages[target]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, target)
	}
	return nil
}
