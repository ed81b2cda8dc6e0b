package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"
)

const (
	DefaultModel = "gpt-4o-mini"
	temperature  = 0.5
)

// OpenAI guesses drawings and judges rounds through the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Guess names what a PNG drawing shows, or returns one of the reserved
// guesses.
func (o *OpenAI) Guess(ctx context.Context, png []byte) (string, error) {
	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(guesserInstructions),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    image,
					Detail: "low",
				}),
				openai.TextContentPart(guessRequest),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", UnexpectedOracleError, err)
	}

	guess, err := firstChoice(completion)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(guess), nil
}

// CheckWinners asks which of the guesses match the prompt.
func (o *OpenAI) CheckWinners(ctx context.Context, prompt string, guesses map[string]string) ([]string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(judgeInstructions),
			openai.UserMessage(judgeRequest(prompt, guesses)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", UnexpectedOracleError, err)
	}

	verdict, err := firstChoice(completion)
	if err != nil {
		return nil, err
	}

	winners, err := ParseWinners(verdict, guesses)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("prompt", prompt).Int("guesses", len(guesses)).Strs("winners", winners).Msg("checked winners")
	return winners, nil
}

func firstChoice(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
