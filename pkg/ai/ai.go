package ai

import (
	"context"

	"github.com/openai/openai-go"
)

type Completion interface {
	Completions(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, model string) (openai.ChatCompletionMessage, error)
}
