package openai

import (
	"context"
	"fmt"

	"github.com/mikey/email-guardian/internal/adapters/llm"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatCompleter is the part of the OpenAI client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Oracle is a ToxicityOracle backed by an OpenAI chat model
type Oracle struct {
	client      chatCompleter
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOracle creates a new OpenAI oracle
func NewOracle(client chatCompleter, modelName string, maxTokens int, temperature, topP float32, logger *zap.Logger) *Oracle {
	return &Oracle{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Classify asks the model for a toxicity label and score
func (o *Oracle) Classify(ctx context.Context, text string) (*core.OracleResult, error) {
	req := openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: llm.Prompt(text)},
		},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		TopP:        o.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	o.logger.Debug("OpenAI oracle replied", zap.String("response_id", resp.ID))
	return llm.ParseReply(resp.Choices[0].Message.Content, o.modelName)
}
