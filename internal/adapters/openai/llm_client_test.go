package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey/email-guardian/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

func TestClassify(t *testing.T) {
	stub := &stubCompleter{resp: reply(`{"label":"toxic","score":0.83}`)}
	o := NewOracle(stub, "gpt-4", 200, 0, 0.9, zap.NewNop())

	got, err := o.Classify(context.Background(), "you are an idiot")

	require.NoError(t, err)
	assert.Equal(t, "toxic", got.Label)
	assert.Equal(t, 0.83, got.Score)
	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, "gpt-4", stub.req.Model)
	require.Len(t, stub.req.Messages, 2)
	assert.Contains(t, stub.req.Messages[1].Content, "you are an idiot")
}

func TestClassifyErrors(t *testing.T) {
	o := NewOracle(&stubCompleter{err: errors.New("429 too many requests")}, "gpt-4", 200, 0, 0.9, zap.NewNop())
	_, err := o.Classify(context.Background(), "hi")
	assert.Error(t, err)

	o = NewOracle(&stubCompleter{}, "gpt-4", 200, 0, 0.9, zap.NewNop())
	_, err = o.Classify(context.Background(), "hi")
	assert.Error(t, err)
}

func TestFactoryRequiresKey(t *testing.T) {
	_, err := NewFactory(config.OpenAIConfig{}, zap.NewNop()).CreateOracle()
	assert.Error(t, err)

	o, err := NewFactory(config.OpenAIConfig{APIKey: "sk-test", ModelName: "gpt-4"}, zap.NewNop()).CreateOracle()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", o.modelName)
}
