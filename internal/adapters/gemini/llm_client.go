package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/email-guardian/internal/adapters/llm"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// contentGenerator is the part of *genai.GenerativeModel used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Oracle is a ToxicityOracle backed by a Google Gemini model
type Oracle struct {
	client    *genai.Client
	model     contentGenerator
	modelName string
	logger    *zap.Logger
}

// NewOracle creates a new Gemini oracle around a configured model
func NewOracle(client *genai.Client, model contentGenerator, modelName string, logger *zap.Logger) *Oracle {
	return &Oracle{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}
}

// Classify asks the model for a toxicity label and score
func (o *Oracle) Classify(ctx context.Context, text string) (*core.OracleResult, error) {
	resp, err := o.model.GenerateContent(ctx, genai.Text(llm.Prompt(text)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	return llm.ParseReply(sb.String(), o.modelName)
}

// Close closes the Gemini client
func (o *Oracle) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}
