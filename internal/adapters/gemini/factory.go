package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/email-guardian/internal/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Gemini oracles from configuration
type Factory struct {
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateOracle creates a new Gemini oracle
func (f *Factory) CreateOracle(ctx context.Context) (*Oracle, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(f.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(f.cfg.ModelName)
	model.SetTemperature(f.cfg.Temperature)
	model.SetTopP(f.cfg.TopP)
	model.SetMaxOutputTokens(int32(f.cfg.MaxTokens))
	model.ResponseMIMEType = "application/json"

	return NewOracle(client, model, f.cfg.ModelName, f.logger), nil
}
