package openai

import (
	"fmt"

	"github.com/mikey/email-guardian/internal/config"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates OpenAI oracles from configuration
type Factory struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI oracles
func NewFactory(cfg config.OpenAIConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateOracle creates a new OpenAI oracle
func (f *Factory) CreateOracle() (*Oracle, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return NewOracle(
		openai.NewClient(f.cfg.APIKey),
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	), nil
}
