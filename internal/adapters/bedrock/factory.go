package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/email-guardian/internal/config"
	"go.uber.org/zap"
)

// Factory creates Bedrock oracles from configuration
type Factory struct {
	cfg    config.BedrockConfig
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg config.BedrockConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateOracle loads AWS credentials from the environment and creates a Bedrock oracle
func (f *Factory) CreateOracle(ctx context.Context) (*Oracle, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewOracle(
		bedrockruntime.NewFromConfig(awsCfg),
		f.cfg.ModelID,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	), nil
}
