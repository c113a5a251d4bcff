package factory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/email-guardian/internal/adapters/bedrock"
	"github.com/mikey/email-guardian/internal/adapters/gemini"
	"github.com/mikey/email-guardian/internal/adapters/huggingface"
	"github.com/mikey/email-guardian/internal/adapters/openai"
	"github.com/mikey/email-guardian/internal/config"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// OracleFactory creates the toxicity oracle named by ai.provider
type OracleFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers []io.Closer
}

// NewOracleFactory creates a new oracle factory
func NewOracleFactory(cfg *config.Config, logger *zap.Logger) *OracleFactory {
	return &OracleFactory{cfg: cfg, logger: logger}
}

// CreateOracle returns the configured oracle, or nil when the provider is
// "none" and scans run on patterns alone
func (f *OracleFactory) CreateOracle(ctx context.Context) (core.ToxicityOracle, error) {
	provider := strings.ToLower(strings.TrimSpace(f.cfg.GetAI().Provider))

	switch provider {
	case "", "none":
		f.logger.Info("AI oracle disabled, using pattern rules only")
		return nil, nil
	case "huggingface":
		o, err := huggingface.NewOracle(f.cfg.GetHuggingFace(), nil, f.logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	case "openai":
		o, err := openai.NewFactory(f.cfg.GetOpenAI(), f.logger).CreateOracle()
		if err != nil {
			return nil, err
		}
		return o, nil
	case "gemini":
		o, err := gemini.NewFactory(f.cfg.GetGemini(), f.logger).CreateOracle(ctx)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, o)
		return o, nil
	case "bedrock":
		o, err := bedrock.NewFactory(f.cfg.GetBedrock(), f.logger).CreateOracle(ctx)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", provider)
	}
}

// Close releases clients created by the factory
func (f *OracleFactory) Close() error {
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			f.logger.Warn("Failed to close AI client", zap.Error(err))
		}
	}
	f.closers = nil
	return nil
}
