package core

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/mikey/email-guardian/internal/utils"
	"go.uber.org/zap"
)

// MaxOracleChars is the number of leading characters sent to the oracle
const MaxOracleChars = 512

// DefaultOracleTimeout bounds a single oracle call
const DefaultOracleTimeout = 3 * time.Second

// AISignalClient makes exactly one best-effort oracle call per scan.
// Failures never escape it; they become a missing signal.
type AISignalClient struct {
	oracle        ToxicityOracle
	timeout       time.Duration
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAISignalClient creates a new AI signal client. A nil oracle disables the AI path.
func NewAISignalClient(
	oracle ToxicityOracle,
	timeout time.Duration,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *AISignalClient {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &AISignalClient{
		oracle:        oracle,
		timeout:       timeout,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Enabled reports whether an oracle is configured
func (c *AISignalClient) Enabled() bool {
	return c != nil && c.oracle != nil
}

// Signal asks the oracle about text and returns nil when no signal is available
func (c *AISignalClient) Signal(ctx context.Context, text string) *AISignal {
	if !c.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := c.textProcessor.TruncateChars(text, MaxOracleChars)

	start := time.Now()
	result, err := c.oracle.Classify(ctx, input)
	if err != nil {
		c.logger.Warn("AI oracle unavailable, falling back to patterns",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}
	if result == nil || math.IsNaN(result.Score) || result.Score < 0 || result.Score > 1 {
		c.logger.Warn("AI oracle returned a malformed result, falling back to patterns")
		return nil
	}

	signal := &AISignal{
		Score: result.Score,
		Model: result.Model,
	}
	if strings.EqualFold(strings.TrimSpace(result.Label), string(LabelToxic)) {
		signal.Label = LabelToxic
		signal.Explanation = "AI detected potentially harmful content"
	} else {
		signal.Label = LabelSafe
		signal.Explanation = "AI classified content as safe"
	}

	c.logger.Debug("AI oracle answered",
		zap.String("label", string(signal.Label)),
		zap.Float64("score", signal.Score),
		zap.String("model", signal.Model),
		zap.Duration("elapsed", time.Since(start)))

	return signal
}
