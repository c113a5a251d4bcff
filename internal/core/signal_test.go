package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mikey/email-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type oracleFunc func(ctx context.Context, text string) (*OracleResult, error)

func (f oracleFunc) Classify(ctx context.Context, text string) (*OracleResult, error) {
	return f(ctx, text)
}

func newSignalClient(oracle ToxicityOracle, timeout time.Duration) *AISignalClient {
	return NewAISignalClient(oracle, timeout, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
}

func TestSignalMapsLabels(t *testing.T) {
	tests := []struct {
		label string
		want  SignalLabel
	}{
		{"toxic", LabelToxic},
		{"TOXIC", LabelToxic},
		{"non-toxic", LabelSafe},
		{"neutral", LabelSafe},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			client := newSignalClient(oracleFunc(func(ctx context.Context, text string) (*OracleResult, error) {
				return &OracleResult{Label: tt.label, Score: 0.91, Model: "test-model"}, nil
			}), time.Second)

			signal := client.Signal(context.Background(), "hello")

			require.NotNil(t, signal)
			assert.Equal(t, tt.want, signal.Label)
			assert.Equal(t, 0.91, signal.Score)
			assert.Equal(t, "test-model", signal.Model)
			assert.NotEmpty(t, signal.Explanation)
		})
	}
}

func TestSignalSwallowsFailures(t *testing.T) {
	tests := []struct {
		name   string
		result *OracleResult
		err    error
	}{
		{"network error", nil, errors.New("connection refused")},
		{"empty answer", nil, nil},
		{"score above range", &OracleResult{Label: "toxic", Score: 1.5}, nil},
		{"negative score", &OracleResult{Label: "toxic", Score: -0.1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSignalClient(oracleFunc(func(ctx context.Context, text string) (*OracleResult, error) {
				return tt.result, tt.err
			}), time.Second)

			assert.Nil(t, client.Signal(context.Background(), "hello"))
		})
	}
}

func TestSignalTimesOut(t *testing.T) {
	client := newSignalClient(oracleFunc(func(ctx context.Context, text string) (*OracleResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 20*time.Millisecond)

	start := time.Now()
	signal := client.Signal(context.Background(), "hello")

	assert.Nil(t, signal)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSignalSendsAtMost512Characters(t *testing.T) {
	var calls int
	var received string
	client := newSignalClient(oracleFunc(func(ctx context.Context, text string) (*OracleResult, error) {
		calls++
		received = text
		return &OracleResult{Label: "safe", Score: 0.2}, nil
	}), time.Second)

	client.Signal(context.Background(), strings.Repeat("é", 600))

	assert.Equal(t, 1, calls)
	assert.Equal(t, MaxOracleChars, utf8.RuneCountInString(received))
}

func TestSignalWithoutOracle(t *testing.T) {
	client := newSignalClient(nil, time.Second)

	assert.False(t, client.Enabled())
	assert.Nil(t, client.Signal(context.Background(), "hello"))
}
