// Package huggingface is a ToxicityOracle backed by the Hugging Face
// inference API text-classification endpoint.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mikey/email-guardian/internal/config"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Oracle calls a hosted text-classification model
type Oracle struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	logger     *zap.Logger
}

type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewOracle creates a new Hugging Face oracle. The request deadline comes
// from the caller's context.
func NewOracle(cfg config.HuggingFaceConfig, httpClient *http.Client, logger *zap.Logger) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("huggingface model is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Oracle{
		httpClient: httpClient,
		url:        strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Model,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}, nil
}

// Classify posts the text and returns the highest scoring label
func (o *Oracle) Classify(ctx context.Context, text string) (*core.OracleResult, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read huggingface response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	preds, err := parsePredictions(raw)
	if err != nil {
		return nil, err
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	o.logger.Debug("Hugging Face oracle replied",
		zap.String("label", best.Label),
		zap.Float64("score", best.Score))

	return &core.OracleResult{
		Label: strings.ToLower(best.Label),
		Score: best.Score,
		Model: o.model,
	}, nil
}

// parsePredictions accepts both the flat and the batched response shapes
func parsePredictions(raw []byte) ([]prediction, error) {
	var nested [][]prediction
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	var flat []prediction
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	return nil, fmt.Errorf("unexpected huggingface response: %.200s", string(raw))
}
