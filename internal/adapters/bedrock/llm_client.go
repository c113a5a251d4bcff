package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/email-guardian/internal/adapters/llm"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// modelInvoker is the part of *bedrockruntime.Client used here
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Oracle is a ToxicityOracle backed by an Amazon Bedrock model
type Oracle struct {
	client      modelInvoker
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOracle creates a new Bedrock oracle
func NewOracle(client modelInvoker, modelID string, maxTokens int, temperature, topP float32, logger *zap.Logger) *Oracle {
	return &Oracle{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

func (o *Oracle) isAnthropicModel() bool {
	return strings.HasPrefix(o.modelID, "anthropic.")
}

func (o *Oracle) isAmazonTitanModel() bool {
	return strings.HasPrefix(o.modelID, "amazon.titan")
}

// payload builds the request body in the format the model family expects
func (o *Oracle) payload(prompt string) ([]byte, error) {
	switch {
	case o.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               "\n\nHuman: " + prompt + "\n\nAssistant:",
			"max_tokens_to_sample": o.maxTokens,
			"temperature":          o.temperature,
			"top_p":                o.topP,
		})
	case o.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": o.maxTokens,
				"temperature":   o.temperature,
				"topP":          o.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  o.maxTokens,
			"temperature": o.temperature,
			"top_p":       o.topP,
		})
	}
}

// completion pulls the generated text out of the model-specific response body
func (o *Oracle) completion(body []byte) (string, error) {
	switch {
	case o.isAnthropicModel():
		var resp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return resp.Completion, nil
	case o.isAmazonTitanModel():
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return resp.Results[0].OutputText, nil
	default:
		var resp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{resp.Output, resp.Text, resp.Response} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}

// Classify asks the model for a toxicity label and score
func (o *Oracle) Classify(ctx context.Context, text string) (*core.OracleResult, error) {
	payload, err := o.payload(llm.Prompt(text))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := o.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(o.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := o.completion(resp.Body)
	if err != nil {
		return nil, err
	}

	return llm.ParseReply(responseText, o.modelID)
}
