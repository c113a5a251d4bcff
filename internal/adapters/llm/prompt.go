// Package llm holds the prompt and response handling shared by the
// chat-model toxicity oracles.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/email-guardian/internal/core"
)

// SystemPrompt is sent as the system message where the provider supports one
const SystemPrompt = "You are a content moderation system. Respond only with JSON."

const promptFormat = `You are a content moderation system. Decide whether the following email text is toxic, abusive or harmful.
Respond with a JSON object containing:
- label: string, either "toxic" or "safe"
- score: number between 0 and 1 (how confident you are in the label)

Email text:
%s

Respond only with the JSON object and nothing else.`

// ErrNoJSON is returned when a model reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in model response")

// Reply is the structured answer requested from the model
type Reply struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prompt builds the classification prompt for the given text
func Prompt(text string) string {
	return fmt.Sprintf(promptFormat, text)
}

// ParseReply extracts the label and score from a model reply, tolerating
// prose or code fences around the JSON object
func ParseReply(responseText string, model string) (*core.OracleResult, error) {
	var reply Reply
	if err := json.Unmarshal([]byte(responseText), &reply); err != nil {
		start := strings.IndexByte(responseText, '{')
		end := strings.LastIndexByte(responseText, '}')
		if start < 0 || end <= start {
			return nil, ErrNoJSON
		}
		if err := json.Unmarshal([]byte(responseText[start:end+1]), &reply); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	label := strings.ToLower(strings.TrimSpace(reply.Label))
	if label == "" {
		return nil, fmt.Errorf("model response has no label")
	}

	return &core.OracleResult{
		Label: label,
		Score: reply.Score,
		Model: model,
	}, nil
}
