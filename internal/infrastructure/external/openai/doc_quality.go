package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// DocQualityScorer implements port.DocQualityScorer using a chat
// completion. The model grades completeness and coherence of the case
// documentation on a 0-100 scale.
type DocQualityScorer struct {
	client *openai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewDocQualityScorer creates the documentation quality scorer
func NewDocQualityScorer(apiKey, baseURL, model string, temperature float32, logger *zap.Logger) *DocQualityScorer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &DocQualityScorer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		temp:   temperature,
		logger: logger,
	}
}

// scoreResult is the JSON shape the model is asked to produce
type scoreResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Score rates the documentation. The model is prompted for bare JSON;
// a markdown-wrapped response is tolerated by extracting the first
// balanced JSON object.
func (s *DocQualityScorer) Score(ctx context.Context, summary string, facts []entity.EvidenceFact) (float64, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temp,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a clinical documentation reviewer for a health plan. Rate the completeness and coherence of prior-authorization case documentation. Always respond with valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: s.buildPrompt(summary, facts),
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Error("OpenAI API call failed", zap.Error(err))
		return 0, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var result scoreResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		extracted, ok := extractJSON(content)
		if !ok || json.Unmarshal([]byte(extracted), &result) != nil {
			s.logger.Error("Failed to parse documentation score",
				zap.Error(err),
				zap.String("content", content))
			return 0, fmt.Errorf("failed to parse documentation score: %w", err)
		}
	}

	if result.Score < 0 || result.Score > 100 {
		return 0, fmt.Errorf("documentation score %.1f out of range", result.Score)
	}

	s.logger.Info("Documentation scored",
		zap.Float64("score", result.Score))

	return result.Score, nil
}

func (s *DocQualityScorer) buildPrompt(summary string, facts []entity.EvidenceFact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rate this prior-authorization case documentation.\n\n**Clinical Summary:**\n%s\n\n**Extracted Facts:**\n", summary)
	for _, f := range facts {
		fmt.Fprintf(&b, "- [%s/%s] %s (source: %s)\n", f.Kind, f.Directness, f.Statement, f.Source.Document)
	}

	b.WriteString(`
Respond with ONLY a valid JSON object (no markdown, no explanation) with this exact structure:
{
  "score": number between 0 and 100,
  "reasoning": string explaining the rating
}

Score completeness (are the facts sufficient to evaluate medical necessity?) and coherence (do the facts and summary agree?).`)

	return b.String()
}

// extractJSON returns the first balanced JSON object in the content
func extractJSON(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// Verify interface compliance
var _ port.DocQualityScorer = (*DocQualityScorer)(nil)
