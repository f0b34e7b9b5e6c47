// Package analysis requests a complexity/pricing assessment for a brief from
// the Anthropic API and strictly validates what comes back. Model output is
// untrusted input: a type mismatch, out-of-range score, or unknown enum value
// is a hard failure, never a partial result.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/pkg/anthropic"
)

const defaultTimeout = 45 * time.Second

// Analyzer produces an Analysis for a brief via a single model call.
type Analyzer struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	timeout time.Duration
}

// New creates an Analyzer. The client may be nil when no API key is
// configured; Analyze then fails immediately.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Analyzer {
	timeout := defaultTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return &Analyzer{client: client, cfg: cfg, timeout: timeout}
}

// Analyze calls the model with the brief and the scoring rubric. The call is
// bounded by the configured deadline and never retried; any failure
// propagates to the caller, which maps it to a service-unavailable response.
func (a *Analyzer) Analyze(ctx context.Context, input model.BriefInput) (*model.Analysis, error) {
	if a.client == nil {
		return nil, eris.New("analysis: no API key configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(analyzeUserPrompt,
		input.Name,
		input.Email,
		input.Company,
		input.Description,
		input.Timeline,
		input.Stage,
		input.BudgetRange,
		input.DataAvailability,
		input.EngagementModel,
		input.Deliverables,
	)

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(analyzeSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: create message")
	}
	resp.Usage.LogCost(a.cfg.Model, "brief-analysis")

	result, err := parseAnalysis(extractText(resp))
	if err != nil {
		return nil, err
	}

	if result.RecommendedEngagementModel == "" {
		result.RecommendedEngagementModel = fillEngagementModel(result.ComplexityScore, input)
		zap.L().Debug("analysis: filled missing engagement model",
			zap.String("model", string(result.RecommendedEngagementModel)),
		)
	}

	return result, nil
}

// fillEngagementModel is the single gap-fill applied to model output, used
// only when recommendedEngagementModel is absent. Low budgets and high
// complexity both steer toward commission-hourly; otherwise the caller's
// requested model wins, defaulting to hourly.
func fillEngagementModel(complexityScore int, input model.BriefInput) model.EngagementModel {
	switch input.BudgetRange {
	case "under-5k", "5k-10k":
		return model.EngagementCommissionHourly
	}
	if complexityScore >= 7 {
		return model.EngagementCommissionHourly
	}
	if requested := model.EngagementModel(input.EngagementModel); model.ValidEngagementModel(requested) {
		return requested
	}
	return model.EngagementHourly
}

// parseAnalysis decodes and validates the model's JSON. Decoding into typed
// fields rejects type mismatches; validation rejects out-of-range or unknown
// values. The engagement model may be empty (gap-filled by the caller).
func parseAnalysis(text string) (*model.Analysis, error) {
	text = cleanJSON(text)

	var result model.Analysis
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, eris.Wrap(err, "analysis: parse response")
	}

	if result.ComplexityScore < 1 || result.ComplexityScore > 10 {
		return nil, eris.Errorf("analysis: complexity score %d out of range", result.ComplexityScore)
	}
	if result.EstimatedHours <= 0 {
		return nil, eris.Errorf("analysis: estimated hours %v not positive", result.EstimatedHours)
	}
	if result.HourRange.Min > result.HourRange.Max {
		return nil, eris.New("analysis: inverted hour range")
	}
	if result.TotalEstimate.Min > result.TotalEstimate.Max {
		return nil, eris.New("analysis: inverted total estimate")
	}
	if !model.ValidSuitability(result.Suitability) {
		return nil, eris.Errorf("analysis: unknown suitability %q", result.Suitability)
	}
	if result.RecommendedEngagementModel != "" && !model.ValidEngagementModel(result.RecommendedEngagementModel) {
		return nil, eris.Errorf("analysis: unknown engagement model %q", result.RecommendedEngagementModel)
	}

	return &result, nil
}

func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
