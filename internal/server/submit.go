package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/spam"
)

const analysisUnavailableMsg = "Analysis service is temporarily unavailable. Please try again in a few minutes."

// proposalTimeline is the turnaround promise echoed to the submitter.
const proposalTimeline = "48 hours for proposal"

type submitResponse struct {
	Success  bool             `json:"success"`
	Spam     bool             `json:"spam"`
	Analysis *analysisSummary `json:"analysis,omitempty"`
}

// analysisSummary is the client-facing subset of the analysis; internals
// like risk factors and auto-approval stay private.
type analysisSummary struct {
	EstimatedHours             float64               `json:"estimatedHours"`
	TotalEstimate              model.Range           `json:"totalEstimate"`
	RecommendedEngagementModel model.EngagementModel `json:"recommendedEngagementModel"`
	ComplexityScore            int                   `json:"complexityScore"`
	Timeline                   string                `json:"timeline"`
}

func (s *Server) handleSubmitBrief(w http.ResponseWriter, r *http.Request) {
	var input model.BriefInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" || input.Email == "" || input.Description == "" {
		writeError(w, http.StatusBadRequest, "name, email and description are required")
		return
	}

	// Spam gets a success response so automated abusers learn nothing, and
	// skips every downstream stage.
	if res := spam.Detect(input); res.IsSpam {
		zap.L().Info("submission rejected as spam",
			zap.String("reason", res.Reason),
			zap.String("ip", clientIP(r)),
		)
		writeJSON(w, http.StatusOK, submitResponse{Success: true, Spam: true})
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), input)
	if err != nil {
		zap.L().Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, analysisUnavailableMsg)
		return
	}

	brief := model.NewBrief(input, *result, clientIP(r), r.UserAgent())

	// Side effects are detached: the submitter's response never waits on
	// storage, email, or CRM, and their failures stay internal.
	s.runner.Go("store brief", func(ctx context.Context) error {
		return s.store.CreateBrief(ctx, brief)
	})
	s.runner.Go("send notifications", func(ctx context.Context) error {
		s.dispatcher.Dispatch(ctx, input, *result)
		return nil
	})
	if s.crm != nil {
		s.runner.Go("crm sync", func(ctx context.Context) error {
			return s.crm.PushBrief(ctx, brief)
		})
	}

	zap.L().Info("brief accepted",
		zap.String("brief_id", brief.ID),
		zap.String("status", string(brief.Status)),
		zap.Int("complexity_score", result.ComplexityScore),
	)

	writeJSON(w, http.StatusOK, submitResponse{
		Success: true,
		Spam:    false,
		Analysis: &analysisSummary{
			EstimatedHours:             result.EstimatedHours,
			TotalEstimate:              result.TotalEstimate,
			RecommendedEngagementModel: result.RecommendedEngagementModel,
			ComplexityScore:            result.ComplexityScore,
			Timeline:                   proposalTimeline,
		},
	})
}
