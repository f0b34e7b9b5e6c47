package model

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// BriefStatus represents the workflow state of a submitted brief.
type BriefStatus string

const (
	BriefStatusPending    BriefStatus = "pending"
	BriefStatusApproved   BriefStatus = "approved"
	BriefStatusRejected   BriefStatus = "rejected"
	BriefStatusInProgress BriefStatus = "in_progress"
	BriefStatusCompleted  BriefStatus = "completed"
)

// AllBriefStatuses returns every valid brief status.
func AllBriefStatuses() []BriefStatus {
	return []BriefStatus{
		BriefStatusPending,
		BriefStatusApproved,
		BriefStatusRejected,
		BriefStatusInProgress,
		BriefStatusCompleted,
	}
}

// ValidBriefStatus reports whether s is a known brief status.
func ValidBriefStatus(s BriefStatus) bool {
	for _, v := range AllBriefStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// EngagementModel is a pricing arrangement for an engagement.
type EngagementModel string

const (
	EngagementHourly           EngagementModel = "hourly"
	EngagementCommissionHourly EngagementModel = "commission-hourly"
	EngagementEquityCommission EngagementModel = "equity-commission"
)

// AllEngagementModels returns every valid engagement model.
func AllEngagementModels() []EngagementModel {
	return []EngagementModel{
		EngagementHourly,
		EngagementCommissionHourly,
		EngagementEquityCommission,
	}
}

// ValidEngagementModel reports whether m is a known engagement model.
func ValidEngagementModel(m EngagementModel) bool {
	for _, v := range AllEngagementModels() {
		if v == m {
			return true
		}
	}
	return false
}

// Suitability grades how well a project fits the practice.
type Suitability string

const (
	SuitabilityExcellent Suitability = "excellent"
	SuitabilityGood      Suitability = "good"
	SuitabilityFair      Suitability = "fair"
	SuitabilityPoor      Suitability = "poor"
)

// AllSuitabilities returns every valid suitability grade.
func AllSuitabilities() []Suitability {
	return []Suitability{SuitabilityExcellent, SuitabilityGood, SuitabilityFair, SuitabilityPoor}
}

// ValidSuitability reports whether s is a known suitability grade.
func ValidSuitability(s Suitability) bool {
	for _, v := range AllSuitabilities() {
		if v == s {
			return true
		}
	}
	return false
}

// Complexity is the three-bucket classification of a brief, derived from
// the analysis complexity score and never independently settable.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ComplexityFor buckets a 1-10 complexity score: ≤3 simple, ≤6 medium,
// else complex.
func ComplexityFor(score int) Complexity {
	switch {
	case score <= 3:
		return ComplexitySimple
	case score <= 6:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

// BriefInput is the client-submitted project brief. Field names follow the
// widget's wire format.
type BriefInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Company          string `json:"company,omitempty"`
	Description      string `json:"description"`
	Timeline         string `json:"timeline"`
	Stage            string `json:"stage"`
	BudgetRange      string `json:"budgetRange"`
	DataAvailability string `json:"dataAvailability"`
	EngagementModel  string `json:"engagementModel,omitempty"`
	Deliverables     string `json:"deliverables"`
}

// Range is a min/max pair, used for hour and dollar estimates.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Analysis is the structured complexity/pricing assessment produced by the
// model from a brief's text fields.
type Analysis struct {
	ComplexityScore            int             `json:"complexityScore"`
	EstimatedHours             float64         `json:"estimatedHours"`
	HourRange                  Range           `json:"hourRange"`
	RecommendedRate            float64         `json:"recommendedRate"`
	RecommendedEngagementModel EngagementModel `json:"recommendedEngagementModel"`
	TotalEstimate              Range           `json:"totalEstimate"`
	RiskFactors                []string        `json:"riskFactors"`
	Questions                  []string        `json:"questions"`
	Suitability                Suitability     `json:"suitability"`
	AutoApprove                bool            `json:"autoApprove"`
	Reasoning                  string          `json:"reasoning"`
}

// Brief is a persisted submission: the client input, its analysis, and
// workflow metadata.
type Brief struct {
	ID          string      `json:"id"`
	Input       BriefInput  `json:"input"`
	Analysis    Analysis    `json:"analysis"`
	Status      BriefStatus `json:"status"`
	Complexity  Complexity  `json:"complexity"`
	SpamFlagged bool        `json:"spamFlagged"`
	IPAddress   string      `json:"ipAddress,omitempty"`
	UserAgent   string      `json:"userAgent,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewBrief assembles a Brief from a validated input and its analysis.
// Status is approved iff the analysis auto-approved, else pending.
func NewBrief(input BriefInput, analysis Analysis, ip, userAgent string) *Brief {
	status := BriefStatusPending
	if analysis.AutoApprove {
		status = BriefStatusApproved
	}
	return &Brief{
		ID:         NewBriefID(),
		Input:      input,
		Analysis:   analysis,
		Status:     status,
		Complexity: ComplexityFor(analysis.ComplexityScore),
		IPAddress:  ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewBriefID generates an opaque time+random composite identifier.
// Uniqueness is probabilistic, not guaranteed; collisions are negligible at
// intake volumes.
func NewBriefID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + hex.EncodeToString(buf)
}
