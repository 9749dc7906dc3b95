// Package risk turns fused sentiment and legal evidence into a bounded
// score, a tier, and a recommendation. Pure computation, no I/O; identical
// inputs always produce an identical assessment.
package risk

import (
	"math"

	"creditlens/internal/legal"
	"creditlens/internal/sentiment"
)

const (
	sentimentWeight = 0.30
	mentionsWeight  = 0.30
	legalWeight     = 0.40

	// A component sits at 50 when its evidence is missing: maximal
	// uncertainty, not zero risk.
	uncertainComponent = 50.0
)

type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

var severityRisk = map[legal.Severity]float64{
	legal.SeverityHigh:   40,
	legal.SeverityMedium: 25,
	legal.SeverityLow:    10,
	legal.SeverityNone:   0,
}

type Detail struct {
	TotalTexts      int            `json:"total_texts"`
	PositiveTexts   int            `json:"positive_texts"`
	NegativeTexts   int            `json:"negative_texts"`
	LegalCasesFound int            `json:"legal_cases_found"`
	MaxCaseSeverity legal.Severity `json:"max_case_severity"`
}

// Assessment is the final fused risk verdict. Created once per run, never
// mutated after construction.
type Assessment struct {
	RiskScore          float64 `json:"risk_score"`
	RiskTier           Tier    `json:"risk_tier"`
	SentimentComponent float64 `json:"sentiment_component"`
	MentionsComponent  float64 `json:"mentions_component"`
	LegalComponent     float64 `json:"legal_component"`
	Detail             Detail  `json:"detail"`
	Recommendation     string  `json:"recommendation"`
}

// Score fuses the evidence. stats may be nil when the whole sentiment stage
// degraded; both affected components then fall back to 50.
func Score(stats *sentiment.BatchStats, evidence legal.Evidence) Assessment {
	sentimentComponent := round2(sentimentComponentOf(stats))
	mentionsComponent := round2(mentionsComponentOf(stats))
	legalComponent := round2(legalComponentOf(evidence))

	score := round2(sentimentComponent*sentimentWeight +
		mentionsComponent*mentionsWeight +
		legalComponent*legalWeight)
	tier := tierFor(score)

	detail := Detail{
		LegalCasesFound: evidence.CasesFound,
		MaxCaseSeverity: evidence.MaxSeverity,
	}
	if stats != nil {
		detail.TotalTexts = stats.TotalTexts
		detail.PositiveTexts = stats.PositiveCount
		detail.NegativeTexts = stats.NegativeCount
	}

	return Assessment{
		RiskScore:          score,
		RiskTier:           tier,
		SentimentComponent: sentimentComponent,
		MentionsComponent:  mentionsComponent,
		LegalComponent:     legalComponent,
		Detail:             detail,
		Recommendation:     recommendationFor(tier, sentimentComponent, legalComponent),
	}
}

// sentimentComponentOf inverts average sentiment: 0.0 (negative) → 100,
// 0.5 (neutral) → 50, 1.0 (positive) → 0.
func sentimentComponentOf(stats *sentiment.BatchStats) float64 {
	if stats == nil || stats.ValidAnalyses == 0 {
		return uncertainComponent
	}
	return clamp(0, 100, (1.0-stats.AverageScore)*100)
}

func mentionsComponentOf(stats *sentiment.BatchStats) float64 {
	if stats == nil || stats.ValidAnalyses == 0 {
		return uncertainComponent
	}
	ratio := float64(stats.NegativeCount) / float64(stats.ValidAnalyses) * 100
	return clamp(0, 100, ratio)
}

func legalComponentOf(evidence legal.Evidence) float64 {
	casesRisk := 0.0
	if evidence.CasesFound > 0 {
		casesRisk = math.Min(60, float64(evidence.CasesFound)/5.0*60)
	}
	return clamp(0, 100, casesRisk+severityRisk[evidence.MaxSeverity])
}

// tierFor: inclusive boundaries belong to the lower tier.
func tierFor(score float64) Tier {
	switch {
	case score <= 30:
		return TierLow
	case score <= 65:
		return TierMedium
	default:
		return TierHigh
	}
}

func recommendationFor(tier Tier, sentimentComponent, legalComponent float64) string {
	switch tier {
	case TierLow:
		return "RECOMMENDED: Positive track record. Safe for credit approval."
	case TierMedium:
		if legalComponent > 60 {
			return "REVIEW REQUIRED: Legal issues detected. Manual investigation needed."
		}
		if sentimentComponent > 70 {
			return "REVIEW REQUIRED: Negative sentiment found. Further due diligence needed."
		}
		return "REVIEW REQUIRED: Mixed signals. Request additional documentation."
	default:
		if legalComponent > 80 {
			return "NOT RECOMMENDED: Significant legal history. Reject application."
		}
		return "NOT RECOMMENDED: High-risk profile. Reject or require collateral."
	}
}

func clamp(lo, hi, v float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
