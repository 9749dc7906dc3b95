package pipeline

import (
	"errors"
	"strings"
	"time"

	"creditlens/internal/companyintel"
	"creditlens/internal/legal"
	"creditlens/internal/risk"
	"creditlens/internal/sentiment"
)

const (
	// DefaultNewsLimit caps how many articles one run requests and scores.
	DefaultNewsLimit = 10

	// DefaultLegalTimeout bounds court-registry acquisition. The registry
	// renders client-side and can hang; past this the run degrades to an
	// empty evidence record instead of stalling.
	DefaultLegalTimeout = 45 * time.Second

	MinEntityNameLen = 2
)

var ErrInvalidInput = errors.New("entity name must be at least 2 characters")

// Request is one assessment job. IncludeCaseDetail keeps the full case
// records in the response; off by default to keep payloads small.
type Request struct {
	EntityName        string `json:"entity_name"`
	IncludeCaseDetail bool   `json:"include_case_detail"`
}

func (r Request) Validate() error {
	if len([]rune(strings.TrimSpace(r.EntityName))) < MinEntityNameLen {
		return ErrInvalidInput
	}
	return nil
}

type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageTimeout   StageStatus = "timeout"
)

// StageReport records how one stage ended, kept in run order for the
// response's degradation trail.
type StageReport struct {
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	ElapsedMS int64       `json:"elapsed_ms"`
}

// ArticleAnalysis is one relevant article with its sentiment score.
// Sentiment is nil when the text was too short or scoring failed.
type ArticleAnalysis struct {
	companyintel.Article
	Sentiment *sentiment.Score `json:"sentiment,omitempty"`
}

type NewsAnalysis struct {
	Status           StageStatus       `json:"status"`
	TotalArticles    int               `json:"total_articles"`
	RelevantArticles int               `json:"relevant_articles"`
	AnalyzedArticles int               `json:"analyzed_articles"`
	Articles         []ArticleAnalysis `json:"articles"`
	Sources          []string          `json:"sources,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// Result is the full assessment response. MergedSentiment fuses the
// profile batch with the per-article scores; nil means the sentiment
// evidence degraded entirely and scoring used its uncertainty defaults.
type Result struct {
	EntityName       string                `json:"entity_name"`
	GeneratedAt      time.Time             `json:"generated_at"`
	Profile          companyintel.Profile  `json:"profile"`
	ProfileSentiment *sentiment.BatchStats `json:"profile_sentiment,omitempty"`
	News             NewsAnalysis          `json:"news_analysis"`
	Legal            legal.Evidence        `json:"legal_evidence"`
	MergedSentiment  *sentiment.BatchStats `json:"merged_sentiment,omitempty"`
	Assessment       risk.Assessment       `json:"risk_assessment"`
	Stages           []StageReport         `json:"stages"`
}
