package sentiment

import "errors"

type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNeutral  Label = "NEUTRAL"
	LabelNegative Label = "NEGATIVE"
)

// MinAnalyzableChars is the shortest normalized text worth scoring.
const MinAnalyzableChars = 10

// MaxClassifierChars is the classifier's input window.
const MaxClassifierChars = 512

var (
	// ErrTooShort is returned for texts below MinAnalyzableChars.
	ErrTooShort = errors.New("text too short to analyze")
	// ErrNoValidText is returned when a whole batch filters down to nothing.
	ErrNoValidText = errors.New("no valid text in batch")
)

// Score is the per-text ensemble result. Immutable once computed.
type Score struct {
	LexiconCompound float64 `json:"lexicon_compound"`
	LexiconPositive float64 `json:"lexicon_positive"`
	LexiconNegative float64 `json:"lexicon_negative"`
	LexiconNeutral  float64 `json:"lexicon_neutral"`

	ClassifierLabel      string  `json:"classifier_label"`
	ClassifierScore      float64 `json:"classifier_score"`
	ClassifierConfidence float64 `json:"classifier_confidence"`

	ConsensusScore float64 `json:"consensus_score"`
	Label          Label   `json:"sentiment_label"`
	Confidence     float64 `json:"confidence"`
	TokenCount     int     `json:"token_count"`
}

// BatchStats aggregates the valid scores of one batch.
// PositiveCount + NeutralCount + NegativeCount == ValidAnalyses <= TotalTexts.
type BatchStats struct {
	TotalTexts    int     `json:"total_texts"`
	ValidAnalyses int     `json:"valid_analyses"`
	AverageScore  float64 `json:"average_score"`
	StdDev        float64 `json:"std_dev"`
	MinScore      float64 `json:"min_score"`
	MaxScore      float64 `json:"max_score"`
	PositiveCount int     `json:"positive_count"`
	NeutralCount  int     `json:"neutral_count"`
	NegativeCount int     `json:"negative_count"`
	Details       []Score `json:"details,omitempty"`
}

// LabelFor maps a consensus score to its label. The closed boundaries
// belong to the outer labels: 0.6 is POSITIVE, 0.4 is NEGATIVE, and only
// the open interval between them is NEUTRAL.
func LabelFor(consensus float64) Label {
	switch {
	case consensus >= 0.6:
		return LabelPositive
	case consensus <= 0.4:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
