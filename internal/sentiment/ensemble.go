// Package sentiment reconciles two disagreeing text-sentiment signals, a
// lexicon polarity and a pretrained multi-class classifier, into one
// consensus score and label per text.
package sentiment

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"creditlens/internal/textnorm"
)

// Analyzer is the sentiment ensemble. The lexicon is loaded once at
// construction and the classifier handle is injected; both are read-only
// afterwards and safe for concurrent use.
type Analyzer struct {
	lexicon    *govader.SentimentIntensityAnalyzer
	classifier Classifier
}

func NewAnalyzer(classifier Classifier) *Analyzer {
	return &Analyzer{
		lexicon:    govader.NewSentimentIntensityAnalyzer(),
		classifier: classifier,
	}
}

// Analyze scores one text. Returns ErrTooShort when the normalized text is
// below MinAnalyzableChars.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Score, error) {
	text = textnorm.Normalize(text)
	if len([]rune(text)) < MinAnalyzableChars {
		return Score{}, ErrTooShort
	}

	lex := a.lexicon.PolarityScores(text)

	clsInput := text
	if r := []rune(clsInput); len(r) > MaxClassifierChars {
		clsInput = string(r[:MaxClassifierChars])
	}
	cls, err := a.classifier.Classify(ctx, clsInput)
	if err != nil {
		return Score{}, err
	}

	classifierScore := labelToScore(cls.Label)
	lexNorm := (lex.Compound + 1) / 2
	consensus := (lexNorm + classifierScore) / 2

	return Score{
		LexiconCompound:      lex.Compound,
		LexiconPositive:      lex.Positive,
		LexiconNegative:      lex.Negative,
		LexiconNeutral:       lex.Neutral,
		ClassifierLabel:      cls.Label,
		ClassifierScore:      classifierScore,
		ClassifierConfidence: cls.Confidence,
		ConsensusScore:       round3(consensus),
		Label:                LabelFor(consensus),
		Confidence:           math.Min(cls.Confidence, math.Abs(lex.Compound)),
		TokenCount:           len(strings.Fields(text)),
	}, nil
}

// AnalyzeBatch scores each text, drops the unanalyzable ones, and
// aggregates the rest. Returns ErrNoValidText when nothing survives.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, texts []string) (BatchStats, error) {
	scores := make([]Score, 0, len(texts))
	for _, text := range texts {
		s, err := a.Analyze(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return BatchStats{}, ctx.Err()
			}
			log.Printf("sentiment skipping text err=%v", err)
			continue
		}
		scores = append(scores, s)
	}
	if len(scores) == 0 {
		return BatchStats{}, ErrNoValidText
	}
	return Aggregate(len(texts), scores), nil
}

// Aggregate builds BatchStats from already-computed scores. TotalTexts may
// exceed len(scores) when some inputs were rejected.
func Aggregate(totalTexts int, scores []Score) BatchStats {
	stats := BatchStats{
		TotalTexts:    totalTexts,
		ValidAnalyses: len(scores),
		MinScore:      scores[0].ConsensusScore,
		MaxScore:      scores[0].ConsensusScore,
		Details:       scores,
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.ConsensusScore
		stats.MinScore = math.Min(stats.MinScore, s.ConsensusScore)
		stats.MaxScore = math.Max(stats.MaxScore, s.ConsensusScore)
		switch LabelFor(s.ConsensusScore) {
		case LabelPositive:
			stats.PositiveCount++
		case LabelNegative:
			stats.NegativeCount++
		default:
			stats.NeutralCount++
		}
	}
	mean := sum / float64(len(scores))
	variance := 0.0
	for _, s := range scores {
		d := s.ConsensusScore - mean
		variance += d * d
	}
	stats.AverageScore = round3(mean)
	stats.StdDev = round3(math.Sqrt(variance / float64(len(scores))))
	return stats
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
