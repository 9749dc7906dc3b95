package sentiment

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type stubClassifier struct {
	result   ClassifierResult
	err      error
	lastText string
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (ClassifierResult, error) {
	s.lastText = text
	return s.result, s.err
}

func TestAnalyzeConsensusFormula(t *testing.T) {
	cls := &stubClassifier{result: ClassifierResult{Label: "4 stars", Confidence: 0.9}}
	a := NewAnalyzer(cls)

	score, err := a.Analyze(context.Background(), "The company delivered excellent results and growth this quarter.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.ClassifierScore != 0.75 {
		t.Fatalf("classifier score: got %f, want 0.75", score.ClassifierScore)
	}
	want := math.Round(((score.LexiconCompound+1)/2+score.ClassifierScore)/2*1000) / 1000
	if score.ConsensusScore != want {
		t.Fatalf("consensus: got %f, want %f", score.ConsensusScore, want)
	}
	if score.Label != LabelFor(score.ConsensusScore) {
		t.Fatalf("label %s inconsistent with consensus %f", score.Label, score.ConsensusScore)
	}
}

func TestAnalyzeConfidenceIsMinOfSignals(t *testing.T) {
	cls := &stubClassifier{result: ClassifierResult{Label: "5 stars", Confidence: 0.95}}
	a := NewAnalyzer(cls)

	score, err := a.Analyze(context.Background(), "The quarterly numbers were reported on schedule.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Min(0.95, math.Abs(score.LexiconCompound))
	if score.Confidence != want {
		t.Fatalf("confidence: got %f, want min(0.95, |%f|)=%f", score.Confidence, score.LexiconCompound, want)
	}
}

func TestAnalyzeTooShort(t *testing.T) {
	a := NewAnalyzer(&stubClassifier{})
	if _, err := a.Analyze(context.Background(), "hi"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	// URL-only input normalizes to empty.
	if _, err := a.Analyze(context.Background(), "https://example.com/article"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort for url-only input, got %v", err)
	}
}

func TestAnalyzeTruncatesClassifierInput(t *testing.T) {
	cls := &stubClassifier{result: ClassifierResult{Label: "3 stars", Confidence: 0.5}}
	a := NewAnalyzer(cls)

	long := strings.Repeat("unhappy customers everywhere ", 40)
	if _, err := a.Analyze(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len([]rune(cls.lastText)); n > MaxClassifierChars {
		t.Fatalf("classifier input not truncated: %d runes", n)
	}
}

func TestLabelForBoundaries(t *testing.T) {
	cases := []struct {
		consensus float64
		want      Label
	}{
		{0.6, LabelPositive},
		{0.61, LabelPositive},
		{0.599, LabelNeutral},
		{0.5, LabelNeutral},
		{0.401, LabelNeutral},
		{0.4, LabelNegative},
		{0.1, LabelNegative},
	}
	for _, c := range cases {
		if got := LabelFor(c.consensus); got != c.want {
			t.Fatalf("LabelFor(%f) = %s, want %s", c.consensus, got, c.want)
		}
	}
}

func TestAnalyzeBatchSkipsInvalidTexts(t *testing.T) {
	cls := &stubClassifier{result: ClassifierResult{Label: "3 stars", Confidence: 0.5}}
	a := NewAnalyzer(cls)

	stats, err := a.AnalyzeBatch(context.Background(), []string{
		"",
		"ok",
		"A longer text about the business that can actually be analyzed.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalTexts != 3 || stats.ValidAnalyses != 1 {
		t.Fatalf("got total=%d valid=%d, want 3/1", stats.TotalTexts, stats.ValidAnalyses)
	}
}

func TestAnalyzeBatchNoValidText(t *testing.T) {
	a := NewAnalyzer(&stubClassifier{})
	if _, err := a.AnalyzeBatch(context.Background(), []string{"", "x", "yy"}); !errors.Is(err, ErrNoValidText) {
		t.Fatalf("expected ErrNoValidText, got %v", err)
	}
}

func TestAnalyzeBatchClassifierFailureDegrades(t *testing.T) {
	a := NewAnalyzer(&stubClassifier{err: errors.New("model offline")})
	_, err := a.AnalyzeBatch(context.Background(), []string{"A text long enough to reach the classifier."})
	if !errors.Is(err, ErrNoValidText) {
		t.Fatalf("expected ErrNoValidText after classifier failure, got %v", err)
	}
}

func TestAggregateCounts(t *testing.T) {
	scores := []Score{
		{ConsensusScore: 0.8},
		{ConsensusScore: 0.5},
		{ConsensusScore: 0.2},
	}
	stats := Aggregate(5, scores)
	if stats.TotalTexts != 5 || stats.ValidAnalyses != 3 {
		t.Fatalf("got total=%d valid=%d, want 5/3", stats.TotalTexts, stats.ValidAnalyses)
	}
	if stats.PositiveCount != 1 || stats.NeutralCount != 1 || stats.NegativeCount != 1 {
		t.Fatalf("label counts: %d/%d/%d", stats.PositiveCount, stats.NeutralCount, stats.NegativeCount)
	}
	if stats.MinScore != 0.2 || stats.MaxScore != 0.8 {
		t.Fatalf("min/max: %f/%f", stats.MinScore, stats.MaxScore)
	}
	if stats.AverageScore != 0.5 {
		t.Fatalf("average: %f", stats.AverageScore)
	}
}
