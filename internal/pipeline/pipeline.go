// Package pipeline orchestrates the evidence stages of one credit-risk
// assessment: entity profile, news sentiment, court records, then the
// fused score. Stages degrade independently; only profile acquisition
// and input validation are fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"creditlens/internal/companyintel"
	"creditlens/internal/legal"
	"creditlens/internal/risk"
	"creditlens/internal/sentiment"
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// IntelSource acquires the entity profile and recent news coverage.
// *companyintel.Client satisfies it.
type IntelSource interface {
	FetchProfile(ctx context.Context, entityName string) (companyintel.Profile, error)
	FetchNews(ctx context.Context, entityName string, limit int) (companyintel.NewsBundle, error)
}

// LegalSource acquires raw per-case fragments from the court registry.
// *legal.Fetcher satisfies it.
type LegalSource interface {
	FetchFragments(ctx context.Context, entityName string) ([]string, error)
	BaseURL() string
}

type Orchestrator struct {
	intel        IntelSource
	courts       LegalSource
	analyzer     *sentiment.Analyzer
	newsLimit    int
	legalTimeout time.Duration
	tracer       trace.Tracer
}

func NewOrchestrator(intel IntelSource, courts LegalSource, analyzer *sentiment.Analyzer) *Orchestrator {
	return &Orchestrator{
		intel:        intel,
		courts:       courts,
		analyzer:     analyzer,
		newsLimit:    DefaultNewsLimit,
		legalTimeout: DefaultLegalTimeout,
		tracer:       otel.Tracer("creditlens/pipeline"),
	}
}

// WithLegalTimeout overrides the court-acquisition deadline. Zero or
// negative keeps the default.
func (o *Orchestrator) WithLegalTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.legalTimeout = d
	}
	return o
}

// Run executes one assessment. The returned error is non-nil only for the
// fatal paths: invalid input or profile acquisition failure. Every other
// stage failure is recorded in Result.Stages and the run continues with
// whatever evidence survived.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	entity := strings.TrimSpace(req.EntityName)

	ctx, span := o.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("entity.name", entity)))
	defer span.End()

	res := Result{EntityName: entity, GeneratedAt: time.Now().UTC()}

	if err := o.runProfile(ctx, &res); err != nil {
		return Result{}, err
	}
	o.runProfileSentiment(ctx, &res)
	o.runNews(ctx, &res)
	o.runLegal(ctx, &res)
	o.runScoring(ctx, &res)

	if !req.IncludeCaseDetail {
		res.Legal.Cases = nil
	}
	return res, nil
}

func (o *Orchestrator) runProfile(ctx context.Context, res *Result) error {
	ctx, span := o.tracer.Start(ctx, "stage.profile")
	defer span.End()
	start := time.Now()

	profile, err := o.intel.FetchProfile(ctx, res.EntityName)
	if err != nil {
		res.Stages = append(res.Stages, failedStage("profile", err, start))
		return &StageError{Stage: "profile", Err: err}
	}
	res.Profile = profile
	res.Stages = append(res.Stages, completedStage("profile", start))
	log.Printf("pipeline profile fetched entity=%q provider=%s sources=%d",
		res.EntityName, profile.Provider, len(profile.Sources))
	return nil
}

func (o *Orchestrator) runProfileSentiment(ctx context.Context, res *Result) {
	ctx, span := o.tracer.Start(ctx, "stage.profile_sentiment")
	defer span.End()
	start := time.Now()

	stats, err := o.analyzer.AnalyzeBatch(ctx, splitProfileText(res.Profile.Text))
	if err != nil {
		res.Stages = append(res.Stages, failedStage("profile_sentiment", err, start))
		log.Printf("pipeline profile sentiment degraded entity=%q err=%v", res.EntityName, err)
		return
	}
	res.ProfileSentiment = &stats
	res.Stages = append(res.Stages, completedStage("profile_sentiment", start))
}

func (o *Orchestrator) runNews(ctx context.Context, res *Result) {
	ctx, span := o.tracer.Start(ctx, "stage.news")
	defer span.End()
	start := time.Now()

	bundle, err := o.intel.FetchNews(ctx, res.EntityName, o.newsLimit)
	if err != nil {
		// News is optional evidence: record a zero-article result and
		// let scoring lean on the remaining signals.
		res.News = NewsAnalysis{Status: StageFailed, Articles: []ArticleAnalysis{}, Error: err.Error()}
		res.Stages = append(res.Stages, failedStage("news", err, start))
		log.Printf("pipeline news degraded entity=%q err=%v", res.EntityName, err)
		return
	}

	analysis := NewsAnalysis{
		Status:        StageCompleted,
		TotalArticles: len(bundle.Articles),
		Articles:      []ArticleAnalysis{},
		Sources:       bundle.Sources,
	}
	for _, article := range bundle.Articles {
		if !articleMentionsEntity(article, res.EntityName) {
			continue
		}
		analysis.RelevantArticles++
		item := ArticleAnalysis{Article: article}
		score, err := o.analyzer.Analyze(ctx, article.Title+". "+article.Summary)
		if err != nil {
			log.Printf("pipeline news article skipped title=%q err=%v", article.Title, err)
		} else {
			item.Sentiment = &score
			analysis.AnalyzedArticles++
		}
		analysis.Articles = append(analysis.Articles, item)
	}
	res.News = analysis
	res.Stages = append(res.Stages, completedStage("news", start))
	log.Printf("pipeline news analyzed entity=%q total=%d relevant=%d scored=%d",
		res.EntityName, analysis.TotalArticles, analysis.RelevantArticles, analysis.AnalyzedArticles)
}

func (o *Orchestrator) runLegal(ctx context.Context, res *Result) {
	ctx, span := o.tracer.Start(ctx, "stage.legal")
	defer span.End()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.legalTimeout)
	defer cancel()

	fragments, err := o.courts.FetchFragments(ctx, res.EntityName)
	if err != nil {
		res.Legal = legal.EmptyEvidence(res.EntityName, err.Error())
		status := StageFailed
		if errors.Is(err, context.DeadlineExceeded) {
			status = StageTimeout
		}
		res.Stages = append(res.Stages, StageReport{
			Stage: "legal", Status: status, Error: err.Error(),
			ElapsedMS: time.Since(start).Milliseconds(),
		})
		log.Printf("pipeline legal degraded entity=%q status=%s err=%v", res.EntityName, status, err)
		return
	}

	cases := legal.Extract(fragments, o.courts.BaseURL())
	res.Legal = legal.NewEvidence(res.EntityName, cases)
	res.Stages = append(res.Stages, completedStage("legal", start))
	log.Printf("pipeline legal extracted entity=%q cases=%d max_severity=%s",
		res.EntityName, len(cases), res.Legal.MaxSeverity)
}

func (o *Orchestrator) runScoring(ctx context.Context, res *Result) {
	_, span := o.tracer.Start(ctx, "stage.scoring")
	defer span.End()
	start := time.Now()

	res.MergedSentiment = mergeSentiment(res.ProfileSentiment, res.News)
	res.Assessment = risk.Score(res.MergedSentiment, res.Legal)
	res.Stages = append(res.Stages, completedStage("scoring", start))
	span.SetAttributes(
		attribute.Float64("risk.score", res.Assessment.RiskScore),
		attribute.String("risk.tier", string(res.Assessment.RiskTier)),
	)
	log.Printf("pipeline scored entity=%q score=%.2f tier=%s",
		res.EntityName, res.Assessment.RiskScore, res.Assessment.RiskTier)
}

// mergeSentiment recomputes batch statistics over the profile scores and
// the per-article scores together, so the risk engine sees one corpus.
func mergeSentiment(profile *sentiment.BatchStats, news NewsAnalysis) *sentiment.BatchStats {
	scores := []sentiment.Score{}
	total := 0
	if profile != nil {
		scores = append(scores, profile.Details...)
		total += profile.TotalTexts
	}
	for _, a := range news.Articles {
		if a.Sentiment != nil {
			scores = append(scores, *a.Sentiment)
		}
	}
	total += news.RelevantArticles
	if len(scores) == 0 {
		return nil
	}
	stats := sentiment.Aggregate(total, scores)
	return &stats
}

// articleMentionsEntity keeps only coverage that plausibly concerns the
// entity: the full name as a substring, or any distinctive name word.
// Short words (legal-form abbreviations and the like) are ignored.
func articleMentionsEntity(article companyintel.Article, entityName string) bool {
	haystack := strings.ToLower(article.Title + " " + article.Summary)
	name := strings.ToLower(entityName)
	if strings.Contains(haystack, name) {
		return true
	}
	for _, word := range strings.Fields(name) {
		if len([]rune(word)) > 3 && strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

func splitProfileText(text string) []string {
	parts := []string{}
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{text}
	}
	return parts
}

func completedStage(name string, start time.Time) StageReport {
	return StageReport{Stage: name, Status: StageCompleted, ElapsedMS: time.Since(start).Milliseconds()}
}

func failedStage(name string, err error, start time.Time) StageReport {
	return StageReport{Stage: name, Status: StageFailed, Error: err.Error(), ElapsedMS: time.Since(start).Milliseconds()}
}
