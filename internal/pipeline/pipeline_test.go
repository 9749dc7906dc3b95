package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditlens/internal/companyintel"
	"creditlens/internal/legal"
	"creditlens/internal/sentiment"
)

type fakeIntel struct {
	profile    companyintel.Profile
	profileErr error
	news       companyintel.NewsBundle
	newsErr    error
}

func (f *fakeIntel) FetchProfile(ctx context.Context, entityName string) (companyintel.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeIntel) FetchNews(ctx context.Context, entityName string, limit int) (companyintel.NewsBundle, error) {
	return f.news, f.newsErr
}

type fakeCourts struct {
	frags []string
	err   error
	hang  bool
}

func (f *fakeCourts) FetchFragments(ctx context.Context, entityName string) ([]string, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.frags, f.err
}

func (f *fakeCourts) BaseURL() string { return "https://court.example" }

type fixedClassifier struct{ label string }

func (f fixedClassifier) Classify(ctx context.Context, text string) (sentiment.ClassifierResult, error) {
	return sentiment.ClassifierResult{Label: f.label, Confidence: 0.9}, nil
}

const courtFragment = `<div class="entry-c">
  <strong><a href="/direktori/putusan/zz1.html">Putusan PN Nomor 55/Pdt.G/2024/PN Jkt</a></strong>
  <div>Tanggal 03-04-2024 — Penggugat Bank melawan PT Andalan Niaga Sejahtera</div>
  <div class="small">Putus : 03-04-2024</div>
  <blockquote>Gugatan wanprestasi dikabulkan sebagian dengan menghukum tergugat membayar kerugian.</blockquote>
</div>`

func analyzeableProfile(entity string) companyintel.Profile {
	return companyintel.Profile{
		EntityName: entity,
		Text: "Perusahaan manufaktur dengan rekam jejak pembayaran yang baik.\n\n" +
			"Tidak ada kontroversi besar yang tercatat dalam pemberitaan.",
		Provider: "search-provider",
	}
}

func newTestOrchestrator(intel IntelSource, courts LegalSource) *Orchestrator {
	analyzer := sentiment.NewAnalyzer(fixedClassifier{label: "3 stars"})
	return NewOrchestrator(intel, courts, analyzer)
}

func TestRunFullAssessment(t *testing.T) {
	entity := "PT Andalan Niaga Sejahtera"
	intel := &fakeIntel{
		profile: analyzeableProfile(entity),
		news: companyintel.NewsBundle{
			EntityName: entity,
			Articles: []companyintel.Article{
				{Title: "Andalan memperluas pabrik", Summary: "Ekspansi kapasitas produksi berjalan sesuai rencana tahun ini."},
				{Title: "Berita lain sama sekali", Summary: "Tidak menyebut perusahaan target dalam teks manapun."},
			},
		},
	}
	courts := &fakeCourts{frags: []string{courtFragment}}

	res, err := newTestOrchestrator(intel, courts).Run(context.Background(), Request{EntityName: entity, IncludeCaseDetail: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.News.TotalArticles != 2 || res.News.RelevantArticles != 1 {
		t.Fatalf("relevance filter: total=%d relevant=%d", res.News.TotalArticles, res.News.RelevantArticles)
	}
	if res.Legal.CasesFound != 1 || len(res.Legal.Cases) != 1 {
		t.Fatalf("legal evidence: %+v", res.Legal)
	}
	if res.MergedSentiment == nil {
		t.Fatal("expected merged sentiment")
	}
	// Two profile paragraphs plus one relevant article.
	if res.MergedSentiment.ValidAnalyses != 3 {
		t.Fatalf("merged valid analyses: %d", res.MergedSentiment.ValidAnalyses)
	}
	if res.Assessment.RiskScore <= 0 {
		t.Fatalf("assessment not computed: %+v", res.Assessment)
	}
	for _, st := range res.Stages {
		if st.Status != StageCompleted {
			t.Fatalf("stage %s ended %s: %s", st.Stage, st.Status, st.Error)
		}
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	o := newTestOrchestrator(&fakeIntel{}, &fakeCourts{})
	for _, name := range []string{"", " ", "X"} {
		if _, err := o.Run(context.Background(), Request{EntityName: name}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("EntityName=%q: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestRunProfileFailureIsFatal(t *testing.T) {
	intel := &fakeIntel{profileErr: errors.New("provider down")}
	_, err := newTestOrchestrator(intel, &fakeCourts{}).Run(context.Background(), Request{EntityName: "PT Contoh"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != "profile" {
		t.Fatalf("failed stage: %s", se.Stage)
	}
}

func TestRunNewsFailureDegrades(t *testing.T) {
	entity := "PT Andalan Niaga"
	intel := &fakeIntel{
		profile: analyzeableProfile(entity),
		newsErr: errors.New("search provider timeout"),
	}
	res, err := newTestOrchestrator(intel, &fakeCourts{}).Run(context.Background(), Request{EntityName: entity})
	if err != nil {
		t.Fatalf("news failure must not be fatal: %v", err)
	}
	if res.News.Status != StageFailed || res.News.TotalArticles != 0 {
		t.Fatalf("news analysis: %+v", res.News)
	}
	if res.News.Error == "" {
		t.Fatal("expected news error recorded")
	}
	// Profile sentiment alone still feeds the score.
	if res.MergedSentiment == nil {
		t.Fatal("expected merged sentiment from profile")
	}
}

func TestRunLegalTimeoutDegrades(t *testing.T) {
	entity := "PT Andalan Niaga"
	intel := &fakeIntel{profile: analyzeableProfile(entity)}
	courts := &fakeCourts{hang: true}

	o := newTestOrchestrator(intel, courts).WithLegalTimeout(20 * time.Millisecond)
	res, err := o.Run(context.Background(), Request{EntityName: entity})
	if err != nil {
		t.Fatalf("legal timeout must not be fatal: %v", err)
	}
	if res.Legal.CasesFound != 0 || res.Legal.MaxSeverity != legal.SeverityNone {
		t.Fatalf("expected empty evidence: %+v", res.Legal)
	}
	if res.Legal.Error == "" {
		t.Fatal("expected evidence error recorded")
	}
	found := false
	for _, st := range res.Stages {
		if st.Stage == "legal" {
			found = true
			if st.Status != StageTimeout {
				t.Fatalf("legal stage status: %s", st.Status)
			}
		}
	}
	if !found {
		t.Fatal("legal stage not reported")
	}
}

func TestRunLegalErrorDegrades(t *testing.T) {
	entity := "PT Andalan Niaga"
	intel := &fakeIntel{profile: analyzeableProfile(entity)}
	courts := &fakeCourts{err: errors.New("registry unreachable")}

	res, err := newTestOrchestrator(intel, courts).Run(context.Background(), Request{EntityName: entity})
	if err != nil {
		t.Fatalf("legal failure must not be fatal: %v", err)
	}
	for _, st := range res.Stages {
		if st.Stage == "legal" && st.Status != StageFailed {
			t.Fatalf("legal stage status: %s", st.Status)
		}
	}
}

func TestRunTrimsCaseDetailByDefault(t *testing.T) {
	entity := "PT Andalan Niaga"
	intel := &fakeIntel{profile: analyzeableProfile(entity)}
	courts := &fakeCourts{frags: []string{courtFragment}}

	res, err := newTestOrchestrator(intel, courts).Run(context.Background(), Request{EntityName: entity})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Legal.CasesFound != 1 {
		t.Fatalf("cases found: %d", res.Legal.CasesFound)
	}
	if res.Legal.Cases != nil {
		t.Fatalf("case records should be trimmed: %+v", res.Legal.Cases)
	}
}

func TestRunScoresWithUncertaintyWhenNoText(t *testing.T) {
	// A profile that normalizes to nothing analyzable and no news: the
	// sentiment components fall back to 50 each.
	intel := &fakeIntel{
		profile: companyintel.Profile{EntityName: "PT Sunyi", Text: "https://only.example/url"},
		newsErr: errors.New("no coverage"),
	}
	res, err := newTestOrchestrator(intel, &fakeCourts{}).Run(context.Background(), Request{EntityName: "PT Sunyi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MergedSentiment != nil {
		t.Fatalf("expected nil merged sentiment, got %+v", res.MergedSentiment)
	}
	if res.Assessment.SentimentComponent != 50.0 || res.Assessment.MentionsComponent != 50.0 {
		t.Fatalf("uncertainty defaults: %+v", res.Assessment)
	}
}

func TestArticleMentionsEntity(t *testing.T) {
	cases := []struct {
		title, summary string
		want           bool
	}{
		{"PT Andalan Niaga digugat", "", true},
		{"Ekspansi andalan di Jawa", "", true},
		{"Berita umum ekonomi", "menyebut niaga kecil di daerah", true},
		{"Berita lain", "tanpa kaitan apa pun", false},
		// Short legal-form tokens alone must not match.
		{"PT lain sama sekali", "", false},
	}
	for _, c := range cases {
		article := companyintel.Article{Title: c.title, Summary: c.summary}
		if got := articleMentionsEntity(article, "PT Andalan Niaga"); got != c.want {
			t.Fatalf("articleMentionsEntity(%q/%q) = %v, want %v", c.title, c.summary, got, c.want)
		}
	}
}
