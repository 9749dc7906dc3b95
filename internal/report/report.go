// Package report renders one assessment as markdown and, through the
// same GFM converter the rest of the toolchain uses, as standalone HTML.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"creditlens/internal/pipeline"
)

const disclaimer = "Automated screening output. Evidence sources degrade independently; " +
	"review the stage trail before relying on the score for a credit decision."

func BuildMarkdown(res pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Credit Risk Assessment\n\n")
	fmt.Fprintf(&b, "- Entity: %s\n", sanitize(res.EntityName))
	fmt.Fprintf(&b, "- Date: %s\n\n", res.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", disclaimer)

	for _, st := range res.Stages {
		if st.Status != pipeline.StageCompleted {
			fmt.Fprintf(&b, "> DEGRADED: stage `%s` ended %s: %s\n\n", st.Stage, st.Status, sanitize(st.Error))
		}
	}

	a := res.Assessment
	fmt.Fprintf(&b, "## Verdict\n\n")
	fmt.Fprintf(&b, "- Risk score: `%.2f / 100`\n", a.RiskScore)
	fmt.Fprintf(&b, "- Tier: `%s` %s\n", a.RiskTier, riskStars(a.RiskScore))
	fmt.Fprintf(&b, "- Recommendation: %s\n\n", sanitize(a.Recommendation))

	fmt.Fprintf(&b, "| Component | Weight | Score |\n|-----------|--------|-------|\n")
	fmt.Fprintf(&b, "| Sentiment | 30%% | %.2f |\n", a.SentimentComponent)
	fmt.Fprintf(&b, "| Negative mentions | 30%% | %.2f |\n", a.MentionsComponent)
	fmt.Fprintf(&b, "| Legal exposure | 40%% | %.2f |\n\n", a.LegalComponent)

	fmt.Fprintf(&b, "## Sentiment Evidence\n\n")
	if s := res.MergedSentiment; s != nil {
		fmt.Fprintf(&b, "| Texts | Valid | Average | Std dev | Positive | Neutral | Negative |\n")
		fmt.Fprintf(&b, "|-------|-------|---------|---------|----------|---------|----------|\n")
		fmt.Fprintf(&b, "| %d | %d | %.3f | %.3f | %d | %d | %d |\n\n",
			s.TotalTexts, s.ValidAnalyses, s.AverageScore, s.StdDev,
			s.PositiveCount, s.NeutralCount, s.NegativeCount)
	} else {
		fmt.Fprintf(&b, "No analyzable text survived; sentiment components defaulted to maximal uncertainty.\n\n")
	}

	fmt.Fprintf(&b, "## News Coverage\n\n")
	n := res.News
	fmt.Fprintf(&b, "Fetched %d articles, %d relevant, %d scored.\n\n",
		n.TotalArticles, n.RelevantArticles, n.AnalyzedArticles)
	if len(n.Articles) > 0 {
		fmt.Fprintf(&b, "| Title | Label | Consensus | Source |\n|-------|-------|-----------|--------|\n")
		for _, item := range n.Articles {
			label, consensus := "-", "-"
			if item.Sentiment != nil {
				label = string(item.Sentiment.Label)
				consensus = fmt.Sprintf("%.3f", item.Sentiment.ConsensusScore)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				sanitizeCell(item.Title), label, consensus, sanitizeCell(item.SourceURL))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Court Records\n\n")
	l := res.Legal
	if l.Error != "" {
		fmt.Fprintf(&b, "Acquisition degraded (%s); scored with no legal findings.\n\n", sanitize(l.Error))
	}
	fmt.Fprintf(&b, "Cases found: %d. Max severity: `%s`.\n\n", l.CasesFound, l.MaxSeverity)
	if len(l.Cases) > 0 {
		fmt.Fprintf(&b, "| Number | Date | Type | Severity |\n|--------|------|------|----------|\n")
		for _, c := range l.Cases {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				sanitizeCell(c.CaseNumber), c.CaseDate, c.CaseType, c.Severity)
		}
		fmt.Fprintf(&b, "\n")
		for _, c := range l.Cases {
			if c.VerdictSummary != "" {
				fmt.Fprintf(&b, "**%s** — %s\n\n", sanitizeCell(c.CaseNumber), sanitize(c.VerdictSummary))
			}
		}
	}

	fmt.Fprintf(&b, "## Stage Trail\n\n")
	fmt.Fprintf(&b, "| Stage | Status | Elapsed |\n|-------|--------|--------|\n")
	for _, st := range res.Stages {
		fmt.Fprintf(&b, "| %s | %s | %dms |\n", st.Stage, st.Status, st.ElapsedMS)
	}
	fmt.Fprintf(&b, "\n")
	return b.String()
}

// RenderHTML converts the markdown report into a self-contained page.
func RenderHTML(markdown string) (string, error) {
	var body strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString("<title>Credit Risk Assessment</title>\n<style>\n")
	page.WriteString(styleCSS)
	page.WriteString("</style>\n</head>\n<body>\n")
	page.WriteString(body.String())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

const styleCSS = `body { font-family: Georgia, serif; max-width: 52rem; margin: 2rem auto; line-height: 1.5; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 0.3rem 0.6rem; text-align: left; }
blockquote { border-left: 3px solid #c33; padding-left: 0.8rem; color: #800; }
code { background: #f2f2f2; padding: 0.1rem 0.3rem; }
`

// riskStars shows the score on a five-star scale, one star per 20 points.
func riskStars(score float64) string {
	filled := int(score / 20)
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}
