package companyintel

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"creditlens/internal/textnorm"
)

var (
	urlRe      = regexp.MustCompile(`http[s]?://[^\s\)]+`)
	numberedRe = regexp.MustCompile(`^(\d+)[\.\)]\s+(.+)`)
	bulletRe   = regexp.MustCompile(`^[-•*]\s+(.+)`)
)

// harvestSources collects every URL the provider exposes: the citations
// array, the search_results array, and any URL embedded in the answer text.
func harvestSources(raw chatResponse, content string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	for _, c := range raw.Citations {
		add(urlFromRaw(c))
	}
	for _, r := range raw.SearchResults {
		add(urlFromRaw(r))
	}
	for _, u := range urlRe.FindAllString(content, -1) {
		add(u)
	}
	return out
}

// Citation entries come back either as bare URL strings or as objects with
// a url field, depending on provider version.
func urlFromRaw(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var m struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &m) == nil {
		return m.URL
	}
	return ""
}

func extractURLs(text string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, u := range urlRe.FindAllString(text, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// parseArticles recovers structured articles from a loosely formatted
// answer. Three strategies, tried in order and accumulated: numbered or
// bulleted list items, paragraph splitting, and source-backed chunks.
func parseArticles(content string, sources []string, limit int) []Article {
	articles := parseListItems(content)

	if len(articles) < limit {
		articles = appendParagraphArticles(articles, content, limit)
	}
	if len(articles) == 0 && len(sources) > 0 {
		articles = articlesFromSources(content, sources, limit)
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}
	for i := range articles {
		if strings.TrimSpace(articles[i].Title) == "" {
			articles[i].Title = "No title"
		}
		if strings.TrimSpace(articles[i].Summary) == "" {
			articles[i].Summary = articles[i].Title
		}
	}
	return articles
}

func parseListItems(content string) []Article {
	articles := []Article{}
	var cur *Article

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Title) != "" {
			articles = append(articles, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}

		title := ""
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			title = m[2]
		} else if m := bulletRe.FindStringSubmatch(line); m != nil {
			title = m[1]
		}
		if title != "" {
			flush()
			cur = &Article{Title: textnorm.StripMarkdown(title)}
			continue
		}

		if u := urlRe.FindString(line); u != "" {
			if cur != nil {
				cur.SourceURL = u
			}
			line = strings.TrimSpace(urlRe.ReplaceAllString(line, ""))
		}
		if cur == nil || line == "" {
			continue
		}
		// A continuation line that mostly repeats the title is noise.
		if wordOverlap(cur.Title, line) > 0.8 {
			continue
		}
		if cur.Summary == "" {
			cur.Summary = line
		} else if !strings.Contains(cur.Summary, line) && !strings.EqualFold(line, cur.Title) {
			cur.Summary += " " + line
		}
	}
	flush()
	return articles
}

func appendParagraphArticles(articles []Article, content string, limit int) []Article {
	titles := map[string]struct{}{}
	for _, a := range articles {
		titles[a.Title] = struct{}{}
	}

	for _, para := range strings.Split(content, "\n\n") {
		if len(articles) >= limit {
			break
		}
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sourceURL := urlRe.FindString(para)
		para = strings.TrimSpace(urlRe.ReplaceAllString(para, ""))

		lines := strings.Split(para, "\n")
		title := textnorm.StripMarkdown(truncate(strings.TrimSpace(lines[0]), 100))
		if title == "" {
			continue
		}
		if _, dup := titles[title]; dup {
			continue
		}

		summary := ""
		if len(lines) > 1 {
			summary = strings.Join(lines[1:], " ")
		} else {
			summary = para
			if idx := strings.Index(strings.ToLower(summary), strings.ToLower(title)); idx >= 0 {
				summary = summary[:idx] + summary[idx+len(title):]
			}
		}
		summary = textnorm.StripMarkdown(summary)
		if len(summary) < 20 || strings.EqualFold(summary, title) {
			summary = "Article summary not available."
		}

		titles[title] = struct{}{}
		articles = append(articles, Article{Title: title, Summary: truncate(summary, 300), SourceURL: sourceURL})
	}
	return articles
}

func articlesFromSources(content string, sources []string, limit int) []Article {
	chunks := []string{}
	for _, c := range strings.Split(content, "\n\n") {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	articles := []Article{}
	for i, src := range sources {
		if i >= limit {
			break
		}
		chunk := truncate(content, 200)
		if i < len(chunks) {
			chunk = chunks[i]
		}
		lines := strings.Split(chunk, "\n")
		title := textnorm.StripMarkdown(truncate(strings.TrimSpace(lines[0]), 100))
		if title == "" {
			title = fmt.Sprintf("News %d", i+1)
		}
		summary := chunk
		if len(lines) > 1 {
			summary = strings.Join(lines[1:], " ")
		}
		articles = append(articles, Article{Title: title, Summary: truncate(summary, 300), SourceURL: src})
	}
	return articles
}

func wordOverlap(title, line string) float64 {
	titleWords := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		titleWords[w] = struct{}{}
	}
	lineWords := strings.Fields(strings.ToLower(line))
	if len(lineWords) == 0 {
		return 0
	}
	hits := 0
	for _, w := range lineWords {
		if _, ok := titleWords[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(lineWords))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
