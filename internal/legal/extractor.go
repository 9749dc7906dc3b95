package legal

import (
	"log"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	// MaxCases caps extraction at the most relevant entries, upstream order.
	MaxCases = 10

	maxSummaryChars     = 500
	fallbackChars       = 300
	placeholderUnknown  = "unknown"
	placeholderNoResume = "no summary available"
)

var (
	decisionDateRe = regexp.MustCompile(`Putus\s*:\s*(\d{2}-\d{2}-\d{4})`)
	anyDateRe      = regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)
	titleMetaRe    = regexp.MustCompile(`(?i)\s*\d+\s*—\s*\d+\s*—\s*Berkekuatan.*$`)
	trailingDashRe = regexp.MustCompile(`\s*—\s*$`)
	spacesRe       = regexp.MustCompile(`\s+`)
)

// SplitFragments locates the per-case result entries in a search-results
// page and renders each back out as a standalone fragment. The selector
// fallbacks mirror the markup variants the court site has shipped.
func SplitFragments(pageHTML string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}
	nodes := findAll(root, func(n *html.Node) bool { return n.Data == "div" && hasClass(n, "entry-c") })
	if len(nodes) == 0 {
		nodes = findAll(root, func(n *html.Node) bool {
			return n.Data == "div" && (hasClass(n, "putusan-item") || hasClass(n, "case-item"))
		})
	}
	if len(nodes) == 0 {
		nodes = findAll(root, func(n *html.Node) bool {
			return n.Data == "div" && strings.Contains(strings.ToLower(attr(n, "class")), "entry")
		})
	}
	frags := make([]string, 0, len(nodes))
	for _, n := range nodes {
		var sb strings.Builder
		if err := html.Render(&sb, n); err != nil {
			continue
		}
		frags = append(frags, sb.String())
	}
	return frags, nil
}

// Extract parses up to MaxCases case records out of the given fragments,
// most-relevant-first as ordered upstream. A fragment that cannot be parsed
// is skipped and logged; it never aborts the batch.
func Extract(fragments []string, baseURL string) []Case {
	cases := make([]Case, 0, MaxCases)
	for _, frag := range fragments {
		if len(cases) >= MaxCases {
			break
		}
		c, err := parseFragment(frag, baseURL)
		if err != nil {
			log.Printf("legal skipping fragment err=%v", err)
			continue
		}
		cases = append(cases, c)
	}
	return cases
}

func parseFragment(frag, baseURL string) (c Case, err error) {
	root, err := html.Parse(strings.NewReader(frag))
	if err != nil {
		return Case{}, err
	}

	c.CaseNumber, c.SourceURL = extractCaseNumber(root, baseURL)
	c.CaseDate = extractCaseDate(root)
	c.CaseTitle = extractCaseTitle(root)
	if c.CaseTitle == placeholderUnknown && c.CaseNumber != placeholderUnknown {
		c.CaseTitle = c.CaseNumber
	}
	c.CaseType = ClassifyCaseType(c.CaseTitle)
	c.Severity = SeverityFor(c.CaseType)
	c.VerdictSummary = extractVerdictSummary(root, c.CaseNumber, c.CaseTitle)
	return c, nil
}

// extractCaseNumber prefers the link whose target path is a case-detail
// page; failing that, any decision link whose visible text carries both the
// decision and number markers.
func extractCaseNumber(root *html.Node, baseURL string) (string, string) {
	for _, strong := range findAll(root, func(n *html.Node) bool { return n.Data == "strong" }) {
		for _, a := range findAll(strong, func(n *html.Node) bool { return n.Data == "a" }) {
			href := attr(a, "href")
			if strings.Contains(strings.ToLower(href), "direktori/putusan") {
				return collapse(nodeText(a)), absoluteURL(href, baseURL)
			}
		}
	}
	for _, a := range findAll(root, func(n *html.Node) bool { return n.Data == "a" }) {
		href := attr(a, "href")
		if !strings.Contains(strings.ToLower(href), "putusan") {
			continue
		}
		text := collapse(nodeText(a))
		if strings.Contains(text, "Putusan") && strings.Contains(text, "Nomor") {
			return text, absoluteURL(href, baseURL)
		}
	}
	return placeholderUnknown, ""
}

func extractCaseDate(root *html.Node) string {
	for _, div := range findAll(root, func(n *html.Node) bool { return n.Data == "div" && hasClass(n, "small") }) {
		text := collapse(nodeText(div))
		if !strings.Contains(text, "Putus") && !strings.Contains(text, "Register") {
			continue
		}
		if m := decisionDateRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
		if m := anyDateRe.FindString(text); m != "" {
			return m
		}
	}
	if m := anyDateRe.FindString(nodeText(root)); m != "" {
		return m
	}
	return placeholderUnknown
}

// extractCaseTitle takes the first block carrying the date-label marker,
// then trims trailing view/download counters and finality-status tags.
func extractCaseTitle(root *html.Node) string {
	for _, div := range findAll(root, func(n *html.Node) bool { return n.Data == "div" }) {
		// Skip wrapper divs; the title block never nests further divs.
		if len(findAll(div, func(n *html.Node) bool { return n.Data == "div" })) > 1 {
			continue
		}
		text := collapse(nodeText(div))
		if !strings.Contains(text, "Tanggal") || len(text) <= 20 {
			continue
		}
		text = titleMetaRe.ReplaceAllString(text, "")
		text = trailingDashRe.ReplaceAllString(text, "")
		return collapse(text)
	}
	return placeholderUnknown
}

func extractVerdictSummary(root *html.Node, caseNumber, caseTitle string) string {
	parts := []string{}
	for _, bq := range findAll(root, func(n *html.Node) bool { return n.Data == "blockquote" }) {
		if len(parts) >= 3 {
			break
		}
		text := collapse(nodeText(bq))
		if len(text) > 20 {
			parts = append(parts, text)
		}
	}
	if len(parts) > 0 {
		summary := strings.Join(parts, " ")
		if r := []rune(summary); len(r) > maxSummaryChars {
			summary = string(r[:maxSummaryChars]) + "..."
		}
		return summary
	}

	all := collapse(nodeText(root))
	if caseNumber != placeholderUnknown {
		all = strings.Replace(all, caseNumber, "", 1)
	}
	if caseTitle != placeholderUnknown {
		all = strings.Replace(all, caseTitle, "", 1)
	}
	all = collapse(all)
	if len(all) > 100 {
		if r := []rune(all); len(r) > fallbackChars {
			all = string(r[:fallbackChars])
		}
		return strings.TrimSpace(all)
	}
	return placeholderNoResume
}

// Keyword sets for case-type classification. Checked in a pinned priority
// order; reordering changes classification outcomes.
var (
	criminalWords       = []string{"pidana", "criminal", "penal", "kriminal", "/pid"}
	commercialWords     = []string{"niaga", "commercial", "dagang", "perdagangan", "/pdt.sus"}
	administrativeWords = []string{"tata usaha negara", "administrative", "administrasi", "tata usaha", "/tun"}
	taxWords            = []string{"pajak", "tax", "/pjk"}
)

// ClassifyCaseType scans the title for domain keywords. Priority:
// criminal-special, criminal, commercial, administrative, tax, then the
// civil default.
func ClassifyCaseType(title string) CaseType {
	if title == "" {
		return TypeCivil
	}
	lower := strings.ToLower(title)
	switch {
	case containsAny(lower, criminalWords):
		if strings.Contains(lower, "khusus") || strings.Contains(lower, "/pid.sus") {
			return TypeCriminalSpecial
		}
		return TypeCriminal
	case containsAny(lower, commercialWords):
		return TypeCommercial
	case containsAny(lower, administrativeWords):
		return TypeAdministrative
	case containsAny(lower, taxWords):
		return TypeTax
	default:
		return TypeCivil
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

func absoluteURL(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}
