package legal

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const DefaultCourtBaseURL = "https://putusan3.mahkamahagung.go.id"

// Fetcher loads the court search-results page in headless Chromium and
// returns the per-case fragments. The caller owns the deadline: the search
// site renders results client-side, so a plain GET is not enough.
type Fetcher struct {
	baseURL    string
	chromePath string
}

func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultCourtBaseURL
	}
	return &Fetcher{baseURL: baseURL, chromePath: detectChromePath()}
}

// BaseURL is the court site root, used to absolutize case-detail links.
func (f *Fetcher) BaseURL() string { return f.baseURL }

// FetchFragments runs the search for one entity and splits the rendered
// page into case fragments. Respects ctx cancellation and deadline.
func (f *Fetcher) FetchFragments(ctx context.Context, entityName string) ([]string, error) {
	q := url.Values{}
	q.Set("jenis_doc", "putusan")
	q.Set("q", entityName)
	q.Set("p", "1")
	searchURL := strings.TrimRight(f.baseURL, "/") + "/search.html?" + q.Encode()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if f.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	// The registry serves Indonesian-language markup; ask for it explicitly
	// so the keyword-based case classifier sees the expected text.
	var pageHTML string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "id-ID,id;q=0.9,en;q=0.5"}),
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("div.entry-c", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("court search fetch: %w", err)
	}

	frags, err := SplitFragments(pageHTML)
	if err != nil {
		return nil, fmt.Errorf("court search parse: %w", err)
	}
	log.Printf("legal fetched fragments entity=%q count=%d", entityName, len(frags))
	return frags, nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
