package companyintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultProviderBaseURL = "https://api.perplexity.ai"
	DefaultProviderModel   = "sonar"

	providerMaxRetries = 3
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client

	// Fallback, when set, is tried for profile narratives after the
	// primary provider fails.
	Fallback NarrativeProvider
}

// Client is the search-provider client. Profile acquisition runs an
// ordered list of strategies, each returning a typed result, until one
// succeeds.
type Client struct {
	cfg        Config
	strategies []profileStrategy
}

func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("SEARCH_PROVIDER_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultProviderModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Client{cfg: cfg}
	c.strategies = []profileStrategy{primaryStrategy{c}}
	if cfg.Fallback != nil {
		c.strategies = append(c.strategies, fallbackStrategy{cfg.Fallback})
	}
	return c, nil
}

func NewClientFromEnv() (*Client, error) {
	cfg := Config{
		APIKey:  os.Getenv("SEARCH_PROVIDER_API_KEY"),
		BaseURL: strings.TrimSpace(os.Getenv("SEARCH_PROVIDER_BASE_URL")),
		Model:   strings.TrimSpace(os.Getenv("SEARCH_PROVIDER_MODEL")),
	}
	if strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != "" {
		fb, err := NewAnthropicNarrator()
		if err != nil {
			return nil, err
		}
		cfg.Fallback = fb
	}
	return NewClient(cfg)
}

// FetchProfile acquires the company background narrative. Strategies are
// tried in order; the last error is returned only when all fail.
func (c *Client) FetchProfile(ctx context.Context, entityName string) (Profile, error) {
	var lastErr error
	for _, s := range c.strategies {
		p, err := s.fetch(ctx, entityName)
		if err == nil {
			p.Provider = s.name()
			return p, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("companyintel profile strategy failed strategy=%s entity=%q err=%v", s.name(), entityName, err)
	}
	return Profile{}, fmt.Errorf("profile acquisition failed: %w", lastErr)
}

// FetchNews asks the provider for the latest coverage and parses the
// answer into articles.
func (c *Client) FetchNews(ctx context.Context, entityName string, limit int) (NewsBundle, error) {
	if limit <= 0 {
		limit = 10
	}
	prompt := fmt.Sprintf(
		"Find the %d most recent news articles about %q.\n"+
			"Give the title, a short summary, and the source URL for each article.\n"+
			"Focus on news relevant to credit assessment and company reputation.\n"+
			"Format: Title | Summary | URL",
		limit, entityName)

	content, raw, err := c.complete(ctx, prompt, 4000)
	if err != nil {
		return NewsBundle{}, err
	}
	sources := harvestSources(raw, content)
	return NewsBundle{
		EntityName: entityName,
		Articles:   parseArticles(content, sources, limit),
		Sources:    sources,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []json.RawMessage `json:"citations"`
	SearchResults []json.RawMessage `json:"search_results"`
}

// complete runs one chat completion with retry on transient failures.
func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, chatResponse, error) {
	payload, _ := json.Marshal(map[string]any{
		"model":       c.cfg.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  maxTokens,
		"temperature": 0.2,
	})

	var lastErr error
	for attempt := 1; attempt <= providerMaxRetries; attempt++ {
		parsed, retryAfter, retryable, err := c.completeOnce(ctx, payload)
		if err == nil {
			if len(parsed.Choices) == 0 {
				return "", chatResponse{}, errors.New("provider returned no choices")
			}
			return parsed.Choices[0].Message.Content, parsed, nil
		}
		lastErr = err
		if !retryable || attempt == providerMaxRetries {
			break
		}
		sleep := retryAfter
		if sleep <= 0 {
			sleep = time.Duration(attempt*attempt) * time.Second
		}
		if err := sleepCtx(ctx, sleep); err != nil {
			return "", chatResponse{}, err
		}
	}
	return "", chatResponse{}, lastErr
}

func (c *Client) completeOnce(ctx context.Context, payload []byte) (chatResponse, time.Duration, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return chatResponse{}, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return chatResponse{}, 0, true, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
		return chatResponse{}, retryAfter, true, fmt.Errorf("provider status code: %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return chatResponse{}, retryAfter, false, fmt.Errorf("provider status code: %d body=%s", res.StatusCode, string(b))
	}

	var parsed chatResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return chatResponse{}, retryAfter, false, err
	}
	return parsed, retryAfter, false, nil
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
