// Package companyintel acquires the two narrative evidence sources for an
// entity: a free-text company profile and recent news coverage. It talks to
// an answer-engine search provider and parses the loosely structured text
// it returns into typed records.
package companyintel

import "time"

// Profile is the free-text company background plus its citation URLs.
type Profile struct {
	EntityName string    `json:"entity_name"`
	Text       string    `json:"text"`
	Sources    []string  `json:"sources"`
	FetchedAt  time.Time `json:"fetched_at"`
	Provider   string    `json:"provider"`
}

// Article is one news item as recovered from the provider's answer.
type Article struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	SourceURL string `json:"source_url"`
	Date      string `json:"date,omitempty"`
}

// NewsBundle is the news acquisition result before relevance filtering.
type NewsBundle struct {
	EntityName string    `json:"entity_name"`
	Articles   []Article `json:"articles"`
	Sources    []string  `json:"sources"`
	FetchedAt  time.Time `json:"fetched_at"`
}
