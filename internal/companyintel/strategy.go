package companyintel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NarrativeProvider produces a company background narrative when the
// primary search provider is unavailable. It carries no citations.
type NarrativeProvider interface {
	Narrate(ctx context.Context, entityName string) (string, error)
	Name() string
}

type profileStrategy interface {
	name() string
	fetch(ctx context.Context, entityName string) (Profile, error)
}

// primaryStrategy queries the online search provider and harvests
// citation URLs from the response.
type primaryStrategy struct{ c *Client }

func (primaryStrategy) name() string { return "search-provider" }

func (s primaryStrategy) fetch(ctx context.Context, entityName string) (Profile, error) {
	prompt := fmt.Sprintf(
		"Find information about %q.\n"+
			"Include: background, news, reputation, operations, controversies.\n"+
			"Focus on credit-assessment relevance.",
		entityName)
	content, raw, err := s.c.complete(ctx, prompt, 2000)
	if err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Profile{}, errors.New("provider returned empty narrative")
	}
	return Profile{
		EntityName: entityName,
		Text:       content,
		Sources:    harvestSources(raw, content),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// fallbackStrategy wraps a NarrativeProvider as the last resort.
type fallbackStrategy struct{ p NarrativeProvider }

func (s fallbackStrategy) name() string { return s.p.Name() }

func (s fallbackStrategy) fetch(ctx context.Context, entityName string) (Profile, error) {
	text, err := s.p.Narrate(ctx, entityName)
	if err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Profile{}, errors.New("fallback returned empty narrative")
	}
	return Profile{
		EntityName: entityName,
		Text:       text,
		Sources:    extractURLs(text),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

const narratorSystemPrompt = "You are a credit-risk research assistant. Summarize what is publicly known " +
	"about the requested company: background, operations, reputation, and controversies. " +
	"State clearly when information is uncertain. Plain text only."

type anthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicNarrator is the fallback narrative provider backed by the
// Anthropic messages API.
type AnthropicNarrator struct {
	messages anthropicMessager
	model    string
}

func NewAnthropicNarrator() (*AnthropicNarrator, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("FALLBACK_NARRATIVE_MODEL"))
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicNarrator{messages: &client.Messages, model: model}, nil
}

func (a *AnthropicNarrator) Name() string { return "anthropic-fallback" }

func (a *AnthropicNarrator) Narrate(ctx context.Context, entityName string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   2000,
		System:      []anthropic.TextBlockParam{{Text: narratorSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("Company: " + entityName))},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
