package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultModelEndpoint = "https://api-inference.huggingface.co/models/nlptown/bert-base-multilingual-uncased-sentiment"
	classifierMaxRetries = 3
)

// ClassifierResult is the raw categorical output of the pretrained model.
type ClassifierResult struct {
	Label      string
	Confidence float64
}

// Classifier is the pretrained multi-class sentiment model. Implementations
// must be safe for concurrent inference; the ensemble treats the handle as
// shared, immutable state.
type Classifier interface {
	Classify(ctx context.Context, text string) (ClassifierResult, error)
}

// InferenceClassifier calls a hosted text-classification endpoint that
// speaks the standard inference protocol: POST {"inputs": text}, response
// [[{"label": ..., "score": ...}, ...]] sorted or not by score.
type InferenceClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type InferenceConfig struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewInferenceClassifier validates configuration once and returns a handle
// that is immutable afterwards. Load failure is an explicit error here, not
// a deferred surprise at first inference.
func NewInferenceClassifier(cfg InferenceConfig) (*InferenceClassifier, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("SENTIMENT_API_KEY not configured")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultModelEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &InferenceClassifier{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, client: cfg.HTTPClient}, nil
}

func NewInferenceClassifierFromEnv() (*InferenceClassifier, error) {
	return NewInferenceClassifier(InferenceConfig{
		Endpoint: strings.TrimSpace(os.Getenv("SENTIMENT_MODEL_ENDPOINT")),
		APIKey:   os.Getenv("SENTIMENT_API_KEY"),
	})
}

type inferenceScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *InferenceClassifier) Classify(ctx context.Context, text string) (ClassifierResult, error) {
	payload, _ := json.Marshal(map[string]string{"inputs": text})

	var lastErr error
	for attempt := 1; attempt <= classifierMaxRetries; attempt++ {
		res, retryable, err := c.classifyOnce(ctx, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable || attempt == classifierMaxRetries {
			break
		}
		if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
			return ClassifierResult{}, err
		}
	}
	return ClassifierResult{}, lastErr
}

func (c *InferenceClassifier) classifyOnce(ctx context.Context, payload []byte) (ClassifierResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ClassifierResult{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return ClassifierResult{}, true, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	// 503 is the hosted model cold-starting; worth waiting out.
	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return ClassifierResult{}, true, fmt.Errorf("classifier status code: %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return ClassifierResult{}, false, fmt.Errorf("classifier status code: %d body=%s", resp.StatusCode, string(b))
	}

	var nested [][]inferenceScore
	if err := json.Unmarshal(b, &nested); err != nil {
		var flat []inferenceScore
		if err2 := json.Unmarshal(b, &flat); err2 != nil {
			return ClassifierResult{}, false, fmt.Errorf("classifier response unparsable: %w", err)
		}
		nested = [][]inferenceScore{flat}
	}
	if len(nested) == 0 || len(nested[0]) == 0 {
		return ClassifierResult{}, false, errors.New("classifier returned no scores")
	}
	best := nested[0][0]
	for _, s := range nested[0][1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return ClassifierResult{Label: best.Label, Confidence: best.Score}, false, nil
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
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

// labelScores converts a categorical label to the fixed [0,1] polarity used
// by the consensus. Five-star ratings map linearly, binary labels to
// 0.75/0.25/0.5. Unknown labels land on neutral 0.5.
var labelScores = map[string]float64{
	"1 star": 0.0, "2 stars": 0.25, "3 stars": 0.5, "4 stars": 0.75, "5 stars": 1.0,
	"1": 0.0, "2": 0.25, "3": 0.5, "4": 0.75, "5": 1.0,
	"POSITIVE": 0.75, "NEGATIVE": 0.25, "NEUTRAL": 0.5,
}

func labelToScore(label string) float64 {
	if s, ok := labelScores[label]; ok {
		return s
	}
	// Some endpoints emit LABEL_0..LABEL_4 index labels.
	if idx, ok := strings.CutPrefix(label, "LABEL_"); ok {
		if n, err := strconv.Atoi(idx); err == nil && n >= 0 && n <= 4 {
			return float64(n) * 0.25
		}
	}
	return 0.5
}
