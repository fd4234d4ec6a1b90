// Package ml provides an HTTP client for an external emotion-classifier and
// sentiment-scoring service. The engine treats it as strictly optional: any
// transport error, timeout or bad response means "no prediction" and the
// caller falls back to its lexicon path.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"trading-psychology-engine/internal/nlp"
)

// Client talks to the inference service. A weighted semaphore bounds the
// number of in-flight requests so a slow model cannot pile up goroutines
// behind it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sem        *semaphore.Weighted
	timeout    time.Duration
	log        zerolog.Logger
}

// NewClient builds a client for the inference service at baseURL.
// maxInFlight limits concurrent requests; timeout applies per call.
func NewClient(baseURL string, maxInFlight int64, timeout time.Duration, log zerolog.Logger) *Client {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		sem:        semaphore.NewWeighted(maxInFlight),
		timeout:    timeout,
		log:        log.With().Str("component", "ml").Logger(),
	}
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Emotions []struct {
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"emotions"`
}

// Predict asks the service for emotion labels. Implements nlp.Classifier.
func (c *Client) Predict(ctx context.Context, text string) ([]nlp.Prediction, error) {
	var resp predictResponse
	if err := c.post(ctx, "/predict/emotions", predictRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	preds := make([]nlp.Prediction, 0, len(resp.Emotions))
	for _, e := range resp.Emotions {
		preds = append(preds, nlp.Prediction{
			Type:       nlp.EmotionType(e.Type),
			Confidence: e.Confidence,
		})
	}
	return preds, nil
}

type sentimentRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type sentimentResponse struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Score asks the service for a sentiment score. Implements nlp.SentimentModel.
func (c *Client) Score(ctx context.Context, text, language string) (float64, string, error) {
	var resp sentimentResponse
	if err := c.post(ctx, "/predict/sentiment", sentimentRequest{Text: text, Language: language}, &resp); err != nil {
		return 0, "", err
	}
	switch resp.Label {
	case nlp.SentimentPositive, nlp.SentimentNegative, nlp.SentimentNeutral:
	default:
		return 0, "", fmt.Errorf("unknown sentiment label %q", resp.Label)
	}
	return resp.Score, resp.Label, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("inference pool saturated: %w", err)
	}
	defer c.sem.Release(1)

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
