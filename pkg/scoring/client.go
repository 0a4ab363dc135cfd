// Package scoring is a thin client for the importance-scoring service.
// The scoring model itself lives behind an HTTP boundary; this package
// only ships content over and returns the numeric score.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

// Client scores a processing unit's extracted content.
type Client interface {
	Score(ctx context.Context, req ScoreRequest) (float64, error)
}

// ScoreRequest carries the content the model scores.
type ScoreRequest struct {
	UnitID    string   `json:"unit_id"`
	Title     string   `json:"title,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Category  string   `json:"category,omitempty"`
	FactCount int      `json:"fact_count"`
	Entities  []string `json:"entities,omitempty"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a scoring-service client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Score(ctx context.Context, req ScoreRequest) (float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "scoring: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, resilience.NewTransientError(eris.Wrap(err, "scoring: request"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("scoring: status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(err, resp.StatusCode)
		}
		return 0, err
	}

	var out scoreResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, eris.Wrap(err, "scoring: decode response")
	}
	return out.Score, nil
}
