package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPScorer implements Scorer against a BGE-reranker-v2-m3 style HTTP
// service exposing a /rerank endpoint.
type HTTPScorer struct {
	BaseURL string
	Client  *http.Client
}

var _ Scorer = &HTTPScorer{}

func NewHTTPScorer(baseURL string) *HTTPScorer {
	if baseURL == "" {
		baseURL = "http://localhost:8002"
	}
	return &HTTPScorer{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{Query: query, Texts: documents}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rerank", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error: %s", string(bodyBytes))
	}

	var results []rerankResult
	if err := json.Unmarshal(bodyBytes, &results); err != nil {
		return nil, err
	}

	// The service may return results ordered by score; map back to the
	// input order via the index field.
	scores := make([]float64, len(documents))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
