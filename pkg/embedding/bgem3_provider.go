package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BGEM3Provider implements Provider against a BGE-M3 embedding service.
// BGE-M3 is the only backend that returns both dense (1024D) and sparse
// lexical weights from a single call, which is what hybrid retrieval needs.
type BGEM3Provider struct {
	BaseURL string
	Client  *http.Client
}

var _ Provider = &BGEM3Provider{}

func NewBGEM3Provider(baseURL string) *BGEM3Provider {
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}
	return &BGEM3Provider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type bgem3Request struct {
	Text         string `json:"text"`
	ReturnDense  bool   `json:"return_dense"`
	ReturnSparse bool   `json:"return_sparse"`
}

type bgem3Response struct {
	Dense  []float32          `json:"dense"`
	Sparse map[string]float32 `json:"sparse"`
}

func (p *BGEM3Provider) Generate(ctx context.Context, text string, kind Kind) (*Pair, error) {
	reqBody := bgem3Request{
		Text:         text,
		ReturnDense:  kind == KindDense || kind == KindBoth,
		ReturnSparse: kind == KindSparse || kind == KindBoth,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/embed", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bge-m3 request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bge-m3 embedding error: %s", string(bodyBytes))
	}

	var embResp bgem3Response
	if err := json.Unmarshal(bodyBytes, &embResp); err != nil {
		return nil, err
	}

	pair := &Pair{}
	if len(embResp.Dense) > 0 {
		pair.Dense = normalizeVector(embResp.Dense)
	}
	if len(embResp.Sparse) > 0 {
		// The service keys sparse weights by token id as a string.
		sparse := make(map[uint32]float32, len(embResp.Sparse))
		for token, weight := range embResp.Sparse {
			var id uint32
			if _, err := fmt.Sscanf(token, "%d", &id); err == nil {
				sparse[id] = weight
			}
		}
		pair.Sparse = sparse
	}

	return pair, nil
}
