package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/halden-labs/answercore/internal/core/domain"
	"github.com/halden-labs/answercore/internal/infrastructure/resilience"
)

// Client talks to the passage index service over HTTP. The index keeps one
// logical collection per tenant; tenancy is part of the request body, never
// derived server-side.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type searchResponse struct {
	Hits []struct {
		SourceID string  `json:"source_id"`
		Text     string  `json:"text"`
		Score    float64 `json:"score"`
	} `json:"hits"`
}

func (c *Client) SearchLexical(ctx context.Context, tenant, query string, k int) ([]domain.IndexHit, error) {
	reqBody := map[string]any{
		"tenant": tenant,
		"query":  query,
		"limit":  k,
	}
	return c.search(ctx, "/v1/search/lexical", "index.search_lexical", reqBody)
}

func (c *Client) SearchSemantic(ctx context.Context, tenant string, vector []float32, k int) ([]domain.IndexHit, error) {
	reqBody := map[string]any{
		"tenant": tenant,
		"vector": vector,
		"limit":  k,
	}
	return c.search(ctx, "/v1/search/semantic", "index.search_semantic", reqBody)
}

func (c *Client) search(ctx context.Context, path, operation string, reqBody map[string]any) ([]domain.IndexHit, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var response searchResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, path, body, &response)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyIndexError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.IndexHit, 0, len(response.Hits))
	for _, hit := range response.Hits {
		out = append(out, domain.IndexHit{
			SourceID: hit.SourceID,
			Text:     hit.Text,
			Score:    hit.Score,
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "index search request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.WrapError(domain.ErrTemporary, "index search", fmt.Errorf("status %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("index search status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func classifyIndexError(err error) resilience.Classification {
	return resilience.Classification{
		Retryable:     domain.IsKind(err, domain.ErrTemporary),
		RecordFailure: domain.IsKind(err, domain.ErrTemporary),
	}
}
