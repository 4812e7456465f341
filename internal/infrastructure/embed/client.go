package embed

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

// Client produces embeddings through an Ollama-compatible /api/embed
// endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"model": c.model,
		"input": texts,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed body: %w", err)
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", body, &response)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "embed.batch", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "embed request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.WrapError(domain.ErrTemporary, "embed", fmt.Errorf("status %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("embed status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode embed response: %w", err)
	}
	return nil
}

func classifyEmbedError(err error) resilience.Classification {
	return resilience.Classification{
		Retryable:     domain.IsKind(err, domain.ErrTemporary),
		RecordFailure: domain.IsKind(err, domain.ErrTemporary),
	}
}
