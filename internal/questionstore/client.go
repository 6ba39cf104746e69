package questionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exam-quiz-service/internal/domain"
)

const (
	batchPath    = "/questions:batch"
	generatePath = "/questions:generate"

	defaultTimeout = 5 * time.Second
	maxErrorBody   = 512
)

// Client talks to the question store over HTTP. Every failure it returns
// wraps domain.ErrDependencyUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. A nil httpClient gets a default one
// with a short timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// rawQuestion mirrors the question store payload.
type rawQuestion struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Options       []string `json:"options"`
	Type          string   `json:"type"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        *int     `json:"points"`
}

type batchRequest struct {
	IDs []int64 `json:"ids"`
}

type generateRequest struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Resolve fetches all ids in one batch. Unknown ids are absent from the result.
func (c *Client) Resolve(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	out := make(map[int64]domain.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var raw []rawQuestion
	if err := c.post(ctx, batchPath, batchRequest{IDs: ids}, &raw); err != nil {
		return nil, err
	}
	for _, r := range raw {
		out[r.ID] = r.toDomain()
	}
	return out, nil
}

// Generate asks the store for up to count question ids of a category.
func (c *Client) Generate(ctx context.Context, category string, count int) ([]int64, error) {
	var ids []int64
	if err := c.post(ctx, generatePath, generateRequest{Category: category, Count: count}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path string, body, into any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrDependencyUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned status %d: %s",
			domain.ErrDependencyUnavailable, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrDependencyUnavailable, path, err)
	}
	return nil
}

func (r rawQuestion) toDomain() domain.Question {
	q := domain.Question{
		ID:            r.ID,
		Title:         r.Title,
		Type:          r.Type,
		CorrectAnswer: r.CorrectAnswer,
	}
	copy(q.Options[:], r.Options)
	if r.Points != nil {
		q.Points = *r.Points
	}
	return q
}
