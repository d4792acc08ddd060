// Package scoring talks to the external ATS scoring oracle and schedules
// score refreshes for the active job description. The scoring heuristics
// themselves live behind the oracle's HTTP contract.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Oracle produces an ATS match score for a job description and resume text.
type Oracle interface {
	Score(ctx context.Context, jobText, resumeText string) (Result, error)
}

// Result is the oracle's verdict.
type Result struct {
	Score    float64  `json:"score"`
	Matched  []string `json:"matched,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	ScoredAt string   `json:"scoredAt,omitempty"`
}

// Client is the HTTP implementation of Oracle.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given oracle base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTP creates a client with a caller-provided http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type scoreRequest struct {
	JobText    string `json:"job_text"`
	ResumeText string `json:"resume_text"`
}

// Score submits both texts and returns the oracle's result.
func (c *Client) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	body, err := json.Marshal(scoreRequest{JobText: jobText, ResumeText: resumeText})
	if err != nil {
		return Result{}, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("score request: unexpected status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode score response: %w", err)
	}
	return result, nil
}
