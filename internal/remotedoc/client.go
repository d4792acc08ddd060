// Package remotedoc is the HTTP client for the remote document service. The
// service is consumed, not owned: only the contract the sync core relies on is
// modeled here.
package remotedoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"resume-sync/internal/document"
)

// ErrNotFound indicates the remote service has no such resume or version.
var ErrNotFound = errors.New("remotedoc: not found")

// Client talks to the remote document service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithHTTP creates a client with a caller-provided http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListResumes returns the resumes owned by a user.
func (c *Client) ListResumes(ctx context.Context, user string) ([]ResumeSummary, error) {
	endpoint := fmt.Sprintf("%s/resumes?user=%s", c.baseURL, url.QueryEscape(user))
	var out []ResumeSummary
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVersions returns the version list for a resume, newest first.
func (c *Client) ListVersions(ctx context.Context, resumeID string) ([]VersionSummary, error) {
	endpoint := fmt.Sprintf("%s/resume/%s/versions", c.baseURL, url.PathEscape(resumeID))
	var out []VersionSummary
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVersion fetches one stored version and converts it to the canonical model.
func (c *Client) GetVersion(ctx context.Context, versionID string) (document.Document, error) {
	endpoint := fmt.Sprintf("%s/resume/version/%s", c.baseURL, url.PathEscape(versionID))
	var payload VersionPayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return document.Document{}, err
	}
	return payload.ResumeData.ToDocument(), nil
}

// GetLatest resolves the newest version of a resume and returns it together
// with its version id.
func (c *Client) GetLatest(ctx context.Context, resumeID string) (document.Document, string, error) {
	versions, err := c.ListVersions(ctx, resumeID)
	if err != nil {
		return document.Document{}, "", err
	}
	if len(versions) == 0 {
		return document.Document{}, "", ErrNotFound
	}
	doc, err := c.GetVersion(ctx, versions[0].ID)
	if err != nil {
		return document.Document{}, "", err
	}
	return doc, versions[0].ID, nil
}

// Save pushes a document and returns the server-assigned identifiers.
func (c *Client) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SaveResult{}, fmt.Errorf("marshal save request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resume/save", bytes.NewReader(body))
	if err != nil {
		return SaveResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SaveResult{}, fmt.Errorf("save resume: unexpected status %d", resp.StatusCode)
	}

	var result SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SaveResult{}, fmt.Errorf("decode save response: %w", err)
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
