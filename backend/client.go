// ABOUTME: HTTP client for the remote clustering and generation backend
// ABOUTME: Every call is opaque, potentially slow, and allowed to fail alone
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harperreed/skiff/models"
)

// Client talks to the backend analysis service. Callers must treat every
// method as "may fail, must not block the others".
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ClusterResult is one proposed campaign grouping from the backend.
type ClusterResult struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Query       string   `json:"query,omitempty"`
	EmailIDs    []string `json:"email_ids,omitempty"`
}

// AnalyzeResult enriches clusters with style and targeting hints.
type AnalyzeResult struct {
	StylePrompt string          `json:"style_prompt,omitempty"`
	Clusters    []ClusterResult `json:"clusters,omitempty"`
}

// Cluster groups a user's ingested emails into candidate campaigns.
func (c *Client) Cluster(ctx context.Context, userID string) ([]ClusterResult, error) {
	var out struct {
		Clusters []ClusterResult `json:"clusters"`
	}
	err := c.post(ctx, "/v1/cluster", map[string]any{"user_id": userID}, &out)
	if err != nil {
		return nil, err
	}
	return out.Clusters, nil
}

// Analyze enriches the user's clusters with writing-style analysis.
func (c *Client) Analyze(ctx context.Context, userID string) (*AnalyzeResult, error) {
	var out AnalyzeResult
	if err := c.post(ctx, "/v1/analyze", map[string]any{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateLeads asks the backend for leads matching a campaign's query.
func (c *Client) GenerateLeads(ctx context.Context, userID, campaignID, query string, limit int) ([]models.Lead, error) {
	var out struct {
		Leads []models.Lead `json:"leads"`
	}
	err := c.post(ctx, "/v1/generate/leads", map[string]any{
		"user_id":     userID,
		"campaign_id": campaignID,
		"query":       query,
		"limit":       limit,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Leads, nil
}

// GenerateTemplate asks the backend for a campaign email template written in
// the user's own style, grounded on sample sent emails.
func (c *Client) GenerateTemplate(ctx context.Context, userID, campaignID, cta, stylePrompt string, sampleEmails []string) (*models.Template, error) {
	var out models.Template
	err := c.post(ctx, "/v1/generate/template", map[string]any{
		"user_id":       userID,
		"campaign_id":   campaignID,
		"cta":           cta,
		"style_prompt":  stylePrompt,
		"sample_emails": sampleEmails,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateCadence asks the backend for a follow-up cadence.
func (c *Client) GenerateCadence(ctx context.Context, userID, campaignID, stylePrompt string, sampleEmails []string, timing []int) (*models.Cadence, error) {
	var out models.Cadence
	err := c.post(ctx, "/v1/generate/cadence", map[string]any{
		"user_id":       userID,
		"campaign_id":   campaignID,
		"style_prompt":  stylePrompt,
		"sample_emails": sampleEmails,
		"timing":        timing,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", err)
		}
	}

	return nil
}
