package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sharptier/cms/internal/model"
)

const defaultClientTimeout = 10 * time.Second

// ContentClient reads documents from the content REST API
type ContentClient struct {
	client  *http.Client
	apiBase string
	apiKey  string
}

// NewContentClient creates a client for the API rooted at apiBase
// (e.g. "http://localhost:3001/api"). apiKey is sent as a bearer token when set.
func NewContentClient(apiBase, apiKey string, timeout time.Duration) *ContentClient {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &ContentClient{
		client:  &http.Client{Timeout: timeout},
		apiBase: strings.TrimRight(apiBase, "/"),
		apiKey:  apiKey,
	}
}

// FetchTemplate retrieves a template without expanding nested relationships.
// There is a single attempt; callers decide what a failure means.
func (c *ContentClient) FetchTemplate(ctx context.Context, id int64) (*model.Template, error) {
	url := fmt.Sprintf("%s/templates/%d?depth=0", c.apiBase, id)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template %d: %w", id, err)
	}

	var tpl model.Template
	if err := json.Unmarshal(body, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %d: %w", id, err)
	}

	return &tpl, nil
}

func (c *ContentClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return body, nil
}
