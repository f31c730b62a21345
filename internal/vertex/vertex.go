// Package vertex talks to the Vertex AI extensions registry over its REST
// surface.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Extension is a registered Vertex AI extension.
type Extension struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	CreateTime  string `json:"createTime"`
	UpdateTime  string `json:"updateTime"`
}

// Client lists extensions registered in a project location.
type Client struct {
	// BaseURL overrides the regional aiplatform endpoint, mainly for tests.
	BaseURL     string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
}

// NewClient builds a client authenticated through Application Default
// Credentials.
func NewClient(ctx context.Context) (*Client, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("vertex: load default credentials: %w", err)
	}
	return &Client{TokenSource: ts}, nil
}

// ListExtensions returns the extensions registered in the given project and
// location.
func (c *Client) ListExtensions(ctx context.Context, projectID, location string) ([]Extension, error) {
	base := c.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}
	endpoint := fmt.Sprintf("%s/v1beta1/projects/%s/locations/%s/extensions", base, projectID, location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("vertex: build request: %w", err)
	}
	if c.TokenSource != nil {
		token, err := c.TokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("vertex: fetch token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertex: list extensions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vertex: list extensions: status %d", resp.StatusCode)
	}

	var payload struct {
		Extensions []Extension `json:"extensions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("vertex: decode response: %w", err)
	}
	return payload.Extensions, nil
}
