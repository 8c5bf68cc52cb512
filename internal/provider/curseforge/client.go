package curseforge

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/packwatch/internal/provider"
)

// Client is a CurseForge API client.
type Client struct {
	// http is rooted at the API base URL and carries the API key.
	http *resty.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL, apiKey string, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithHeader("x-api-key", apiKey)}, opts...)

	return &Client{
		http: provider.NewHTTPClient(baseURL, opts...),
	}
}

// GetProjects fetches every requested project in one call. Projects unknown
// to CurseForge are absent from the result.
func (c *Client) GetProjects(ctx context.Context, ids []int) (map[int]*Project, error) {
	if len(ids) == 0 {
		return map[int]*Project{}, nil
	}

	var result getModsResponse

	response, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&getModsRequest{ModIDs: ids}).
		SetResult(&result).
		Post("/mods")
	if err = provider.Do(response, err); err != nil {
		return nil, fmt.Errorf("get curseforge projects: %w", err)
	}

	projects := make(map[int]*Project, len(result.Data))
	for i := range result.Data {
		projects[result.Data[i].ID] = &result.Data[i]
	}

	return projects, nil
}
