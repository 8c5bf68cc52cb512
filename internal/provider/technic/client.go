package technic

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/packwatch/internal/provider"
)

var (
	errEmptySlug      = errors.New("modpack slug is empty")
	errNoSolderURL    = errors.New("modpack has no solder url")
	errInvalidSolder  = errors.New("invalid solder url")
	errEmptyAPIAnswer = errors.New("empty answer")
)

// Client is a Technic Platform API client.
type Client struct {
	// http is rooted at the platform API and also reaches solder hosts by absolute URL.
	http *resty.Client
	// build is the launcher build number the platform expects.
	build string
}

// NewClient creates a client for the platform API at baseURL.
func NewClient(baseURL, build string, opts ...provider.Option) *Client {
	return &Client{
		http:  provider.NewHTTPClient(baseURL, opts...),
		build: build,
	}
}

// GetModpack fetches a modpack by slug. A 404 yields a provider.ErrGone failure.
func (c *Client) GetModpack(ctx context.Context, slug string) (*Modpack, error) {
	if slug == "" {
		return nil, errEmptySlug
	}

	var result Modpack

	response, err := c.http.R().
		SetContext(ctx).
		SetPathParam("slug", slug).
		SetQueryParam("build", c.build).
		SetResult(&result).
		Get("/modpack/{slug}")
	if err = provider.Do(response, err); err != nil {
		return nil, fmt.Errorf("get technic modpack %s: %w", slug, err)
	}

	if result.Name == "" {
		return nil, fmt.Errorf("get technic modpack %s: %w", slug, provider.Transient(errEmptyAPIAnswer))
	}

	return &result, nil
}

// GetSolderModpack fetches the solder description of modpack from solderURL.
func (c *Client) GetSolderModpack(ctx context.Context, solderURL, modpack string) (*SolderModpack, error) {
	if solderURL == "" {
		return nil, errNoSolderURL
	}

	endpoint, err := url.JoinPath(solderURL, "modpack", modpack)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidSolder, err)
	}

	var result SolderModpack

	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(endpoint)
	if err = provider.Do(response, err); err != nil {
		return nil, fmt.Errorf("get solder modpack %s: %w", modpack, err)
	}

	return &result, nil
}
