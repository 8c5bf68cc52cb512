package provider

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oshokin/packwatch/internal/version"
)

// Option configures the HTTP client used by catalog clients.
type Option func(*resty.Client)

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) {
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
	}
}

// WithHeader sets a header sent with every request.
func WithHeader(name, value string) Option {
	return func(c *resty.Client) {
		if value != "" {
			c.SetHeader(name, value)
		}
	}
}

// NewHTTPClient builds a JSON client rooted at baseURL. No retries are configured.
func NewHTTPClient(baseURL string, opts ...Option) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent()).
		SetRetryCount(0)

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do classifies the outcome of a resty request: transport errors are transient,
// non-2xx statuses are classified by FromStatus.
func Do(response *resty.Response, err error) error {
	if err != nil {
		return Transient(err)
	}

	if response.IsError() {
		return FromStatus(response.StatusCode(), newStatusError(response))
	}

	return nil
}

// statusError reports the request URL and status of an unsuccessful response.
type statusError struct {
	url    string
	status string
}

func (e *statusError) Error() string {
	return e.url + ": " + e.status
}

func newStatusError(response *resty.Response) error {
	return &statusError{
		url:    response.Request.URL,
		status: response.Status(),
	}
}
