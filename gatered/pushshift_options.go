package gatered

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PushshiftOption represents a function that configures a PushshiftClient
type PushshiftOption func(*PushshiftClient) error

// WithPushshiftHTTPClient sets the HTTP client used for archive requests
func WithPushshiftHTTPClient(client *http.Client) PushshiftOption {
	return func(p *PushshiftClient) error {
		p.client = client
		return nil
	}
}

// WithPushshiftTransport sets a custom transport for archive requests
func WithPushshiftTransport(transport http.RoundTripper) PushshiftOption {
	return func(p *PushshiftClient) error {
		if p.client == nil {
			p.client = &http.Client{}
		}
		p.client.Transport = transport
		return nil
	}
}

// WithPushshiftTimeout sets the timeout for archive requests
func WithPushshiftTimeout(timeout time.Duration) PushshiftOption {
	return func(p *PushshiftClient) error {
		if p.client == nil {
			p.client = &http.Client{}
		}
		p.client.Timeout = timeout
		return nil
	}
}

// WithPushshiftProxy routes archive requests through the given HTTP proxy URL
func WithPushshiftProxy(proxyURL string) PushshiftOption {
	return func(p *PushshiftClient) error {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}

		transport, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return fmt.Errorf("default transport is not an *http.Transport")
		}
		proxied := transport.Clone()
		proxied.Proxy = http.ProxyURL(parsed)

		if p.client == nil {
			p.client = &http.Client{}
		}
		p.client.Transport = proxied
		return nil
	}
}

// WithPushshiftRateLimit sets custom client-side rate limiting parameters
func WithPushshiftRateLimit(requestsPerMinute, burstSize int) PushshiftOption {
	return func(p *PushshiftClient) error {
		p.rateLimiter = NewRateLimiter(requestsPerMinute, burstSize)
		return nil
	}
}

// WithPushshiftRetryConfig sets the retry behavior for archive requests.
// Pass nil to disable retries entirely.
func WithPushshiftRetryConfig(config *RetryConfig) PushshiftOption {
	return func(p *PushshiftClient) error {
		p.retryConfig = config
		return nil
	}
}

// WithPushshiftBaseURL overrides the archive base URL. Mainly useful for tests.
func WithPushshiftBaseURL(baseURL string) PushshiftOption {
	return func(p *PushshiftClient) error {
		p.baseURL = baseURL
		return nil
	}
}

// searchConfig holds the settings for archive search requests.
type searchConfig struct {
	before int64
	after  int64
	sort   string
	size   int
	delay  time.Duration
}

// newSearchConfig applies options over the defaults: newest first, maximum
// page size, half a second between pages when walking.
func newSearchConfig(opts ...SearchOption) *searchConfig {
	cfg := &searchConfig{
		sort:  SearchSortDesc,
		size:  PushshiftMaxPageSize,
		delay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// SearchOption is a function type for modifying archive search requests
type SearchOption func(*searchConfig)

// WithSearchBefore returns a SearchOption that only matches submissions
// created before the given time. This is the upper bound of the window and
// the starting point of a page walk.
func WithSearchBefore(t time.Time) SearchOption {
	return func(cfg *searchConfig) {
		cfg.before = Timestamp(t)
	}
}

// WithSearchAfter returns a SearchOption that only matches submissions
// created after the given time. This is the lower bound of the window.
func WithSearchAfter(t time.Time) SearchOption {
	return func(cfg *searchConfig) {
		cfg.after = Timestamp(t)
	}
}

// WithSearchSort returns a SearchOption that sets the sort direction
// (asc or desc).
func WithSearchSort(sort string) SearchOption {
	return func(cfg *searchConfig) {
		if sort == SearchSortAsc || sort == SearchSortDesc {
			cfg.sort = sort
		}
	}
}

// WithSearchSize returns a SearchOption that sets the page size, capped at
// the archive maximum of 100.
func WithSearchSize(size int) SearchOption {
	return func(cfg *searchConfig) {
		if size > 0 && size <= PushshiftMaxPageSize {
			cfg.size = size
		}
	}
}

// WithSearchDelay returns a SearchOption that sets the pause between page
// requests when walking a window. Zero disables the pause.
func WithSearchDelay(delay time.Duration) SearchOption {
	return func(cfg *searchConfig) {
		if delay >= 0 {
			cfg.delay = delay
		}
	}
}
