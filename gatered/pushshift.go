package gatered

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	pushshiftBaseURL = "https://api.pushshift.io"

	// PushshiftMaxPageSize is the largest page the archive serves per request.
	PushshiftMaxPageSize = 100
)

// Archive search sort directions.
const (
	SearchSortAsc  = "asc"
	SearchSortDesc = "desc"
)

// pushshiftHeaders mimic the redditsearch.io frontend the archive serves.
func pushshiftHeaders() map[string]string {
	return map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
		"DNT":             "1",
		"Origin":          "https://redditsearch.io/",
		"Referer":         "https://redditsearch.io/",
	}
}

// PushshiftSubmission represents a submission archived by PushShift. Unlike
// gateway timestamps these are unix seconds.
type PushshiftSubmission struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Subreddit   string `json:"subreddit"`
	Title       string `json:"title"`
	SelfText    string `json:"selftext"`
	CreatedUTC  int64  `json:"created_utc"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	Permalink   string `json:"permalink"`
	FullLink    string `json:"full_link"`
	URL         string `json:"url"`
}

// Fullname returns the Reddit fullname identifier for this submission
// (t3_<id>), usable with Client.GetPostComments.
func (s PushshiftSubmission) Fullname() string {
	return fullname("t3", s.ID)
}

// CreatedTime returns the submission time as a time.Time.
func (s PushshiftSubmission) CreatedTime() time.Time {
	return time.Unix(s.CreatedUTC, 0).UTC()
}

// Timestamp converts a time.Time to the epoch seconds the archive expects.
func Timestamp(t time.Time) int64 {
	return t.Truncate(time.Second).Unix()
}

// PushshiftClient talks to the PushShift Reddit archive. It serves the
// historical queries the gateway cannot: submissions by time range. For
// comments, take the submission ids from here and use Client.
type PushshiftClient struct {
	baseURL            string
	userAgent          string
	client             *http.Client
	rateLimiter        *RateLimiter
	retryConfig        *RetryConfig
	compressionEnabled bool
}

// NewPushshiftClient creates a new archive client with the provided options
func NewPushshiftClient(opts ...PushshiftOption) (*PushshiftClient, error) {
	p := &PushshiftClient{
		baseURL:            pushshiftBaseURL,
		userAgent:          defaultUserAgent,
		client:             &http.Client{Timeout: 30 * time.Second},
		rateLimiter:        NewRateLimiter(60, 5),
		retryConfig:        DefaultPushshiftRetryConfig(),
		compressionEnabled: true,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("pushshift.NewPushshiftClient: applying option failed: %w", err)
		}
	}

	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}

	return p, nil
}

// String returns a string representation of the PushshiftClient
func (p *PushshiftClient) String() string {
	if p == nil {
		return "PushshiftClient<nil>"
	}
	return fmt.Sprintf("PushshiftClient{BaseURL: %q}", p.baseURL)
}

// getJSON performs a GET against the archive with rate limiting and retries,
// decoding the JSON response into result.
func (p *PushshiftClient) getJSON(ctx context.Context, endpoint string, result any) error {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("pushshift.getJSON: rate limit wait failed: %w", err)
	}

	maxAttempts := 1
	if p.retryConfig != nil {
		maxAttempts = p.retryConfig.MaxRetries + 1
	}

	var lastError error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("pushshift.getJSON: creating request failed: %w", err)
		}

		for key, value := range pushshiftHeaders() {
			req.Header.Set(key, value)
		}
		req.Header.Set("User-Agent", p.userAgent)
		if p.compressionEnabled {
			req.Header.Set("Accept-Encoding", "gzip")
		}

		slog.Debug("making pushshift request",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"max_attempts", maxAttempts)

		resp, err := p.client.Do(req)
		if err != nil {
			lastError = fmt.Errorf("pushshift.getJSON: making request failed: %w", err)

			if p.retryConfig != nil && attempt < maxAttempts-1 {
				delay := p.retryConfig.delay(attempt, 0)
				slog.Warn("pushshift request failed, retrying",
					"error", err,
					"attempt", attempt+1,
					"delay", delay)

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return lastError
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			reader, err := responseReader(resp, p.compressionEnabled)
			if err != nil {
				resp.Body.Close()
				return fmt.Errorf("pushshift.getJSON: getting response reader failed: %w", err)
			}

			decodeErr := json.NewDecoder(reader).Decode(result)
			reader.Close()
			resp.Body.Close()

			if decodeErr != nil {
				return fmt.Errorf("pushshift.getJSON: decoding JSON response failed for %s: %w", endpoint, decodeErr)
			}
			return nil
		}

		if p.retryConfig != nil && p.retryConfig.isRetryable(resp.StatusCode) && attempt < maxAttempts-1 {
			body := readBody(resp, p.compressionEnabled)
			delay := p.retryConfig.delay(attempt, retryAfterFromHeaders(resp.Header))

			lastError = NewAPIError(resp, body)

			slog.Warn("pushshift returned retryable error, retrying",
				"status_code", resp.StatusCode,
				"attempt", attempt+1,
				"delay", delay)

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return NewAPIError(resp, readBody(resp, p.compressionEnabled))
	}

	if lastError != nil {
		return lastError
	}
	return fmt.Errorf("pushshift.getJSON: exhausted all retry attempts")
}

// submissionsResponse is the archive's search envelope.
type submissionsResponse struct {
	Data []PushshiftSubmission `json:"data"`
}

// SearchSubmissions fetches one page of archived submissions for a
// subreddit, newest first by default. Use the search options to bound the
// query by epoch time.
func (p *PushshiftClient) SearchSubmissions(ctx context.Context, subreddit string, opts ...SearchOption) ([]PushshiftSubmission, error) {
	cfg := newSearchConfig(opts...)
	return p.searchSubmissions(ctx, subreddit, cfg, cfg.before)
}

func (p *PushshiftClient) searchSubmissions(ctx context.Context, subreddit string, cfg *searchConfig, before int64) ([]PushshiftSubmission, error) {
	params := map[string]string{
		"subreddit": subreddit,
		"sort":      cfg.sort,
		"size":      strconv.Itoa(cfg.size),
	}
	if before > 0 {
		params["before"] = strconv.FormatInt(before, 10)
	}
	if cfg.after > 0 {
		params["after"] = strconv.FormatInt(cfg.after, 10)
	}

	endpoint := BuildEndpoint("/reddit/search/submission", params)

	var raw submissionsResponse
	if err := p.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("pushshift.SearchSubmissions: %w", err)
	}
	return raw.Data, nil
}

// EachSubmissionPage walks the archive window page by page, advancing the
// before bound to the oldest submission seen so far. The walk stops on a
// short page, meaning the window is exhausted, or when visit returns an
// error.
func (p *PushshiftClient) EachSubmissionPage(ctx context.Context, subreddit string, visit func([]PushshiftSubmission) error, opts ...SearchOption) error {
	if visit == nil {
		return fmt.Errorf("pushshift.EachSubmissionPage: visit function is required")
	}

	cfg := newSearchConfig(opts...)
	before := cfg.before

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		subs, err := p.searchSubmissions(ctx, subreddit, cfg, before)
		if err != nil {
			return fmt.Errorf("pushshift.EachSubmissionPage: %w", err)
		}

		if err := visit(subs); err != nil {
			return err
		}

		if len(subs) < cfg.size {
			return nil
		}

		before = subs[len(subs)-1].CreatedUTC

		if cfg.delay > 0 {
			select {
			case <-time.After(cfg.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// SearchAllSubmissions aggregates every page of a time window. Use with
// caution on wide windows; prefer EachSubmissionPage for streaming.
func (p *PushshiftClient) SearchAllSubmissions(ctx context.Context, subreddit string, opts ...SearchOption) ([]PushshiftSubmission, error) {
	var all []PushshiftSubmission
	err := p.EachSubmissionPage(ctx, subreddit, func(subs []PushshiftSubmission) error {
		all = append(all, subs...)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return all, nil
}
