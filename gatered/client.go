package gatered

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	gatewayBaseURL = "https://gateway.reddit.com/desktopapi/v1"

	// defaultUserAgent is a desktop browser identity; the gateway serves the
	// web client, not API consumers.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:78.0) Gecko/20100101 Firefox/78.0"
)

// defaultQueryParams are sent on every gateway request, identifying the
// desktop web client. Rich-text JSON is excluded so bodies come as markdown.
func defaultQueryParams() map[string]string {
	return map[string]string{
		"redditWebClient": "web2x",
		"app":             "web2x-client-production",
		"allow_over18":    "1",
	}
}

// defaultHeaders mimic the browser requests the gateway expects.
func defaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
		"Origin":          "https://www.reddit.com",
		"Referer":         "https://www.reddit.com/",
	}
}

// RateLimitHook provides callbacks for rate limiting events
type RateLimitHook interface {
	// OnRateLimitWait is called when the client is waiting due to the
	// client-side rate limit
	OnRateLimitWait(ctx context.Context, duration time.Duration)

	// OnRateLimitExceeded is called when the server answers 429
	OnRateLimitExceeded(ctx context.Context, retryAfter time.Duration)
}

// LoggingRateLimitHook provides a default implementation that logs rate limit events using slog
type LoggingRateLimitHook struct{}

// OnRateLimitWait logs when the client is waiting due to rate limits
func (h *LoggingRateLimitHook) OnRateLimitWait(ctx context.Context, duration time.Duration) {
	slog.InfoContext(ctx, "rate limit wait",
		"duration", duration,
		"duration_ms", duration.Milliseconds())
}

// OnRateLimitExceeded logs when the server reports the rate limit was hit
func (h *LoggingRateLimitHook) OnRateLimitExceeded(ctx context.Context, retryAfter time.Duration) {
	slog.WarnContext(ctx, "rate limit exceeded",
		"retry_after", retryAfter)
}

// BuildEndpoint constructs a URL endpoint with query parameters using proper URL encoding
func BuildEndpoint(base string, params map[string]string) string {
	if len(params) == 0 {
		return base
	}

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	return base + "?" + values.Encode()
}

// RequestInterceptor is a function that can inspect and modify HTTP requests before they are sent.
// It receives the request that is about to be sent and can return an error to cancel the request.
// Interceptors are called in the order they are registered.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor is a function that can inspect HTTP responses after they are received.
// It receives the response that was received and can return an error to indicate a problem.
// Interceptors are called in the order they are registered.
type ResponseInterceptor func(resp *http.Response) error

// Client talks to the Reddit web gateway (gateway.reddit.com) used by the
// desktop site. No OAuth credentials are involved; the gateway hands out
// anonymous loid/session tokens on the first response and expects them back
// on subsequent requests.
type Client struct {
	baseURL              string
	userAgent            string
	client               *http.Client
	rateLimiter          *RateLimiter
	retryConfig          *RetryConfig
	rateLimitHook        RateLimitHook
	circuitBreaker       *CircuitBreaker
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	compressionEnabled   bool

	mu      sync.Mutex
	loid    string
	session string
}

// NewClient creates a new gateway client with the provided options
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:            gatewayBaseURL,
		userAgent:          defaultUserAgent,
		client:             &http.Client{Timeout: 30 * time.Second},
		rateLimiter:        NewRateLimiter(60, 5), // 60 requests per minute with burst of 5
		retryConfig:        DefaultRetryConfig(),
		compressionEnabled: true,
		loid:               "0",
		session:            "0",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("client.NewClient: applying option failed: %w", err)
		}
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}

	slog.Debug("creating new gateway client", "client", c)

	return c, nil
}

// String returns a string representation of the Client struct
func (c *Client) String() string {
	if c == nil {
		return "Client<nil>"
	}

	return fmt.Sprintf("Client{BaseURL: %q, UserAgent: %q}", c.baseURL, c.userAgent)
}

// sessionHeaders returns the anonymous session tokens to replay.
func (c *Client) sessionHeaders() (loid, session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loid, c.session
}

// captureSession stores the loid/session tokens from the first successful
// response. Later responses do not overwrite them.
func (c *Client) captureSession(headers http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loid != "0" {
		return
	}
	if loid := headers.Get("x-reddit-loid"); loid != "" {
		c.loid = loid
		c.session = headers.Get("x-reddit-session")
		slog.Debug("captured anonymous gateway session")
	}
}

// getResponseReader returns the appropriate reader for the response body, handling compression if needed
func (c *Client) getResponseReader(resp *http.Response) (io.ReadCloser, error) {
	return responseReader(resp, c.compressionEnabled)
}

// responseReader wraps the response body in a gzip reader when the response
// is compressed and decompression is wanted.
func responseReader(resp *http.Response, compressionEnabled bool) (io.ReadCloser, error) {
	if compressionEnabled && resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("responseReader: creating gzip reader failed: %w", err)
		}

		return &gzipReaderCloser{
			gzipReader: gzipReader,
			original:   resp.Body,
		}, nil
	}

	return resp.Body, nil
}

// gzipReaderCloser wraps a gzip reader and ensures both the gzip reader and original body are closed
type gzipReaderCloser struct {
	gzipReader *gzip.Reader
	original   io.ReadCloser
}

func (g *gzipReaderCloser) Read(p []byte) (n int, err error) {
	return g.gzipReader.Read(p)
}

func (g *gzipReaderCloser) Close() error {
	if err := g.gzipReader.Close(); err != nil {
		g.original.Close()
		return err
	}
	return g.original.Close()
}

// readBody drains and closes the response body, decompressing if needed.
func readBody(resp *http.Response, compressionEnabled bool) []byte {
	reader, err := responseReader(resp, compressionEnabled)
	if err != nil {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return body
	}
	body, _ := io.ReadAll(reader)
	reader.Close()
	return body
}

// requestJSON performs an HTTP request and decodes the JSON response into the provided result
func (c *Client) requestJSON(ctx context.Context, method, endpoint string, payload, result any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client.requestJSON: encoding payload failed: %w", err)
		}
	}

	resp, err := c.request(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("client.requestJSON: request failed: %w", err)
	}
	defer resp.Body.Close()

	reader, err := c.getResponseReader(resp)
	if err != nil {
		return fmt.Errorf("client.requestJSON: getting response reader failed: %w", err)
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(result); err != nil {
		return fmt.Errorf("client.requestJSON: decoding JSON response failed for %s %s: %w", method, endpoint, err)
	}

	return nil
}

// request performs an HTTP request with rate limiting, retry logic, and error handling
func (c *Client) request(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	if c.circuitBreaker != nil {
		var resp *http.Response
		err := c.circuitBreaker.Execute(func() error {
			var requestErr error
			resp, requestErr = c.performRequest(ctx, method, endpoint, payload)
			return requestErr
		})
		return resp, err
	}

	return c.performRequest(ctx, method, endpoint, payload)
}

// performRequest performs the actual HTTP request with rate limiting and retry logic
func (c *Client) performRequest(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	if c.rateLimitHook != nil {
		// Use Reserve to learn the delay without consuming the slot twice
		reservation := c.rateLimiter.Reserve()
		delay := reservation.Delay()
		if delay > 0 {
			c.rateLimitHook.OnRateLimitWait(ctx, delay)
		}
		reservation.Cancel()
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("client.performRequest: rate limit wait failed: %w", err)
	}

	var resp *http.Response
	var lastError error

	maxAttempts := 1
	if c.retryConfig != nil {
		maxAttempts = c.retryConfig.MaxRetries + 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("client.performRequest: creating request failed: %w", err)
		}

		for key, value := range defaultHeaders() {
			req.Header.Set(key, value)
		}
		req.Header.Set("User-Agent", c.userAgent)

		loid, session := c.sessionHeaders()
		req.Header.Set("x-reddit-loid", loid)
		req.Header.Set("x-reddit-session", session)

		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.compressionEnabled {
			req.Header.Set("Accept-Encoding", "gzip")
		}

		for i, interceptor := range c.requestInterceptors {
			if err := interceptor(req); err != nil {
				return nil, fmt.Errorf("client.performRequest: request interceptor %d failed: %w", i, err)
			}
		}

		slog.Debug("making gateway request",
			"method", method,
			"endpoint", endpoint,
			"attempt", attempt+1,
			"max_attempts", maxAttempts)

		resp, err = c.client.Do(req)
		if err != nil {
			lastError = fmt.Errorf("client.performRequest: making request failed: %w", err)

			if c.retryConfig != nil && attempt < maxAttempts-1 {
				delay := c.retryConfig.delay(attempt, 0)
				slog.Warn("request failed, retrying",
					"error", err,
					"attempt", attempt+1,
					"max_attempts", maxAttempts,
					"delay", delay,
					"endpoint", endpoint)

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return nil, lastError
		}

		for i, interceptor := range c.responseInterceptors {
			if err := interceptor(resp); err != nil {
				resp.Body.Close()
				return nil, fmt.Errorf("client.performRequest: response interceptor %d failed: %w", i, err)
			}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.captureSession(resp.Header)
			slog.Debug("request successful",
				"status_code", resp.StatusCode,
				"endpoint", endpoint,
				"attempt", attempt+1)
			return resp, nil
		}

		if c.retryConfig != nil && c.retryConfig.isRetryable(resp.StatusCode) && attempt < maxAttempts-1 {
			body := readBody(resp, c.compressionEnabled)

			retryAfter := retryAfterFromHeaders(resp.Header)
			delay := c.retryConfig.delay(attempt, retryAfter)

			if resp.StatusCode == http.StatusTooManyRequests {
				// Throttle the local limiter so follow-up requests do not
				// immediately re-trip the server-side limit.
				c.rateLimiter.Backoff(time.Now().Add(delay))
				if c.rateLimitHook != nil {
					c.rateLimitHook.OnRateLimitExceeded(ctx, retryAfter)
				}
			}

			lastError = NewAPIError(resp, body)

			slog.Warn("received retryable error, retrying",
				"status_code", resp.StatusCode,
				"error", lastError,
				"attempt", attempt+1,
				"max_attempts", maxAttempts,
				"delay", delay,
				"retry_after", retryAfter,
				"endpoint", endpoint)

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		// Non-retryable error or no more attempts
		return nil, NewAPIError(resp, readBody(resp, c.compressionEnabled))
	}

	if lastError != nil {
		return nil, lastError
	}
	return nil, fmt.Errorf("client.performRequest: exhausted all retry attempts")
}

// mergeQueryParams combines the gateway's default params with request
// specific ones. Request params win on conflict.
func mergeQueryParams(params map[string]string) map[string]string {
	merged := defaultQueryParams()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// GetPosts fetches a single page of a subreddit listing: posts with ads
// filtered out, the merged subreddit record, and the cursor for the next
// page. Sort options follow the desktop site: hot (default), new, top,
// rising; top listings take a time window.
func (c *Client) GetPosts(ctx context.Context, subreddit string, opts ...PostsOption) (*PostsPage, error) {
	cfg := newPostsConfig(opts...)
	return c.getPostsPage(ctx, subreddit, cfg, cfg.after)
}

// appendCursorParams adds the pagination cursor to the query params. The
// gateway needs token and dist together; a partial cursor is not sent.
func appendCursorParams(params map[string]string, cursor PageCursor) map[string]string {
	if !cursor.IsZero() && cursor.Dist > 0 {
		params["after"] = cursor.Token
		params["dist"] = strconv.Itoa(cursor.Dist)
	}
	return params
}

// getPostsPage fetches one listing page at the given cursor.
func (c *Client) getPostsPage(ctx context.Context, subreddit string, cfg *postsConfig, cursor PageCursor) (*PostsPage, error) {
	params := appendCursorParams(cfg.queryParams(), cursor)

	endpoint := BuildEndpoint("/subreddits/"+url.PathEscape(subreddit), mergeQueryParams(params))

	var raw postsResponse
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("client.getPostsPage: %w", err)
	}

	page, err := raw.page()
	if err != nil {
		return nil, fmt.Errorf("client.getPostsPage: %w", err)
	}
	return page, nil
}

// GetPostsRaw fetches a subreddit listing page and returns the decoded
// gateway payload without any shaping. Advertisement entries are included.
func (c *Client) GetPostsRaw(ctx context.Context, subreddit string, opts ...PostsOption) (map[string]any, error) {
	cfg := newPostsConfig(opts...)
	params := appendCursorParams(cfg.queryParams(), cfg.after)

	endpoint := BuildEndpoint("/subreddits/"+url.PathEscape(subreddit), mergeQueryParams(params))

	var raw map[string]any
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("client.GetPostsRaw: %w", err)
	}
	return raw, nil
}

// GetPostsAfter fetches posts page by page starting at the given cursor and
// aggregates them. Set limit to 0 to let the page limit (default four pages)
// decide when to stop.
func (c *Client) GetPostsAfter(ctx context.Context, subreddit string, after PageCursor, limit int, opts ...PostsOption) ([]Post, error) {
	cfg := newPostsConfig(opts...)

	firstCall := true
	fetchPage := func(ctx context.Context, cursor PageCursor) ([]Post, PageCursor, error) {
		if firstCall {
			firstCall = false
			cursor = after
		}
		page, err := c.getPostsPage(ctx, subreddit, cfg, cursor)
		if err != nil {
			return nil, PageCursor{}, err
		}
		return page.Posts, page.Next, nil
	}

	posts, err := PaginateAll(ctx, fetchPage, PaginationOptions{
		Limit:       limit,
		PageLimit:   cfg.pageLimit,
		PageDelay:   cfg.pageDelay,
		StopOnEmpty: true,
	})
	if err != nil {
		return nil, fmt.Errorf("client.GetPostsAfter: %w", err)
	}
	return posts, nil
}

// EachPostsPage walks a subreddit listing page by page, invoking visit for
// each page including its subreddit record. The walk stops when the listing
// is exhausted, the configured page limit is reached, or visit returns an
// error.
func (c *Client) EachPostsPage(ctx context.Context, subreddit string, visit func(*PostsPage) error, opts ...PostsOption) error {
	if visit == nil {
		return fmt.Errorf("client.EachPostsPage: visit function is required")
	}

	cfg := newPostsConfig(opts...)
	cursor := cfg.after
	pages := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := c.getPostsPage(ctx, subreddit, cfg, cursor)
		if err != nil {
			return fmt.Errorf("client.EachPostsPage: %w", err)
		}

		if err := visit(page); err != nil {
			return err
		}

		pages++
		if page.Next.IsZero() {
			return nil
		}
		if cfg.pageLimit > 0 && pages >= cfg.pageLimit {
			return nil
		}
		cursor = page.Next

		if cfg.pageDelay > 0 {
			select {
			case <-time.After(cfg.pageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// GetPostComments fetches a submission together with its visible comments
// and the moreComments stubs for collapsed branches. Comment sort options:
// best (default), top, new, controversial, old, qa.
func (c *Client) GetPostComments(ctx context.Context, submissionID string, opts ...CommentsOption) (*PostComments, error) {
	cfg := newCommentsConfig(opts...)

	raw, err := c.getPostCommentsResponse(ctx, submissionID, cfg)
	if err != nil {
		return nil, fmt.Errorf("client.GetPostComments: %w", err)
	}

	post, ok := raw.post(submissionID)
	if !ok {
		return nil, fmt.Errorf("client.GetPostComments: submission %q missing from response: %w", submissionID, ErrNotFound)
	}

	batch := raw.batch()
	return &PostComments{
		Post:     post,
		Comments: batch.Comments,
		More:     batch.More,
	}, nil
}

func (c *Client) getPostCommentsResponse(ctx context.Context, submissionID string, cfg *commentsConfig) (*commentsResponse, error) {
	endpoint := BuildEndpoint("/postcomments/"+fullname("t3", submissionID), mergeQueryParams(cfg.queryParams()))

	var raw commentsResponse
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetPostCommentsRaw fetches a submission's comment payload and returns the
// decoded gateway JSON without any shaping.
func (c *Client) GetPostCommentsRaw(ctx context.Context, submissionID string, opts ...CommentsOption) (map[string]any, error) {
	cfg := newCommentsConfig(opts...)
	endpoint := BuildEndpoint("/postcomments/"+fullname("t3", submissionID), mergeQueryParams(cfg.queryParams()))

	var raw map[string]any
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("client.GetPostCommentsRaw: %w", err)
	}
	return raw, nil
}

// GetMoreComments redeems a moreComments token, returning the comments of
// that branch plus any deeper stubs.
func (c *Client) GetMoreComments(ctx context.Context, submissionID, token string) (*CommentBatch, error) {
	params := mergeQueryParams(map[string]string{"emotes_as_images": "true"})
	endpoint := BuildEndpoint("/morecomments/"+fullname("t3", submissionID), params)

	payload := map[string]string{"token": token}

	var raw commentsResponse
	if err := c.requestJSON(ctx, http.MethodPost, endpoint, payload, &raw); err != nil {
		return nil, fmt.Errorf("client.GetMoreComments: %w", err)
	}

	batch := raw.batch()
	return &batch, nil
}

// GetAllPostComments fetches a submission and expands the comment tree until
// no moreComments stubs remain. Each expansion round redeems the outstanding
// tokens concurrently, bounded by the max-at-once and max-per-second options
// (defaults 8 and 4).
func (c *Client) GetAllPostComments(ctx context.Context, submissionID string, opts ...CommentsOption) (*PostComments, error) {
	cfg := newCommentsConfig(opts...)

	result, err := c.GetPostComments(ctx, submissionID, opts...)
	if err != nil {
		return nil, fmt.Errorf("client.GetAllPostComments: %w", err)
	}

	more := result.More
	for len(more) > 0 {
		batch, err := c.expandMoreComments(ctx, submissionID, more, cfg)
		if err != nil {
			return nil, fmt.Errorf("client.GetAllPostComments: %w", err)
		}

		result.Comments = append(result.Comments, batch.Comments...)
		more = batch.More
	}

	result.More = nil
	return result, nil
}

// EachCommentBatch fetches a submission's comments round by round: the
// visible comments first, then one batch per expansion round of the
// moreComments stubs. The streaming counterpart of GetAllPostComments.
func (c *Client) EachCommentBatch(ctx context.Context, submissionID string, visit func(CommentBatch) error, opts ...CommentsOption) error {
	if visit == nil {
		return fmt.Errorf("client.EachCommentBatch: visit function is required")
	}

	cfg := newCommentsConfig(opts...)

	raw, err := c.getPostCommentsResponse(ctx, submissionID, cfg)
	if err != nil {
		return fmt.Errorf("client.EachCommentBatch: %w", err)
	}

	batch := raw.batch()
	if err := visit(batch); err != nil {
		return err
	}

	more := batch.More
	for len(more) > 0 {
		next, err := c.expandMoreComments(ctx, submissionID, more, cfg)
		if err != nil {
			return fmt.Errorf("client.EachCommentBatch: %w", err)
		}

		if err := visit(*next); err != nil {
			return err
		}
		more = next.More
	}

	return nil
}

// expandMoreComments redeems one layer of moreComments tokens with bounded
// concurrency and flattens the results into a single batch.
func (c *Client) expandMoreComments(ctx context.Context, submissionID string, more []MoreComments, cfg *commentsConfig) (*CommentBatch, error) {
	fns := lo.Map(more, func(mc MoreComments, _ int) func(ctx context.Context) (*CommentBatch, error) {
		return func(ctx context.Context) (*CommentBatch, error) {
			return c.GetMoreComments(ctx, submissionID, mc.Token)
		}
	})

	batches, err := runAll(ctx, fns, cfg.maxAtOnce, cfg.maxPerSecond)
	if err != nil {
		return nil, err
	}

	result := &CommentBatch{}
	for _, b := range batches {
		result.Comments = append(result.Comments, b.Comments...)
		result.More = append(result.More, b.More...)
	}
	return result, nil
}
