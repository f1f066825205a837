package gatered

import "time"

// Subreddit listing sorts understood by the gateway.
const (
	SortHot    = "hot"
	SortNew    = "new"
	SortTop    = "top"
	SortRising = "rising"
)

// Time windows for top listings.
const (
	TopHour  = "hour"
	TopDay   = "day"
	TopWeek  = "week"
	TopMonth = "month"
	TopYear  = "year"
	TopAll   = "all"
)

var validPostSorts = map[string]bool{
	SortHot:    true,
	SortNew:    true,
	SortTop:    true,
	SortRising: true,
}

var validTopWindows = map[string]bool{
	TopHour:  true,
	TopDay:   true,
	TopWeek:  true,
	TopMonth: true,
	TopYear:  true,
	TopAll:   true,
}

// postsConfig holds the settings for subreddit listing requests.
type postsConfig struct {
	sort      string
	topWindow string
	after     PageCursor
	pageLimit int
	pageDelay time.Duration
}

// newPostsConfig applies options over the defaults: hot sort, day window,
// four pages with a half-second pause between page requests.
func newPostsConfig(opts ...PostsOption) *postsConfig {
	cfg := &postsConfig{
		sort:      SortHot,
		topWindow: TopDay,
		pageLimit: 4,
		pageDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// queryParams renders the config as gateway query parameters. Unknown sorts
// are omitted so the gateway applies its own default; an unknown top window
// falls back to day.
func (cfg *postsConfig) queryParams() map[string]string {
	params := map[string]string{"layout": "classic"}

	if validPostSorts[cfg.sort] {
		params["sort"] = cfg.sort
		if cfg.sort == SortTop {
			window := cfg.topWindow
			if !validTopWindows[window] {
				window = TopDay
			}
			params["t"] = window
		}
	}

	return params
}

// PostsOption is a function type for modifying subreddit listing requests
type PostsOption func(*postsConfig)

// WithSort returns a PostsOption that sets the listing sort order
// (hot, new, top, rising).
func WithSort(sort string) PostsOption {
	return func(cfg *postsConfig) {
		cfg.sort = sort
	}
}

// WithTopWindow returns a PostsOption that sets the time window for top
// listings (hour, day, week, month, year, all).
func WithTopWindow(window string) PostsOption {
	return func(cfg *postsConfig) {
		cfg.topWindow = window
	}
}

// WithAfter returns a PostsOption that starts the listing at the given
// pagination cursor.
func WithAfter(cursor PageCursor) PostsOption {
	return func(cfg *postsConfig) {
		cfg.after = cursor
	}
}

// WithPageLimit returns a PostsOption that caps the number of pages fetched
// by the page-walking calls. Zero removes the cap.
func WithPageLimit(pages int) PostsOption {
	return func(cfg *postsConfig) {
		cfg.pageLimit = pages
	}
}

// WithPageDelay returns a PostsOption that sets the pause between page
// requests in the page-walking calls. Zero disables the pause.
func WithPageDelay(delay time.Duration) PostsOption {
	return func(cfg *postsConfig) {
		cfg.pageDelay = delay
	}
}
