package gatered

// Comment sorts understood by the gateway. Leaving the sort unset asks for
// the site default ("best").
const (
	CommentSortTop           = "top"
	CommentSortNew           = "new"
	CommentSortControversial = "controversial"
	CommentSortOld           = "old"
	CommentSortQA            = "qa"
)

var validCommentSorts = map[string]bool{
	CommentSortTop:           true,
	CommentSortNew:           true,
	CommentSortControversial: true,
	CommentSortOld:           true,
	CommentSortQA:            true,
}

// commentsConfig holds the settings for comment requests and comment-tree
// expansion.
type commentsConfig struct {
	sort         string
	maxAtOnce    int
	maxPerSecond int
}

// newCommentsConfig applies options over the defaults: site-default sort,
// at most 8 concurrent expansion requests, at most 4 started per second.
func newCommentsConfig(opts ...CommentsOption) *commentsConfig {
	cfg := &commentsConfig{
		maxAtOnce:    8,
		maxPerSecond: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// queryParams renders the config as gateway query parameters. An unknown
// sort is omitted, which yields the site default ordering.
func (cfg *commentsConfig) queryParams() map[string]string {
	params := map[string]string{
		"emotes_as_images":   "true",
		"hasSortParam":       "false",
		"include_categories": "true",
		"onOtherDiscussions": "false",
	}

	if validCommentSorts[cfg.sort] {
		params["hasSortParam"] = "true"
		params["sort"] = cfg.sort
	}

	return params
}

// CommentsOption is a function type for modifying comment requests
type CommentsOption func(*commentsConfig)

// WithCommentSort returns a CommentsOption that sets the comment sort order
// (top, new, controversial, old, qa).
func WithCommentSort(sort string) CommentsOption {
	return func(cfg *commentsConfig) {
		cfg.sort = sort
	}
}

// WithMaxAtOnce returns a CommentsOption that limits how many moreComments
// requests may be in flight at once during comment-tree expansion.
func WithMaxAtOnce(n int) CommentsOption {
	return func(cfg *commentsConfig) {
		if n > 0 {
			cfg.maxAtOnce = n
		}
	}
}

// WithMaxPerSecond returns a CommentsOption that limits how many
// moreComments requests may be started per second during comment-tree
// expansion. Zero disables the per-second ceiling.
func WithMaxPerSecond(n int) CommentsOption {
	return func(cfg *commentsConfig) {
		if n >= 0 {
			cfg.maxPerSecond = n
		}
	}
}
