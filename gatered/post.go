package gatered

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// adIDPrefix marks the synthetic post ids the gateway injects for
// advertisement slots in a listing.
const adIDPrefix = "t3_z="

// PostSource holds the outbound link of a link post.
type PostSource struct {
	URL         string `json:"url"`
	DisplayText string `json:"displayText"`
}

// Post represents a submission as returned by the Reddit gateway. Gateway
// payloads carry more attributes than the public dev API; the loosely shaped
// ones (media, flair) are kept as raw maps.
type Post struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	AuthorID        string         `json:"authorId"`
	Created         int64          `json:"created"` // unix milliseconds
	Score           int            `json:"score"`
	UpvoteRatio     float64        `json:"upvoteRatio"`
	CommentCount    int            `json:"numComments"`
	Permalink       string         `json:"permalink"`
	Domain          string         `json:"domain"`
	Source          *PostSource    `json:"source"`
	Media           map[string]any `json:"media"`
	NSFW            bool           `json:"isNSFW"`
	Spoiler         bool           `json:"isSpoiler"`
	Locked          bool           `json:"isLocked"`
	Stickied        bool           `json:"isStickied"`
	Sponsored       bool           `json:"isSponsored"`
	DistinguishType string         `json:"distinguishType"`
	BelongsTo       PostParent     `json:"belongsTo"`
}

// PostParent identifies the listing a post belongs to, normally a subreddit.
type PostParent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Fullname returns the Reddit fullname identifier for this post (t3_<id>).
// Gateway payloads already carry the prefix; it is added only when missing.
func (p Post) Fullname() string {
	return fullname("t3", p.ID)
}

// CreatedTime returns the submission time as a time.Time.
func (p Post) CreatedTime() time.Time {
	return time.UnixMilli(p.Created).UTC()
}

// SelfText returns the markdown body of a self post. The gateway nests it
// inside the media object rather than a top-level selftext field.
func (p Post) SelfText() string {
	return getStringField(p.Media, "markdownContent")
}

// MediaType returns the kind of media attached to the post (text, image,
// video, gallery...), or an empty string when there is none.
func (p Post) MediaType() string {
	return getStringField(p.Media, "type")
}

// MediaURL returns the direct content URL for image and video media.
func (p Post) MediaURL() string {
	return getStringField(p.Media, "content")
}

// MediaDimensions returns width and height for visual media, zero otherwise.
func (p Post) MediaDimensions() (width, height int) {
	return getIntField(p.Media, "width"), getIntField(p.Media, "height")
}

// LinkURL returns the outbound URL for link posts, falling back to the
// permalink for self posts.
func (p Post) LinkURL() string {
	if p.Source != nil && p.Source.URL != "" {
		return p.Source.URL
	}
	return p.Permalink
}

// String returns a formatted string representation of the Post
func (p Post) String() string {
	return fmt.Sprintf("Post{ID: %q, Title: %q, Author: %q, Score: %d, Comments: %d}",
		p.ID, p.Title, p.Author, p.Score, p.CommentCount)
}

// PostsPage is a single page of a subreddit listing: the posts in listing
// order with ads removed, the subreddit the listing belongs to, and the
// cursor for the next page.
type PostsPage struct {
	Subreddit Subreddit
	Posts     []Post
	Sort      string
	Next      PageCursor
}

// postsResponse mirrors the gateway payload for /subreddits/{name}. Posts
// arrive as a map keyed by fullname; postIds preserves listing order.
type postsResponse struct {
	Posts              map[string]Post           `json:"posts"`
	PostIDs            []string                  `json:"postIds"`
	Subreddits         map[string]subredditInfo  `json:"subreddits"`
	SubredditAboutInfo map[string]subredditAbout `json:"subredditAboutInfo"`
	ListingSort        string                    `json:"listingSort"`
	Token              string                    `json:"token"`
	Dist               int                       `json:"dist"`
}

// page assembles a PostsPage from the raw listing payload, dropping the
// advertisement slots the gateway interleaves with organic posts.
func (r *postsResponse) page() (*PostsPage, error) {
	ids := lo.Filter(r.PostIDs, func(id string, _ int) bool {
		return !strings.HasPrefix(id, adIDPrefix)
	})

	posts := lo.FilterMap(ids, func(id string, _ int) (Post, bool) {
		post, ok := r.Posts[id]
		return post, ok
	})

	sub, err := mergeSubreddit(r.Subreddits, r.SubredditAboutInfo)
	if err != nil {
		return nil, fmt.Errorf("post.page: %w", err)
	}

	return &PostsPage{
		Subreddit: sub,
		Posts:     posts,
		Sort:      r.ListingSort,
		Next:      PageCursor{Token: r.Token, Dist: r.Dist},
	}, nil
}

// fullname prefixes an id with its thing kind unless already present.
func fullname(kind, id string) string {
	if strings.HasPrefix(id, kind+"_") {
		return id
	}
	return kind + "_" + id
}
