package gatered

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Comment represents a single comment as returned by the Reddit gateway.
type Comment struct {
	ID              string `json:"id"`
	Author          string `json:"author"`
	AuthorID        string `json:"authorId"`
	PostID          string `json:"postId"`
	ParentID        string `json:"parentId"`
	Body            string `json:"bodyMD"`
	Created         int64  `json:"created"` // unix milliseconds
	Score           int    `json:"score"`
	Depth           int    `json:"depth"`
	Permalink       string `json:"permalink"`
	Collapsed       bool   `json:"collapsed"`
	IsAdmin         bool   `json:"isAdmin"`
	IsMod           bool   `json:"isMod"`
	DistinguishType string `json:"distinguishType"`
}

// Fullname returns the Reddit fullname identifier for this comment (t1_<id>)
func (c Comment) Fullname() string {
	return fullname("t1", c.ID)
}

// CreatedTime returns the comment time as a time.Time.
func (c Comment) CreatedTime() time.Time {
	return time.UnixMilli(c.Created).UTC()
}

// String returns a formatted string representation of the Comment
func (c Comment) String() string {
	return fmt.Sprintf("Comment{ID: %q, Author: %q, PostID: %q, Score: %d, Depth: %d}",
		c.ID, c.Author, c.PostID, c.Score, c.Depth)
}

// MoreComments is a stub for a collapsed branch of the comment tree. The
// token is a server-generated cache key redeemed via GetMoreComments.
type MoreComments struct {
	Token       string `json:"token"`
	PostID      string `json:"postId"`
	ParentID    string `json:"parentId"`
	Depth       int    `json:"depth"`
	DisplayText string `json:"displayText"`
}

// PostComments bundles a post with its comments and any unexpanded branches.
type PostComments struct {
	Post     Post
	Comments []Comment
	More     []MoreComments
}

// CommentBatch is one round of comment-tree expansion: the comments resolved
// from a set of moreComments tokens plus the next layer of stubs.
type CommentBatch struct {
	Comments []Comment
	More     []MoreComments
}

// commentsResponse mirrors the gateway payload for /postcomments/{id} and
// /morecomments/{id}. All three collections are maps keyed by fullname.
type commentsResponse struct {
	Posts        map[string]Post         `json:"posts"`
	Comments     map[string]Comment      `json:"comments"`
	MoreComments map[string]MoreComments `json:"moreComments"`
}

// batch flattens the keyed payload maps into a deterministic batch. JSON
// object order is lost in Go maps, so comments are ordered by creation time.
func (r *commentsResponse) batch() CommentBatch {
	return CommentBatch{
		Comments: sortComments(lo.Values(r.Comments)),
		More:     lo.Values(r.MoreComments),
	}
}

// post returns the post entry for the given submission id, trying both the
// prefixed and bare forms of the id.
func (r *commentsResponse) post(submissionID string) (Post, bool) {
	if p, ok := r.Posts[fullname("t3", submissionID)]; ok {
		return p, true
	}
	p, ok := r.Posts[submissionID]
	return p, ok
}

// sortComments orders comments by creation time, breaking ties by id.
func sortComments(comments []Comment) []Comment {
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].Created != comments[j].Created {
			return comments[i].Created < comments[j].Created
		}
		return comments[i].ID < comments[j].ID
	})
	return comments
}
