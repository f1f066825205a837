package gatered

import (
	"fmt"
	"time"
)

// Subreddit holds the merged subreddit record for a listing. The gateway
// splits it across two maps (a listing entry and an about entry); callers see
// the union.
type Subreddit struct {
	ID            string
	Name          string
	Title         string
	Description   string
	URL           string
	Icon          string
	Subscribers   int
	ActiveCount   int
	Created       int64 // unix milliseconds
	NSFW          bool
	IsQuarantined bool
}

// CreatedTime returns the subreddit creation time as a time.Time.
func (s Subreddit) CreatedTime() time.Time {
	return time.UnixMilli(s.Created).UTC()
}

// Fullname returns the Reddit fullname identifier for this subreddit (t5_<id>)
func (s Subreddit) Fullname() string {
	return fullname("t5", s.ID)
}

// String returns a formatted string representation of the Subreddit
func (s Subreddit) String() string {
	return fmt.Sprintf("Subreddit{ID: %q, Name: %q, Subscribers: %d}",
		s.ID, s.Name, s.Subscribers)
}

// subredditInfo is the listing-side subreddit entry.
type subredditInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  struct {
		URL string `json:"url"`
	} `json:"icon"`
	IsNSFW bool `json:"isNSFW"`
}

// subredditAbout is the about-side subreddit entry.
type subredditAbout struct {
	ID                string `json:"id"`
	PublicDescription string `json:"publicDescription"`
	Subscribers       int    `json:"subscribers"`
	ActiveCount       int    `json:"activeCount"`
	Created           int64  `json:"created"`
	IsQuarantined     bool   `json:"isQuarantined"`
}

// mergeSubreddit combines the two gateway subreddit maps into one record. A
// listing always describes exactly one subreddit, so the first entry of each
// map is taken.
func mergeSubreddit(infos map[string]subredditInfo, abouts map[string]subredditAbout) (Subreddit, error) {
	if len(infos) == 0 {
		return Subreddit{}, fmt.Errorf("subreddit.mergeSubreddit: listing carries no subreddit entry")
	}

	var sub Subreddit
	for _, info := range infos {
		sub = Subreddit{
			ID:    info.ID,
			Name:  info.Name,
			Title: info.Title,
			URL:   info.URL,
			Icon:  info.Icon.URL,
			NSFW:  info.IsNSFW,
		}
		break
	}

	for _, about := range abouts {
		sub.Description = about.PublicDescription
		sub.Subscribers = about.Subscribers
		sub.ActiveCount = about.ActiveCount
		sub.Created = about.Created
		sub.IsQuarantined = about.IsQuarantined
		break
	}

	return sub, nil
}
