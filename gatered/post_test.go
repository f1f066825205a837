package gatered_test

import (
	"time"

	"github.com/countertek/gatered/gatered"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Post", func() {
	Describe("Fullname", func() {
		It("adds the t3 prefix to a bare id", func() {
			post := gatered.Post{ID: "abc123"}
			Expect(post.Fullname()).To(Equal("t3_abc123"))
		})

		It("keeps an already prefixed id unchanged", func() {
			post := gatered.Post{ID: "t3_abc123"}
			Expect(post.Fullname()).To(Equal("t3_abc123"))
		})
	})

	Describe("CreatedTime", func() {
		It("interprets the timestamp as unix milliseconds", func() {
			post := gatered.Post{Created: 1646835790000}
			Expect(post.CreatedTime()).To(Equal(time.Date(2022, time.March, 9, 14, 23, 10, 0, time.UTC)))
		})
	})

	Describe("media accessors", func() {
		It("reads the self text from the media object", func() {
			post := gatered.Post{Media: map[string]any{
				"type":            "text",
				"markdownContent": "hello there",
			}}
			Expect(post.SelfText()).To(Equal("hello there"))
			Expect(post.MediaType()).To(Equal("text"))
		})

		It("reads image metadata from the media object", func() {
			post := gatered.Post{Media: map[string]any{
				"type":    "image",
				"content": "https://i.redd.it/abc.jpg",
				"width":   float64(1920),
				"height":  float64(1080),
			}}
			Expect(post.MediaURL()).To(Equal("https://i.redd.it/abc.jpg"))
			width, height := post.MediaDimensions()
			Expect(width).To(Equal(1920))
			Expect(height).To(Equal(1080))
		})

		It("returns zero values when there is no media", func() {
			post := gatered.Post{}
			Expect(post.SelfText()).To(BeEmpty())
			Expect(post.MediaType()).To(BeEmpty())
			width, height := post.MediaDimensions()
			Expect(width).To(BeZero())
			Expect(height).To(BeZero())
		})
	})

	Describe("LinkURL", func() {
		It("prefers the outbound source URL", func() {
			post := gatered.Post{
				Permalink: "https://www.reddit.com/r/golang/comments/a1/",
				Source:    &gatered.PostSource{URL: "https://example.com/article"},
			}
			Expect(post.LinkURL()).To(Equal("https://example.com/article"))
		})

		It("falls back to the permalink for self posts", func() {
			post := gatered.Post{Permalink: "https://www.reddit.com/r/golang/comments/a1/"}
			Expect(post.LinkURL()).To(Equal("https://www.reddit.com/r/golang/comments/a1/"))
		})
	})

	Describe("String", func() {
		It("includes the identifying fields", func() {
			post := gatered.Post{ID: "t3_a1", Title: "Hello", Author: "alice", Score: 42, CommentCount: 7}
			Expect(post.String()).To(ContainSubstring(`"t3_a1"`))
			Expect(post.String()).To(ContainSubstring(`"Hello"`))
		})
	})
})

var _ = Describe("Comment model", func() {
	It("builds the t1 fullname", func() {
		comment := gatered.Comment{ID: "c1"}
		Expect(comment.Fullname()).To(Equal("t1_c1"))
	})

	It("interprets the timestamp as unix milliseconds", func() {
		comment := gatered.Comment{Created: 1646835790000}
		Expect(comment.CreatedTime()).To(Equal(time.Date(2022, time.March, 9, 14, 23, 10, 0, time.UTC)))
	})
})

var _ = Describe("Subreddit model", func() {
	It("builds the t5 fullname", func() {
		sub := gatered.Subreddit{ID: "2rc7j"}
		Expect(sub.Fullname()).To(Equal("t5_2rc7j"))
	})

	It("interprets the timestamp as unix milliseconds", func() {
		sub := gatered.Subreddit{Created: 1233935646000}
		Expect(sub.CreatedTime().Year()).To(Equal(2009))
	})
})
