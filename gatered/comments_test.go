package gatered_test

import (
	"context"
	"net/http"

	"github.com/countertek/gatered/gatered"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	commentsPath = "/desktopapi/v1/postcomments/t3_p1"
	morePath     = "/desktopapi/v1/morecomments/t3_p1"
)

// commentsJSON is a comment payload with two visible comments and one
// collapsed branch stub.
const commentsJSON = `{
	"posts": {
		"t3_p1": {
			"id": "t3_p1",
			"title": "Discussion thread",
			"author": "alice",
			"created": 1646835790000,
			"numComments": 3
		}
	},
	"comments": {
		"t1_c2": {
			"id": "t1_c2",
			"author": "carol",
			"postId": "t3_p1",
			"parentId": "t1_c1",
			"bodyMD": "second",
			"created": 1646835810000,
			"depth": 1
		},
		"t1_c1": {
			"id": "t1_c1",
			"author": "bob",
			"postId": "t3_p1",
			"bodyMD": "first",
			"created": 1646835800000,
			"depth": 0
		}
	},
	"moreComments": {
		"e0": {
			"token": "branch-token-1",
			"postId": "t3_p1",
			"parentId": "t1_c1",
			"depth": 1,
			"displayText": "1 more reply"
		}
	}
}`

// moreJSON resolves branch-token-1 into one comment and no further stubs.
const moreJSON = `{
	"comments": {
		"t1_c3": {
			"id": "t1_c3",
			"author": "dave",
			"postId": "t3_p1",
			"parentId": "t1_c1",
			"bodyMD": "third",
			"created": 1646835820000,
			"depth": 1
		}
	},
	"moreComments": {}
}`

var _ = Describe("Comments", func() {
	var (
		transport *gatered.TestTransport
		client    *gatered.Client
	)

	BeforeEach(func() {
		transport = gatered.NewTestTransport()

		var err error
		client, err = gatered.NewClient(
			gatered.WithHTTPClient(&http.Client{Transport: transport}),
			gatered.WithRetryConfig(fastRetryConfig()),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GetPostComments", func() {
		BeforeEach(func() {
			transport.AddResponse(commentsPath, jsonResponse(http.StatusOK, commentsJSON))
		})

		It("returns the post with its comments ordered by creation time", func() {
			result, err := client.GetPostComments(context.Background(), "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Post.ID).To(Equal("t3_p1"))
			Expect(result.Post.Title).To(Equal("Discussion thread"))
			Expect(result.Comments).To(HaveLen(2))
			Expect(result.Comments[0].ID).To(Equal("t1_c1"))
			Expect(result.Comments[1].ID).To(Equal("t1_c2"))
		})

		It("surfaces the collapsed branch stubs", func() {
			result, err := client.GetPostComments(context.Background(), "p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.More).To(HaveLen(1))
			Expect(result.More[0].Token).To(Equal("branch-token-1"))
			Expect(result.More[0].ParentID).To(Equal("t1_c1"))
		})

		It("accepts an already prefixed submission id", func() {
			result, err := client.GetPostComments(context.Background(), "t3_p1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Post.ID).To(Equal("t3_p1"))
		})

		It("sends the sort parameter only when one is chosen", func() {
			_, err := client.GetPostComments(context.Background(), "p1")
			Expect(err).NotTo(HaveOccurred())

			_, err = client.GetPostComments(context.Background(), "p1",
				gatered.WithCommentSort(gatered.CommentSortNew))
			Expect(err).NotTo(HaveOccurred())

			history := transport.GetCallHistory()
			Expect(history[0]).To(ContainSubstring("hasSortParam=false"))
			Expect(history[0]).NotTo(ContainSubstring("sort=new"))
			Expect(history[1]).To(ContainSubstring("hasSortParam=true"))
			Expect(history[1]).To(ContainSubstring("sort=new"))
		})

		It("reports a not found error when the submission is missing", func() {
			transport.AddResponse("/desktopapi/v1/postcomments/t3_gone",
				jsonResponse(http.StatusOK, `{"posts": {}, "comments": {}, "moreComments": {}}`))

			_, err := client.GetPostComments(context.Background(), "gone")
			Expect(err).To(HaveOccurred())
			Expect(gatered.IsNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("GetMoreComments", func() {
		It("redeems a branch token with a POST", func() {
			transport.AddResponse(morePath, jsonResponse(http.StatusOK, moreJSON))

			batch, err := client.GetMoreComments(context.Background(), "p1", "branch-token-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.Comments).To(HaveLen(1))
			Expect(batch.Comments[0].ID).To(Equal("t1_c3"))
			Expect(batch.More).To(BeEmpty())

			history := transport.GetCallHistory()
			Expect(history[0]).To(ContainSubstring("/morecomments/t3_p1"))
			Expect(history[0]).To(ContainSubstring("emotes_as_images=true"))
		})
	})

	Describe("GetAllPostComments", func() {
		It("expands the tree until no stubs remain", func() {
			transport.AddResponse(commentsPath, jsonResponse(http.StatusOK, commentsJSON))
			transport.AddResponse(morePath, jsonResponse(http.StatusOK, moreJSON))

			result, err := client.GetAllPostComments(context.Background(), "p1",
				gatered.WithMaxAtOnce(1), gatered.WithMaxPerSecond(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Comments).To(HaveLen(3))
			Expect(result.More).To(BeEmpty())
			Expect(transport.GetCallCount()).To(Equal(2))
		})

		It("expands nested stubs round by round", func() {
			nestedMoreJSON := `{
				"comments": {
					"t1_c3": {"id": "t1_c3", "postId": "t3_p1", "bodyMD": "third", "created": 1646835820000}
				},
				"moreComments": {
					"e1": {"token": "branch-token-2", "postId": "t3_p1", "parentId": "t1_c3", "depth": 2}
				}
			}`

			transport.AddResponse(commentsPath, jsonResponse(http.StatusOK, commentsJSON))
			transport.AddResponseToQueue(morePath, jsonResponse(http.StatusOK, nestedMoreJSON))
			transport.AddResponseToQueue(morePath, jsonResponse(http.StatusOK, moreJSON))

			result, err := client.GetAllPostComments(context.Background(), "p1",
				gatered.WithMaxAtOnce(1), gatered.WithMaxPerSecond(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Comments).To(HaveLen(4))
			Expect(transport.GetCallCount()).To(Equal(3))
		})
	})

	Describe("EachCommentBatch", func() {
		It("streams the visible comments then one batch per expansion round", func() {
			transport.AddResponse(commentsPath, jsonResponse(http.StatusOK, commentsJSON))
			transport.AddResponse(morePath, jsonResponse(http.StatusOK, moreJSON))

			var batches []gatered.CommentBatch
			err := client.EachCommentBatch(context.Background(), "p1", func(batch gatered.CommentBatch) error {
				batches = append(batches, batch)
				return nil
			}, gatered.WithMaxAtOnce(1), gatered.WithMaxPerSecond(0))

			Expect(err).NotTo(HaveOccurred())
			Expect(batches).To(HaveLen(2))
			Expect(batches[0].Comments).To(HaveLen(2))
			Expect(batches[0].More).To(HaveLen(1))
			Expect(batches[1].Comments).To(HaveLen(1))
			Expect(batches[1].More).To(BeEmpty())
		})

		It("stops when the visitor returns an error", func() {
			transport.AddResponse(commentsPath, jsonResponse(http.StatusOK, commentsJSON))

			stop := context.Canceled
			err := client.EachCommentBatch(context.Background(), "p1", func(gatered.CommentBatch) error {
				return stop
			})

			Expect(err).To(MatchError(stop))
			Expect(transport.GetCallCount()).To(Equal(1))
		})
	})
})
