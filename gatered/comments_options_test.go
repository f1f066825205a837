package gatered

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("commentsConfig", func() {
	Describe("defaults", func() {
		It("uses the site default sort and bounded expansion", func() {
			cfg := newCommentsConfig()
			Expect(cfg.sort).To(BeEmpty())
			Expect(cfg.maxAtOnce).To(Equal(8))
			Expect(cfg.maxPerSecond).To(Equal(4))
		})
	})

	Describe("queryParams", func() {
		It("flags the sort as absent by default", func() {
			params := newCommentsConfig().queryParams()
			Expect(params).To(HaveKeyWithValue("hasSortParam", "false"))
			Expect(params).To(HaveKeyWithValue("emotes_as_images", "true"))
			Expect(params).NotTo(HaveKey("sort"))
		})

		It("includes a chosen sort", func() {
			params := newCommentsConfig(WithCommentSort(CommentSortControversial)).queryParams()
			Expect(params).To(HaveKeyWithValue("hasSortParam", "true"))
			Expect(params).To(HaveKeyWithValue("sort", "controversial"))
		})

		It("drops an unknown sort", func() {
			params := newCommentsConfig(WithCommentSort("loudest")).queryParams()
			Expect(params).To(HaveKeyWithValue("hasSortParam", "false"))
			Expect(params).NotTo(HaveKey("sort"))
		})
	})

	Describe("expansion bounds", func() {
		It("applies positive bounds", func() {
			cfg := newCommentsConfig(WithMaxAtOnce(2), WithMaxPerSecond(1))
			Expect(cfg.maxAtOnce).To(Equal(2))
			Expect(cfg.maxPerSecond).To(Equal(1))
		})

		It("allows disabling the per-second ceiling", func() {
			cfg := newCommentsConfig(WithMaxPerSecond(0))
			Expect(cfg.maxPerSecond).To(BeZero())
		})

		It("rejects non-positive concurrency", func() {
			cfg := newCommentsConfig(WithMaxAtOnce(0), WithMaxAtOnce(-3))
			Expect(cfg.maxAtOnce).To(Equal(8))
		})
	})
})
