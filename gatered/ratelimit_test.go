package gatered_test

import (
	"context"
	"time"

	"github.com/countertek/gatered/gatered"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RateLimiter", func() {
	It("allows requests within the burst", func() {
		limiter := gatered.NewRateLimiter(60, 3)

		Expect(limiter.Allow()).To(BeTrue())
		Expect(limiter.Allow()).To(BeTrue())
		Expect(limiter.Allow()).To(BeTrue())
		Expect(limiter.Allow()).To(BeFalse())
	})

	It("waits without blocking while tokens remain", func() {
		limiter := gatered.NewRateLimiter(60, 2)

		start := time.Now()
		Expect(limiter.Wait(context.Background())).To(Succeed())
		Expect(limiter.Wait(context.Background())).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 100*time.Millisecond))
	})

	It("aborts the wait when the context is canceled", func() {
		limiter := gatered.NewRateLimiter(1, 1)
		limiter.Allow() // drain the only token

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(limiter.Wait(ctx)).To(HaveOccurred())
	})

	It("reports the delay of a reservation", func() {
		limiter := gatered.NewRateLimiter(60, 1)
		limiter.Allow() // drain the burst

		reservation := limiter.Reserve()
		Expect(reservation.Delay()).To(BeNumerically(">", 0))
		reservation.Cancel()
	})

	Describe("Backoff", func() {
		It("throttles requests until the deadline", func() {
			limiter := gatered.NewRateLimiter(6000, 1)
			limiter.Allow() // drain the burst

			limiter.Backoff(time.Now().Add(time.Minute))
			Expect(limiter.Allow()).To(BeFalse())
		})

		It("blocks requests even while tokens remain", func() {
			limiter := gatered.NewRateLimiter(6000, 5)

			limiter.Backoff(time.Now().Add(time.Minute))
			Expect(limiter.Allow()).To(BeFalse())
		})

		It("resumes normal operation after the deadline", func() {
			limiter := gatered.NewRateLimiter(6000, 1)

			limiter.Backoff(time.Now().Add(10 * time.Millisecond))
			Expect(limiter.Allow()).To(BeFalse())

			time.Sleep(20 * time.Millisecond)
			Expect(limiter.Allow()).To(BeTrue())
		})

		It("makes Wait hold until the deadline", func() {
			limiter := gatered.NewRateLimiter(6000, 5)

			limiter.Backoff(time.Now().Add(30 * time.Millisecond))

			start := time.Now()
			Expect(limiter.Wait(context.Background())).To(Succeed())
			Expect(time.Since(start)).To(BeNumerically(">=", 25*time.Millisecond))
		})

		It("aborts a frozen Wait when the context is canceled", func() {
			limiter := gatered.NewRateLimiter(6000, 5)
			limiter.Backoff(time.Now().Add(time.Minute))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			Expect(limiter.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
		})

		It("ignores deadlines in the past", func() {
			limiter := gatered.NewRateLimiter(6000, 1)
			limiter.Backoff(time.Now().Add(-time.Second))
			Expect(limiter.Allow()).To(BeTrue())
		})

		It("keeps the later of two deadlines", func() {
			limiter := gatered.NewRateLimiter(6000, 1)

			limiter.Backoff(time.Now().Add(time.Minute))
			limiter.Backoff(time.Now().Add(time.Millisecond))

			time.Sleep(5 * time.Millisecond)
			Expect(limiter.Allow()).To(BeFalse())
		})
	})
})
