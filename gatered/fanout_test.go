package gatered

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("runAll", func() {
	It("runs every function and preserves order", func() {
		fns := make([]func(ctx context.Context) (int, error), 10)
		for i := range fns {
			fns[i] = func(context.Context) (int, error) {
				return i * 2, nil
			}
		}

		results, err := runAll(context.Background(), fns, 4, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(10))
		for i, v := range results {
			Expect(v).To(Equal(i * 2))
		}
	})

	It("keeps at most maxAtOnce functions in flight", func() {
		var inFlight, peak int64
		var mu sync.Mutex

		fns := make([]func(ctx context.Context) (struct{}, error), 12)
		for i := range fns {
			fns[i] = func(context.Context) (struct{}, error) {
				current := atomic.AddInt64(&inFlight, 1)
				mu.Lock()
				if current > peak {
					peak = current
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return struct{}{}, nil
			}
		}

		_, err := runAll(context.Background(), fns, 3, 0)
		Expect(err).NotTo(HaveOccurred())

		mu.Lock()
		defer mu.Unlock()
		Expect(peak).To(BeNumerically("<=", 3))
	})

	It("returns the first error and cancels remaining work", func() {
		boom := fmt.Errorf("token expired")

		fns := []func(ctx context.Context) (int, error){
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context) (int, error) { return 0, boom },
			func(ctx context.Context) (int, error) {
				<-ctx.Done()
				return 0, ctx.Err()
			},
		}

		_, err := runAll(context.Background(), fns, 1, 0)
		Expect(err).To(MatchError(boom))
	})

	It("treats a non-positive concurrency limit as one", func() {
		fns := []func(ctx context.Context) (int, error){
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context) (int, error) { return 2, nil },
		}

		results, err := runAll(context.Background(), fns, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(Equal([]int{1, 2}))
	})

	It("spaces starts out according to maxPerSecond", func() {
		var starts []time.Time
		var mu sync.Mutex

		fns := make([]func(ctx context.Context) (struct{}, error), 3)
		for i := range fns {
			fns[i] = func(context.Context) (struct{}, error) {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return struct{}{}, nil
			}
		}

		began := time.Now()
		_, err := runAll(context.Background(), fns, 3, 100)
		Expect(err).NotTo(HaveOccurred())

		// 3 starts at 100 per second need at least ~20ms in total.
		Expect(time.Since(began)).To(BeNumerically(">=", 15*time.Millisecond))
		Expect(starts).To(HaveLen(3))
	})

	It("handles an empty function list", func() {
		results, err := runAll[int](context.Background(), nil, 4, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})
