package gatered

import (
	"context"
	"fmt"
	"time"
)

// PageCursor identifies the next page of a gateway listing. The gateway hands
// back an opaque token plus the number of items already served; both must be
// echoed on the follow-up request.
type PageCursor struct {
	Token string
	Dist  int
}

// IsZero reports whether the cursor points at the start of a listing.
func (c PageCursor) IsZero() bool {
	return c.Token == ""
}

// FetchPageFunc defines the signature for a function that fetches a single
// page of items. It returns the items, the cursor for the next page, and any
// error. A zero cursor means there are no further pages.
type FetchPageFunc[T any] func(ctx context.Context, cursor PageCursor) ([]T, PageCursor, error)

// PaginationOptions configures pagination behavior
type PaginationOptions struct {
	// Limit is the maximum number of items to fetch across all pages.
	// Set to 0 for unlimited (use with caution).
	Limit int

	// PageLimit is the maximum number of pages to fetch. Zero means no page
	// cap.
	PageLimit int

	// PageDelay is the pause between page requests, on top of whatever the
	// client's rate limiter enforces.
	PageDelay time.Duration

	// StopOnEmpty stops pagination when an empty page is received even if a
	// next cursor was returned. This prevents infinite loops with
	// misbehaving listings.
	StopOnEmpty bool
}

// DefaultPaginationOptions returns sensible defaults: four pages of roughly
// 25 posts each with a half-second pause between requests.
func DefaultPaginationOptions() PaginationOptions {
	return PaginationOptions{
		Limit:       0,
		PageLimit:   4,
		PageDelay:   500 * time.Millisecond,
		StopOnEmpty: true,
	}
}

// PaginateAll fetches pages until the listing is exhausted or a limit is hit,
// aggregating every item. The fetchPage function receives a zero cursor for
// the first request.
func PaginateAll[T any](
	ctx context.Context,
	fetchPage FetchPageFunc[T],
	opts PaginationOptions,
) ([]T, error) {
	var allItems []T
	err := PaginateEach(ctx, fetchPage, opts, func(items []T) error {
		allItems = append(allItems, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Limit > 0 && len(allItems) > opts.Limit {
		allItems = allItems[:opts.Limit]
	}
	return allItems, nil
}

// PaginateEach walks a listing page by page, invoking visit for each batch of
// items. This is the streaming counterpart of PaginateAll for callers that do
// not want the whole listing in memory.
func PaginateEach[T any](
	ctx context.Context,
	fetchPage FetchPageFunc[T],
	opts PaginationOptions,
	visit func(items []T) error,
) error {
	if fetchPage == nil {
		return fmt.Errorf("pagination.PaginateEach: fetchPage function is required")
	}
	if visit == nil {
		return fmt.Errorf("pagination.PaginateEach: visit function is required")
	}

	var (
		cursor PageCursor
		pages  int
		total  int
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		items, next, err := fetchPage(ctx, cursor)
		if err != nil {
			return fmt.Errorf("pagination.PaginateEach: fetch page failed (token=%q): %w", cursor.Token, err)
		}

		if err := visit(items); err != nil {
			return err
		}

		pages++
		total += len(items)

		if next.IsZero() {
			return nil
		}
		if opts.StopOnEmpty && len(items) == 0 {
			return nil
		}
		if opts.Limit > 0 && total >= opts.Limit {
			return nil
		}
		if opts.PageLimit > 0 && pages >= opts.PageLimit {
			return nil
		}

		cursor = next

		if opts.PageDelay > 0 {
			select {
			case <-time.After(opts.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// PaginationResult holds the results of a single-page fetch
type PaginationResult[T any] struct {
	Items []T
	Next  PageCursor
}

// PaginateSingle fetches a single page of items starting at the given cursor.
func PaginateSingle[T any](
	ctx context.Context,
	fetchPage FetchPageFunc[T],
	cursor PageCursor,
) (*PaginationResult[T], error) {
	if fetchPage == nil {
		return nil, fmt.Errorf("pagination.PaginateSingle: fetchPage function is required")
	}

	items, next, err := fetchPage(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("pagination.PaginateSingle: fetch page failed (token=%q): %w", cursor.Token, err)
	}

	return &PaginationResult[T]{
		Items: items,
		Next:  next,
	}, nil
}
