// Package pagination holds the per-view "load more" state for article
// listings.
package pagination

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"newsroom/web/internal/content"
	"newsroom/web/internal/metrics"
	"newsroom/web/internal/models"
)

// PageSize is the increment for every listing, commentary included.
const PageSize = content.PageSize

// Fetcher returns the records at positions [offset, limit) of a listing.
type Fetcher func(ctx context.Context, offset, limit int) ([]models.Article, error)

// Controller accumulates a listing one page at a time. It belongs to a
// single view and is never shared between requests.
type Controller struct {
	fetch Fetcher

	mu    sync.Mutex
	items []models.Article
	// base counts items shown before this controller was resumed.
	base       int
	offset     int
	totalCount int

	loading atomic.Bool
}

// NewController seeds a controller with the first page and the total
// reported by the count query.
func NewController(fetch Fetcher, seed []models.Article, totalCount int) *Controller {
	items := make([]models.Article, len(seed))
	copy(items, seed)
	return &Controller{
		fetch:      fetch,
		items:      items,
		offset:     PageSize,
		totalCount: totalCount,
	}
}

// Resume rebuilds a controller from a token's state. Items already on the
// page are not refetched; only the count of them is carried.
func Resume(fetch Fetcher, s State) *Controller {
	return &Controller{
		fetch:      fetch,
		base:       s.Shown,
		offset:     s.Offset,
		totalCount: s.Total,
	}
}

// LoadMore fetches the next page. It returns false without fetching when a
// request is already in flight or everything has been shown. On failure
// the error is logged and returned, and the items and offset are unchanged.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	if !c.loading.CompareAndSwap(false, true) {
		return false, nil
	}
	defer c.loading.Store(false)

	if !c.HasMore() {
		return false, nil
	}

	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()

	logger := zerolog.Ctx(ctx)
	page, err := c.fetch(ctx, offset, offset+PageSize)
	if err != nil {
		metrics.LoadMoreRequests.WithLabelValues(metrics.OutcomeError).Inc()
		logger.Error().Err(err).Int("offset", offset).Msg("Error loading more articles")
		return false, fmt.Errorf("load more at offset %d: %w", offset, err)
	}

	c.mu.Lock()
	c.items = append(c.items, page...)
	c.offset += PageSize
	c.mu.Unlock()

	outcome := metrics.OutcomeOK
	if len(page) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.LoadMoreRequests.WithLabelValues(outcome).Inc()
	logger.Debug().Int("offset", offset).Int("fetched", len(page)).Msg("Loaded more articles")
	return true, nil
}

// Loading reports whether a LoadMore call is in flight.
func (c *Controller) Loading() bool {
	return c.loading.Load()
}

// HasMore is derived from the count, never from the size of the last page.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base+len(c.items) < c.totalCount
}

// Items returns the accumulated records held by this controller.
func (c *Controller) Items() []models.Article {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Article, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of records shown so far, including any shown before a
// resume.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base + len(c.items)
}

// Offset is where the next page starts.
func (c *Controller) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// TotalCount is the total the controller was seeded with.
func (c *Controller) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount
}

// State captures what a later request needs to continue this listing.
func (c *Controller) State(category models.Category) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Category: category,
		Offset:   c.offset,
		Shown:    c.base + len(c.items),
		Total:    c.totalCount,
	}
}

// ForCategory returns a Fetcher for category's listing query. Commentary
// uses its own query.
func ForCategory(gw *content.Gateway, category models.Category) Fetcher {
	q, bind := content.ListingQuery(category)
	return func(ctx context.Context, offset, limit int) ([]models.Article, error) {
		return gw.Articles(ctx, q, bind(offset, limit))
	}
}

// Seed fetches the first page and the total concurrently and returns a
// controller for category. The count is fetched once and never refreshed.
func Seed(ctx context.Context, gw *content.Gateway, category models.Category) (*Controller, error) {
	fetch := ForCategory(gw, category)

	var (
		first []models.Article
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = fetch(gctx, 0, PageSize)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = gw.Count(gctx, content.CategoryArticlesCount, content.CategoryCount(category))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("seed %s listing: %w", category, err)
	}

	return NewController(fetch, first, total), nil
}
