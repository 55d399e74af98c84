// Package feed reads the syndicated news table and prepares the scrolling
// ticker shown on the home page and on /news.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"newsroom/web/internal/metrics"
	"newsroom/web/internal/models"
)

// TickerSize is how many rows the ticker reads in one request.
const TickerSize = 100

// NoNewsMessage is shown in place of an empty ticker.
const NoNewsMessage = "No news available"

// DefaultTickerTimeout bounds a page-render read of the news table.
const DefaultTickerTimeout = 5 * time.Second

// Ticker is one shuffled snapshot of the news table.
type Ticker struct {
	Items     []models.RssArticle
	FetchedAt time.Time
}

// Empty reports whether there is nothing to scroll.
func (t Ticker) Empty() bool {
	return len(t.Items) == 0
}

// Rendered returns the items twice back-to-back so the scrolling loop can
// wrap without a visible seam: Rendered()[i] == Rendered()[i+len(Items)].
func (t Ticker) Rendered() []models.RssArticle {
	out := make([]models.RssArticle, 0, 2*len(t.Items))
	out = append(out, t.Items...)
	return append(out, t.Items...)
}

// Aggregator builds tickers from a Repository.
type Aggregator struct {
	repo    Repository
	limit   int
	shuffle func([]models.RssArticle) []models.RssArticle
	now     func() time.Time
	timeout time.Duration
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithTimeout bounds each Ticker read. Zero or less disables the bound.
func WithTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

// NewAggregator creates an aggregator reading TickerSize rows per snapshot.
func NewAggregator(repo Repository, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		repo:    repo,
		limit:   TickerSize,
		shuffle: func(items []models.RssArticle) []models.RssArticle { return lo.Shuffle(items) },
		now:     time.Now,
		timeout: DefaultTickerTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the newest rows across both topics in one query and shuffles
// them so nation and world items are interleaved.
func (a *Aggregator) Load(ctx context.Context) (Ticker, error) {
	items, err := a.repo.Latest(ctx, a.limit, nil)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(metrics.OutcomeError).Inc()
		return Ticker{}, fmt.Errorf("failed to load ticker: %w", err)
	}

	outcome := metrics.OutcomeOK
	if len(items) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.FeedFetches.WithLabelValues(outcome).Inc()

	return Ticker{Items: a.shuffle(items), FetchedAt: a.now()}, nil
}

// Ticker is Load for page rendering: a failure or timeout is logged and
// yields an empty ticker so the rest of the page still renders.
func (a *Aggregator) Ticker(ctx context.Context) Ticker {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	t, err := a.Load(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Error fetching news")
		return Ticker{FetchedAt: a.now()}
	}
	return t
}

// TimeAgo renders how long before now pub was published.
func TimeAgo(pub, now time.Time) string {
	diff := now.Sub(pub)
	mins := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return plural(mins, "min")
	case hours < 24:
		return plural(hours, "hour")
	default:
		return plural(days, "day")
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
