package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/web/internal/models"
)

type repoFunc func(ctx context.Context, limit int, topic *models.Topic) ([]models.RssArticle, error)

func (f repoFunc) Latest(ctx context.Context, limit int, topic *models.Topic) ([]models.RssArticle, error) {
	return f(ctx, limit, topic)
}

func fakeArticles(n int) []models.RssArticle {
	items := make([]models.RssArticle, n)
	for i := range items {
		items[i] = models.RssArticle{ID: fmt.Sprintf("a%d", i), Title: fmt.Sprintf("Item %d", i)}
	}
	return items
}

func TestAggregatorReadsBothTopicsInOneQuery(t *testing.T) {
	calls := 0
	agg := NewAggregator(repoFunc(func(_ context.Context, limit int, topic *models.Topic) ([]models.RssArticle, error) {
		calls++
		assert.Equal(t, TickerSize, limit)
		assert.Nil(t, topic)
		return fakeArticles(7), nil
	}))

	ticker, err := agg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, ticker.Items, 7)
	assert.ElementsMatch(t, fakeArticles(7), ticker.Items)
}

func TestTickerRenderedRepeatsSequence(t *testing.T) {
	agg := NewAggregator(repoFunc(func(context.Context, int, *models.Topic) ([]models.RssArticle, error) {
		return fakeArticles(25), nil
	}))

	ticker := agg.Ticker(context.Background())
	rendered := ticker.Rendered()
	n := len(ticker.Items)
	require.Len(t, rendered, 2*n)
	for i := 0; i < n; i++ {
		assert.Equal(t, rendered[i], rendered[i+n])
		assert.Equal(t, ticker.Items[i], rendered[i])
	}
}

func TestShuffleReachesDifferentOrders(t *testing.T) {
	agg := NewAggregator(repoFunc(func(context.Context, int, *models.Topic) ([]models.RssArticle, error) {
		return fakeArticles(3), nil
	}))

	seen := make(map[string]bool)
	for i := 0; i < 300; i++ {
		ticker, err := agg.Load(context.Background())
		require.NoError(t, err)
		key := ""
		for _, item := range ticker.Items {
			key += item.ID
		}
		seen[key] = true
	}
	// 3! orderings; 300 draws miss one with negligible probability
	assert.Len(t, seen, 6)
}

func TestTickerFailureIsEmpty(t *testing.T) {
	agg := NewAggregator(repoFunc(func(context.Context, int, *models.Topic) ([]models.RssArticle, error) {
		return nil, errors.New("connection refused")
	}))

	_, err := agg.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	ticker := agg.Ticker(context.Background())
	assert.True(t, ticker.Empty())
	assert.Empty(t, ticker.Rendered())
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		pub  time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"future", now.Add(time.Hour), "just now"},
		{"one minute", now.Add(-time.Minute), "1 min ago"},
		{"minutes", now.Add(-59 * time.Minute), "59 mins ago"},
		{"one hour", now.Add(-61 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-23*time.Hour - 59*time.Minute), "23 hours ago"},
		{"one day", now.Add(-24 * time.Hour), "1 day ago"},
		{"days", now.Add(-72 * time.Hour), "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(tt.pub, now))
		})
	}
}

func blockingRepo() repoFunc {
	return func(ctx context.Context, _ int, _ *models.Topic) ([]models.RssArticle, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestTickerTimesOutOnStalledStore(t *testing.T) {
	agg := NewAggregator(blockingRepo(), WithTimeout(20*time.Millisecond))

	start := time.Now()
	ticker := agg.Ticker(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, ticker.Empty())
}

func TestLoadIsNotBoundedByTickerTimeout(t *testing.T) {
	agg := NewAggregator(blockingRepo(), WithTimeout(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := agg.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
