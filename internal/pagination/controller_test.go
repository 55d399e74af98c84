package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/web/internal/content"
	"newsroom/web/internal/models"
)

func articles(from, to int) []models.Article {
	out := make([]models.Article, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, models.Article{ID: fmt.Sprintf("a%02d", i), Slug: fmt.Sprintf("article-%d", i)})
	}
	return out
}

// sliceFetcher serves windows of a fixed listing of n records.
func sliceFetcher(n int, calls *int) Fetcher {
	return func(_ context.Context, offset, limit int) ([]models.Article, error) {
		if calls != nil {
			*calls++
		}
		return articles(min(offset, n), min(limit, n)), nil
	}
}

func TestCommentaryScenario(t *testing.T) {
	calls := 0
	c := NewController(sliceFetcher(15, &calls), articles(0, 12), 15)
	assert.True(t, c.HasMore())
	assert.Equal(t, PageSize, c.Offset())

	loaded, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 15, c.Len())
	assert.Equal(t, 24, c.Offset())
	assert.False(t, c.HasMore())

	loaded, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, 1, calls)
}

func TestHasMoreTracksCount(t *testing.T) {
	tests := []struct {
		name  string
		total int
		seed  int
	}{
		{"empty listing", 0, 0},
		{"single short page", 5, 5},
		{"exact page", 12, 12},
		{"several pages", 50, 12},
		{"page boundary", 36, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(sliceFetcher(tt.total, nil), articles(0, tt.seed), tt.total)
			for {
				assert.Equal(t, c.Len() < tt.total, c.HasMore())
				loaded, err := c.LoadMore(context.Background())
				require.NoError(t, err)
				if !loaded {
					break
				}
			}
			assert.Equal(t, tt.total, c.Len())
			assert.False(t, c.HasMore())

			seen := make(map[string]bool)
			for _, a := range c.Items() {
				assert.False(t, seen[a.ID], "duplicate %s", a.ID)
				seen[a.ID] = true
			}
		})
	}
}

func TestShortPageDoesNotEndListing(t *testing.T) {
	// The store returns fewer rows than the count promised; HasMore still
	// follows the count rather than the page size.
	fetch := func(_ context.Context, offset, limit int) ([]models.Article, error) {
		return articles(offset, offset+3), nil
	}
	c := NewController(fetch, articles(0, 12), 30)

	loaded, err := c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 15, c.Len())
	assert.Equal(t, 24, c.Offset())
	assert.True(t, c.HasMore())
}

func TestLoadMoreWhileLoadingIsNoOp(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	fetch := func(_ context.Context, offset, limit int) ([]models.Article, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return articles(offset, limit), nil
	}
	c := NewController(fetch, articles(0, 12), 100)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, c.Loading())
	loaded, err := c.LoadMore(context.Background())
	assert.NoError(t, err)
	assert.False(t, loaded)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Equal(t, 24, c.Len())
}

func TestLoadMoreFailureKeepsState(t *testing.T) {
	boom := errors.New("upstream unavailable")
	fail := true
	fetch := func(_ context.Context, offset, limit int) ([]models.Article, error) {
		if fail {
			return nil, boom
		}
		return articles(offset, limit), nil
	}
	c := NewController(fetch, articles(0, 12), 30)
	before := c.Items()

	loaded, err := c.LoadMore(context.Background())
	assert.False(t, loaded)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, c.Items())
	assert.Equal(t, PageSize, c.Offset())
	assert.False(t, c.Loading())
	assert.True(t, c.HasMore())

	fail = false
	loaded, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 24, c.Len())
}

func TestResumeContinuesFromState(t *testing.T) {
	first := NewController(sliceFetcher(30, nil), articles(0, 12), 30)
	state := first.State(models.CategoryWorldExclusive)
	assert.Equal(t, State{Category: models.CategoryWorldExclusive, Offset: 12, Shown: 12, Total: 30}, state)

	var got [][2]int
	fetch := func(_ context.Context, offset, limit int) ([]models.Article, error) {
		got = append(got, [2]int{offset, limit})
		return articles(offset, min(limit, 30)), nil
	}
	resumed := Resume(fetch, state)
	assert.True(t, resumed.HasMore())

	loaded, err := resumed.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, [][2]int{{12, 24}}, got)
	assert.Len(t, resumed.Items(), 12)
	assert.Equal(t, 24, resumed.Len())

	next := resumed.State(models.CategoryWorldExclusive)
	assert.Equal(t, 24, next.Offset)
	assert.Equal(t, 24, next.Shown)
	assert.True(t, next.HasMore())
}

func commentaryDataset(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `{"_id":"c%02d","_type":"article","title":"Op-ed %d","slug":{"current":"op-ed-%d"},"category":"commentary","date":"2024-03-%02dT09:00:00Z","_updatedAt":"2024-04-01T00:00:00Z"}`+"\n",
			i, i, i, i%28+1)
	}
	sb.WriteString(`{"_id":"w1","_type":"article","title":"World","slug":{"current":"world"},"category":"world-exclusive","date":"2024-03-01T00:00:00Z"}` + "\n")
	return sb.String()
}

func TestSeedAndLoadMoreAgainstGateway(t *testing.T) {
	backend, err := content.NewLocalBackend(strings.NewReader(commentaryDataset(15)))
	require.NoError(t, err)
	gw := content.NewGateway(backend)
	ctx := context.Background()

	c, err := Seed(ctx, gw, models.CategoryCommentary)
	require.NoError(t, err)
	assert.Len(t, c.Items(), 12)
	assert.Equal(t, 15, c.TotalCount())
	assert.True(t, c.HasMore())

	loaded, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 15, c.Len())
	assert.False(t, c.HasMore())

	for _, a := range c.Items() {
		require.NotNil(t, a.Category)
		assert.Equal(t, models.CategoryCommentary, *a.Category)
	}
}

func TestSeedFailsOnTransportError(t *testing.T) {
	gw := content.NewGateway(failingBackend{})
	_, err := Seed(context.Background(), gw, models.CategoryIndiaExclusive)
	assert.ErrorIs(t, err, content.ErrTransport)
}

type failingBackend struct{}

func (failingBackend) Query(context.Context, content.Request) (json.RawMessage, error) {
	return nil, errors.New("dial tcp: connection refused")
}
