package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/web/internal/content"
	"newsroom/web/internal/feed"
	"newsroom/web/internal/models"
	"newsroom/web/internal/view"
)

const testSiteURL = "https://news.example"

type stubRepo struct {
	rows []models.RssArticle
	err  error
}

func (r stubRepo) Latest(context.Context, int, *models.Topic) ([]models.RssArticle, error) {
	return r.rows, r.err
}

func newsRows(n int) []models.RssArticle {
	rows := make([]models.RssArticle, n)
	for i := range rows {
		rows[i] = models.RssArticle{
			ID:      fmt.Sprintf("n%d", i),
			Title:   fmt.Sprintf("Headline %d", i),
			Link:    fmt.Sprintf("https://wire.example/%d", i),
			PubDate: time.Now().Add(-time.Duration(i+1) * time.Hour),
			Source:  sql.NullString{String: "Wire", Valid: true},
			Topic:   models.TopicNation,
		}
	}
	return rows
}

func newTestServer(t *testing.T, backend content.Backend, repo feed.Repository) http.Handler {
	t.Helper()
	s, err := New(Options{
		Content: content.NewGateway(backend),
		Feed:    feed.NewAggregator(repo),
		Images:  view.NewImageBuilder("abc123", "production"),
		SiteURL: testSiteURL,
	})
	require.NoError(t, err)
	return s.Handler(zerolog.Nop())
}

func fixtureServer(t *testing.T, repo feed.Repository) http.Handler {
	t.Helper()
	backend, err := content.OpenLocalBackend("../content/testdata/dataset.ndjson")
	require.NoError(t, err)
	return newTestServer(t, backend, repo)
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestHomePage(t *testing.T) {
	h := fixtureServer(t, stubRepo{rows: newsRows(2)})

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	doc := parse(t, rec)
	assert.Equal(t, "ISSOT News", doc.Find("title").Text())
	assert.Equal(t, "Summit ends", doc.Find(".featured h1").Text())
	assert.Equal(t, 4, doc.Find(".ticker .ticker-item").Length(), "ticker items are rendered twice")
	assert.Equal(t, 2, doc.Find(".commentary-strip .card").Length())
	assert.Equal(t, 6, doc.Find(".all-posts .card").Length())
	assert.Equal(t, 5, doc.Find(".site-header nav a").Length())

	href, _ := doc.Find(".featured a").Attr("href")
	assert.Equal(t, "/world-exclusive/summit-ends", href)
}

func TestHomePageSurvivesFeedFailure(t *testing.T) {
	h := fixtureServer(t, stubRepo{err: sql.ErrConnDone})

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, feed.NoNewsMessage, doc.Find(".ticker .empty").Text())
	assert.Equal(t, "Summit ends", doc.Find(".featured h1").Text())
}

func TestNotFoundRoutes(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	tests := []struct {
		name   string
		target string
	}{
		{"unknown category listing", "/category/sports"},
		{"unknown category article", "/sports/india-general-election-2024"},
		{"article filed elsewhere", "/world-exclusive/india-general-election-2024"},
		{"missing article", "/india-exclusive/no-such-story"},
		{"missing post", "/posts/no-such-story"},
		{"missing page", "/nowhere"},
		{"nested unknown path", "/a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "does not exist")
		})
	}
}

func TestArticlePage(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	rec := get(t, h, "/india-exclusive/india-general-election-2024")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, "India general election 2024", doc.Find("article.post h1").Text())
	assert.Equal(t, "Asha Rao", doc.Find(".byline .name").Text())
	assert.Equal(t, "June 4, 2024", doc.Find(".byline time").Text())
	assert.Contains(t, doc.Find("title").Text(), "India general election 2024")

	crumbs := doc.Find(".breadcrumbs a")
	require.Equal(t, 2, crumbs.Length())
	href, _ := crumbs.Eq(1).Attr("href")
	assert.Equal(t, "/category/india-exclusive", href)
	assert.Equal(t, "India General Election 2024", doc.Find(".breadcrumbs .current").Text())

	link, _ := doc.Find(".body a").Attr("href")
	assert.Equal(t, "/about", link)

	author, _ := doc.Find(`meta[name="author"]`).Attr("content")
	assert.Equal(t, "Asha Rao", author)
	assert.Equal(t, 2, doc.Find(".more-posts .card").Length())
	assert.Zero(t, doc.Find(`.more-posts .card[data-id="art-election"]`).Length())
}

func TestPostRouteServesUncategorisedPath(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	rec := get(t, h, "/posts/on-federalism")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, "On federalism", doc.Find("article.post h1").Text())
	assert.Contains(t, doc.Find(".body").Text(), "States matter.")
}

func TestCMSPage(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	rec := get(t, h, "/about")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, "About us", doc.Find(".page h1").Text())
	assert.Equal(t, "About", doc.Find(".breadcrumbs .current").Text())

	button, _ := doc.Find(".cta a.button").Attr("href")
	assert.Equal(t, "/posts/india-general-election-2024", button)

	contact, _ := doc.Find(".info a").Attr("href")
	assert.Equal(t, "/contact", contact)
}

func TestNewsPage(t *testing.T) {
	t.Run("empty feed", func(t *testing.T) {
		h := fixtureServer(t, stubRepo{})

		rec := get(t, h, "/news")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, s-maxage=300, stale-while-revalidate", rec.Header().Get("Cache-Control"))

		doc := parse(t, rec)
		assert.Equal(t, "No news available", doc.Find(".ticker .empty").Text())
		assert.Zero(t, doc.Find(".ticker-item").Length())
	})

	t.Run("with items", func(t *testing.T) {
		h := fixtureServer(t, stubRepo{rows: newsRows(3)})

		doc := parse(t, get(t, h, "/news"))
		items := doc.Find(".ticker-item")
		assert.Equal(t, 6, items.Length())
		target, _ := items.First().Attr("target")
		assert.Equal(t, "_blank", target)
		assert.Equal(t, "Wire", items.First().Find(".source").Text())
	})
}

func commentaryBackend(t *testing.T, n int) content.Backend {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `{"_id":"c%02d","_type":"article","title":"Op-ed %d","slug":{"current":"op-ed-%d"},"category":"commentary","date":"2024-03-%02dT09:00:00Z"}`+"\n",
			i, i, i, i%28+1)
	}
	backend, err := content.NewLocalBackend(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return backend
}

func TestCategoryListingAndLoadMore(t *testing.T) {
	h := newTestServer(t, commentaryBackend(t, 15), stubRepo{})

	rec := get(t, h, "/category/commentary")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, "Commentary", doc.Find("main h1").Text())
	assert.Equal(t, 12, doc.Find("#listing .card.commentary").Length())
	assert.Equal(t, 1, doc.Find("#load-more").Length())

	token, ok := doc.Find("#listing .load-more").Attr("data-token")
	require.True(t, ok)
	require.NotEmpty(t, token)

	t.Run("json", func(t *testing.T) {
		rec := get(t, h, "/api/articles/more?format=json&token="+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp struct {
			Items     []map[string]any `json:"items"`
			NextToken *string          `json:"next_token"`
			HasMore   bool             `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Items, 3)
		assert.False(t, resp.HasMore)
		assert.Nil(t, resp.NextToken)
	})

	t.Run("html fragment", func(t *testing.T) {
		rec := get(t, h, "/api/articles/more?token="+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

		frag := parse(t, rec)
		assert.Equal(t, 3, frag.Find(".card.commentary").Length())
		assert.Zero(t, frag.Find(".load-more").Length())
	})

	t.Run("json via accept header", func(t *testing.T) {
		rec := get(t, h, "/api/articles/more?token="+token, "Accept", "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestCategoryListingWithoutMore(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	doc := parse(t, get(t, h, "/category/world-exclusive"))
	assert.Equal(t, 2, doc.Find("#listing .card").Length())
	assert.Zero(t, doc.Find("#load-more").Length())

	single := parse(t, get(t, h, "/category/issot-exclusive"))
	assert.Equal(t, 1, single.Find("#listing .card").Length())
	assert.Equal(t, "ISSOT Exclusive", single.Find("h1").Text())
	assert.Equal(t, "ISSOT Exclusive", single.Find(".breadcrumbs .current").Text())
	assert.True(t, strings.HasPrefix(single.Find("title").Text(), "ISSOT Exclusive | "))
}

func TestLoadMoreRejectsBadTokens(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	for _, target := range []string{
		"/api/articles/more",
		"/api/articles/more?token=",
		"/api/articles/more?token=not-a-token",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestSitemap(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	rec := get(t, h, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))

	var set urlSet
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &set))

	byLoc := make(map[string]sitemapURL, len(set.URLs))
	for _, u := range set.URLs {
		byLoc[u.Loc] = u
	}
	// Home, four categories, /news, six articles and two pages.
	assert.Len(t, set.URLs, 14)
	assert.Contains(t, byLoc, testSiteURL+"/")
	assert.Contains(t, byLoc, testSiteURL+"/category/commentary")
	assert.Contains(t, byLoc, testSiteURL+"/about")
	assert.Equal(t, "2024-05-20", byLoc[testSiteURL+"/posts/summit-ends"].LastMod)
	assert.Equal(t, "monthly", byLoc[testSiteURL+"/contact"].ChangeFreq)
}

func TestHealthAndStatic(t *testing.T) {
	h := fixtureServer(t, stubRepo{})

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get(t, h, "/static/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/static/placeholder.svg")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

type stalledRepo struct{}

func (stalledRepo) Latest(ctx context.Context, _ int, _ *models.Topic) ([]models.RssArticle, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHomePageDoesNotWaitForStalledFeed(t *testing.T) {
	backend, err := content.OpenLocalBackend("../content/testdata/dataset.ndjson")
	require.NoError(t, err)
	s, err := New(Options{
		Content: content.NewGateway(backend),
		Feed:    feed.NewAggregator(stalledRepo{}, feed.WithTimeout(50*time.Millisecond)),
		Images:  view.NewImageBuilder("abc123", "production"),
	})
	require.NoError(t, err)
	h := s.Handler(zerolog.Nop())

	start := time.Now()
	rec := get(t, h, "/")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parse(t, rec)
	assert.Equal(t, feed.NoNewsMessage, doc.Find(".ticker .empty").Text())
	assert.Equal(t, "Summit ends", doc.Find(".featured h1").Text())
}

func TestHomePageUsesNewsSnapshot(t *testing.T) {
	backend, err := content.OpenLocalBackend("../content/testdata/dataset.ndjson")
	require.NoError(t, err)

	news := feed.NewRevalidator(feed.NewAggregator(stubRepo{rows: newsRows(3)}), time.Minute)
	require.NoError(t, news.Refresh(context.Background()))

	// The live aggregator would block; the snapshot must be used instead.
	s, err := New(Options{
		Content: content.NewGateway(backend),
		Feed:    feed.NewAggregator(stalledRepo{}, feed.WithTimeout(0)),
		News:    news,
		Images:  view.NewImageBuilder("abc123", "production"),
	})
	require.NoError(t, err)

	doc := parse(t, get(t, s.Handler(zerolog.Nop()), "/"))
	assert.Equal(t, 6, doc.Find(".ticker .ticker-item").Length())
}
