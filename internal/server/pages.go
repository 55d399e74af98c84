package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"newsroom/web/internal/content"
	"newsroom/web/internal/feed"
	"newsroom/web/internal/models"
	"newsroom/web/internal/pagination"
	"newsroom/web/internal/view"
)

const unavailableMessage = "This content is temporarily unavailable. Please try again shortly."

// section fetches a listing for one part of a page. A failure is logged and
// the section renders empty.
func (s *Server) section(ctx context.Context, q *content.Query, params content.Params) []models.Article {
	items, err := s.opts.Content.Articles(ctx, q, params)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("query", q.Name).Msg("Error fetching section, rendering empty")
		return nil
	}
	return items
}

// siteSettings reads the settings singleton for page heads. Metadata is
// machine-facing so the overlay is always off.
func (s *Server) siteSettings(ctx context.Context) *models.Settings {
	settings, err := s.opts.Content.Settings(ctx, content.WithStega(false))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Error fetching site settings, using defaults")
		return nil
	}
	return settings
}

func siteTitle(settings *models.Settings) string {
	if settings == nil {
		return ""
	}
	return content.CleanStega(settings.Title)
}

type homePage struct {
	basePage
	Featured   *models.Article
	Ticker     feed.Ticker
	Commentary []models.Article
	Latest     []models.Article
	AllPosts   []models.Article
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := hlog.FromRequest(r)

	var (
		data     homePage
		settings *models.Settings
		g        errgroup.Group
	)

	// The ticker never holds back the rest of the page: it comes from the
	// revalidated snapshot when there is one, otherwise from a bounded read.
	g.Go(func() error {
		data.Ticker = s.ticker(ctx)
		return nil
	})
	g.Go(func() error {
		featured, err := s.opts.Content.Article(ctx, content.FeaturedArticle, nil)
		if err != nil {
			log.Error().Err(err).Msg("Error fetching featured article, showing placeholder")
			return nil
		}
		data.Featured = featured
		return nil
	})
	g.Go(func() error {
		data.Commentary = s.section(ctx, content.CommentaryArticles, nil)
		return nil
	})
	g.Go(func() error {
		data.Latest = s.section(ctx, content.LatestArticles, nil)
		return nil
	})
	g.Go(func() error {
		data.AllPosts = s.section(ctx, content.AllPosts, nil)
		return nil
	})
	g.Go(func() error {
		settings = s.siteSettings(ctx)
		return nil
	})
	_ = g.Wait()

	data.basePage = s.base(view.SiteMetadata(settings, s.opts.SiteURL), siteTitle(settings))
	s.render(w, r, http.StatusOK, "home", data)
}

type listingPage struct {
	basePage
	Label   string
	Crumbs  []view.Crumb
	Listing cardList
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := hlog.FromRequest(r)

	raw := mux.Vars(r)["category"]
	category, err := view.CategoryRoute(raw)
	if err != nil {
		log.Debug().Err(err).Msg("Unknown category")
		s.notFound(w, r)
		return
	}

	listing := cardList{Commentary: category == models.CategoryCommentary}
	ctrl, err := pagination.Seed(ctx, s.opts.Content, category)
	if err != nil {
		log.Error().Err(err).Str("category", string(category)).Msg("Error fetching category listing, rendering empty")
	} else {
		listing.Items = ctrl.Items()
		if ctrl.HasMore() {
			listing.NextToken = pagination.EncodeToken(ctrl.State(category))
		}
	}

	settings := s.siteSettings(ctx)
	site := siteTitle(settings)
	meta := view.SiteMetadata(settings, s.opts.SiteURL)
	label := view.CategoryLabel(raw)
	meta.Title = view.PageTitle(label, site)
	meta.URL = s.opts.SiteURL + view.CategoryPath(category)

	s.render(w, r, http.StatusOK, "listing", listingPage{
		basePage: s.base(meta, site),
		Label:    label,
		Crumbs:   view.Breadcrumbs(nil, label),
		Listing:  listing,
	})
}

type articlePage struct {
	basePage
	Crumbs  []view.Crumb
	Article *models.Article
	More    []models.Article
}

func (s *Server) fetchPost(ctx context.Context, slug string) (*models.Article, error) {
	a, err := s.opts.Content.Article(ctx, content.Post, content.BySlug(slug))
	if err != nil {
		return nil, fmt.Errorf("fetch post %q: %w", slug, err)
	}
	return a, nil
}

func (s *Server) handleCategoryArticle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	log := hlog.FromRequest(r)

	category, err := view.CategoryRoute(vars["category"])
	if err != nil {
		log.Debug().Err(err).Msg("Unknown category")
		s.notFound(w, r)
		return
	}

	a, err := s.fetchPost(r.Context(), vars["slug"])
	if err != nil {
		log.Error().Err(err).Msg("Error fetching article")
		s.renderError(w, r, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	if err := view.ArticleRoute(category, a); err != nil {
		log.Debug().Err(err).Msg("Article not found")
		s.notFound(w, r)
		return
	}

	s.renderArticle(w, r, a, &category)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	a, err := s.fetchPost(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		log.Error().Err(err).Msg("Error fetching article")
		s.renderError(w, r, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	if err := view.PostRoute(a); err != nil {
		log.Debug().Err(err).Msg("Article not found")
		s.notFound(w, r)
		return
	}

	var category *models.Category
	if a.Category != nil && a.Category.Valid() {
		category = a.Category
	}
	s.renderArticle(w, r, a, category)
}

func (s *Server) renderArticle(w http.ResponseWriter, r *http.Request, a *models.Article, category *models.Category) {
	ctx := r.Context()
	log := hlog.FromRequest(r)

	var (
		more     []models.Article
		settings *models.Settings
		metaSrc  = a
		g        errgroup.Group
	)
	g.Go(func() error {
		more = s.section(ctx, content.MorePosts, content.Excluding(a.ID, 2))
		return nil
	})
	g.Go(func() error {
		settings = s.siteSettings(ctx)
		return nil
	})
	if s.opts.VisualEditing {
		// The displayed copy carries edit links; metadata needs the exact text.
		g.Go(func() error {
			clean, err := s.opts.Content.Article(ctx, content.Post, content.BySlug(a.Slug), content.WithStega(false))
			if err != nil || clean == nil {
				log.Warn().Err(err).Msg("Error fetching clean article metadata, stripping overlay instead")
				return nil
			}
			metaSrc = clean
			return nil
		})
	}
	_ = g.Wait()

	site := siteTitle(settings)
	meta := view.ArticleMetadata(metaSrc, s.opts.Images, s.opts.SiteURL)
	meta.Title = view.PageTitle(meta.Title, site)

	s.render(w, r, http.StatusOK, "article", articlePage{
		basePage: s.base(meta, site),
		Crumbs:   view.Breadcrumbs(category, view.HumanizeSlug(content.CleanStega(a.Slug))),
		Article:  a,
		More:     more,
	})
}

type cmsPage struct {
	basePage
	Crumbs []view.Crumb
	Page   *models.Page
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := hlog.FromRequest(r)

	page, err := s.opts.Content.PageBySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		log.Error().Err(err).Msg("Error fetching page")
		s.renderError(w, r, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	if page == nil {
		s.notFound(w, r)
		return
	}

	settings := s.siteSettings(ctx)
	site := siteTitle(settings)
	heading := content.CleanStega(page.Heading)
	meta := view.Metadata{
		Title:       view.PageTitle(heading, site),
		Description: content.CleanStega(page.Subheading),
		URL:         s.opts.SiteURL + "/" + page.Slug,
	}

	leaf := content.CleanStega(page.Name)
	if leaf == "" {
		leaf = view.HumanizeSlug(page.Slug)
	}
	s.render(w, r, http.StatusOK, "page", cmsPage{
		basePage: s.base(meta, site),
		Crumbs:   view.Breadcrumbs(nil, leaf),
		Page:     page,
	})
}

type newsPage struct {
	basePage
	Ticker feed.Ticker
}

func (s *Server) ticker(ctx context.Context) feed.Ticker {
	if s.opts.News != nil {
		return s.opts.News.Snapshot()
	}
	return s.opts.Feed.Ticker(ctx)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := s.ticker(r.Context())

	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(s.opts.NewsRevalidate.Seconds())))
	s.render(w, r, http.StatusOK, "news", newsPage{
		basePage: s.base(view.Metadata{Title: view.PageTitle("Breaking News", view.DefaultSiteTitle)}, ""),
		Ticker:   ticker,
	})
}
