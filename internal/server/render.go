package server

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"newsroom/web/internal/feed"
	"newsroom/web/internal/models"
	"newsroom/web/internal/view"
)

var pageNames = []string{"home", "listing", "article", "page", "news", "error"}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"image":        s.opts.Images.Src,
		"articlePath":  articlePath,
		"categoryPath": view.CategoryPath,
		"listingDate":  func(t time.Time) string { return view.ListingDate(t, s.now()) },
		"formatDate":   view.FormatDate,
		"timeAgo":      func(t time.Time) string { return feed.TimeAgo(t, s.now()) },
		"richText":     s.renderer.Render,
		"linkHref":     view.LinkHref,
		"noNews":       func() string { return feed.NoNewsMessage },
		"cta": func(b models.PageBlock) *models.CallToAction {
			c, _ := b.(*models.CallToAction)
			return c
		},
		"info": func(b models.PageBlock) *models.InfoSection {
			i, _ := b.(*models.InfoSection)
			return i
		},
	}
}

func articlePath(v any) string {
	switch a := v.(type) {
	case *models.Article:
		return view.ArticlePath(a)
	case models.Article:
		return view.ArticlePath(&a)
	default:
		return "/"
	}
}

func (s *Server) loadTemplates() error {
	funcs := s.funcs()
	s.pages = make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		s.pages[name] = t
	}
	return nil
}

// basePage carries what the layout needs on every page.
type basePage struct {
	Meta          view.Metadata
	SiteTitle     string
	Categories    []models.Category
	VisualEditing bool
}

func (s *Server) base(meta view.Metadata, siteTitle string) basePage {
	if siteTitle == "" {
		siteTitle = view.DefaultSiteTitle
	}
	if meta.Title == "" {
		meta.Title = siteTitle
	}
	return basePage{
		Meta:          meta,
		SiteTitle:     siteTitle,
		Categories:    models.Categories,
		VisualEditing: s.opts.VisualEditing,
	}
}

// cardList is a run of listing cards plus the token for the next page.
type cardList struct {
	Items      []models.Article
	Commentary bool
	NextToken  string
}

// RenderCards writes the card fragment returned by the load-more API.
func (s *Server) RenderCards(w io.Writer, category models.Category, items []models.Article, nextToken string) error {
	return s.pages["listing"].ExecuteTemplate(w, "cards", cardList{
		Items:      items,
		Commentary: category == models.CategoryCommentary,
		NextToken:  nextToken,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	log := hlog.FromRequest(r)

	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("template", page).Msg("Error rendering template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("Error writing response body to client")
	}
}

type errorPage struct {
	basePage
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", errorPage{
		basePage: s.base(view.Metadata{Title: http.StatusText(status)}, ""),
		Status:   status,
		Message:  message,
	})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}
