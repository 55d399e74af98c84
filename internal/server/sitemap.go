package server

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/hlog"

	"newsroom/web/internal/content"
	"newsroom/web/internal/models"
	"newsroom/web/internal/view"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func lastMod(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// buildSitemap lists the home page, every category listing and every
// routable document.
func buildSitemap(siteURL string, entries []models.SitemapEntry) urlSet {
	base := strings.TrimRight(siteURL, "/")
	set := urlSet{Xmlns: sitemapNS}

	set.URLs = append(set.URLs, sitemapURL{Loc: base + "/", ChangeFreq: "daily", Priority: "1.0"})
	for _, c := range models.Categories {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + view.CategoryPath(c), ChangeFreq: "daily", Priority: "0.8"})
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: base + "/news", ChangeFreq: "hourly", Priority: "0.5"})

	for _, e := range entries {
		if e.Slug == "" {
			continue
		}
		u := sitemapURL{LastMod: lastMod(e.UpdatedAt)}
		switch e.Type {
		case "article":
			u.Loc = base + "/posts/" + e.Slug
			u.ChangeFreq = "never"
			u.Priority = "0.5"
		case "page":
			u.Loc = base + "/" + e.Slug
			u.ChangeFreq = "monthly"
			u.Priority = "0.8"
		default:
			continue
		}
		set.URLs = append(set.URLs, u)
	}
	return set
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	entries, err := s.opts.Content.Sitemap(r.Context(),
		content.WithPerspective(content.PerspectivePublished), content.WithStega(false))
	if err != nil {
		log.Error().Err(err).Msg("Error fetching sitemap data")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	out, err := xml.MarshalIndent(buildSitemap(s.opts.SiteURL, entries), "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling sitemap")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	if _, err := w.Write(out); err != nil {
		log.Error().Err(err).Msg("Error writing sitemap to client")
	}
}
