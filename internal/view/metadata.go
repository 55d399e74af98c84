package view

import (
	"strings"

	"newsroom/web/internal/content"
	"newsroom/web/internal/models"
)

// DefaultSiteTitle is used until site settings are published.
const DefaultSiteTitle = "NWS"

// Metadata is the document head of a page: title, description, authors
// and social preview image. Every string is free of overlay encoding.
type Metadata struct {
	Title       string
	Description string
	Authors     []string
	Image       string
	URL         string
}

// ArticleMetadata derives the head for an article page.
func ArticleMetadata(a *models.Article, images ImageBuilder, siteURL string) Metadata {
	if a == nil {
		return Metadata{}
	}

	m := Metadata{
		Title:       content.CleanStega(a.Title),
		Description: content.CleanStega(a.Summary()),
		Image:       images.URL(a.CoverImage, OGImageWidth, OGImageHeight),
		URL:         strings.TrimRight(siteURL, "/") + ArticlePath(a),
	}
	if a.Author != nil && a.Author.FirstName != "" && a.Author.LastName != "" {
		m.Authors = []string{content.CleanStega(a.Author.Name())}
	}
	return m
}

// SiteMetadata derives the head for the home and listing pages.
func SiteMetadata(s *models.Settings, siteURL string) Metadata {
	m := Metadata{Title: DefaultSiteTitle, URL: strings.TrimRight(siteURL, "/") + "/"}
	if s == nil {
		return m
	}
	if title := content.CleanStega(s.Title); title != "" {
		m.Title = title
	}
	m.Description = content.CleanStega(s.Description.PlainText())
	return m
}

// PageTitle joins a page heading with the site title.
func PageTitle(heading, site string) string {
	heading = content.CleanStega(heading)
	if heading == "" {
		return site
	}
	return heading + " | " + site
}
