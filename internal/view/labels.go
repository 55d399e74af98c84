// Package view holds the pure mapping functions between fetched content
// and what the templates display.
package view

import (
	"strings"
	"unicode"

	"newsroom/web/internal/models"
)

// DefaultLeaf is the breadcrumb leaf for an article without a slug.
const DefaultLeaf = "Article"

// CategoryLabel returns the display label for a raw category segment.
// Unknown values are shown as-is.
func CategoryLabel(raw string) string {
	return models.Category(raw).Label()
}

// HumanizeSlug turns "india-general-election-2024" into
// "India General Election 2024".
func HumanizeSlug(slug string) string {
	if slug == "" {
		return DefaultLeaf
	}

	spaced := strings.ReplaceAll(slug, "-", " ")
	out := make([]rune, 0, len(spaced))
	prevWord := false
	for _, r := range spaced {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if isWord && !prevWord {
			r = unicode.ToUpper(r)
		}
		out = append(out, r)
		prevWord = isWord
	}
	return string(out)
}

// Crumb is one breadcrumb entry. The last entry has no Href.
type Crumb struct {
	Label string
	Href  string
}

// Breadcrumbs builds Home → [Category] → leaf. A nil category skips the
// middle entry.
func Breadcrumbs(category *models.Category, leaf string) []Crumb {
	crumbs := []Crumb{{Label: "Home", Href: "/"}}
	if category != nil {
		crumbs = append(crumbs, Crumb{Label: category.Label(), Href: CategoryPath(*category)})
	}
	return append(crumbs, Crumb{Label: leaf})
}

// CategoryPath is the listing route for c.
func CategoryPath(c models.Category) string {
	return "/category/" + string(c)
}

// ArticlePath is the canonical route for a, under its category when it has one.
func ArticlePath(a *models.Article) string {
	if a.Category != nil && a.Category.Valid() {
		return "/" + string(*a.Category) + "/" + a.Slug
	}
	return "/posts/" + a.Slug
}
