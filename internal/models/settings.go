package models

// Settings is the site-wide singleton document.
type Settings struct {
	Title       string `json:"title"`
	Description Body   `json:"description"`
}

// SitemapEntry is one routable document as listed in the sitemap.
type SitemapEntry struct {
	Slug      string `json:"slug"`
	Type      string `json:"_type"`
	UpdatedAt string `json:"_updatedAt"`
}
