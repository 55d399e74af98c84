package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsroom/web/internal/models"
)

// marked is what a stega-decorated string looks like: text plus zero-width runes.
const marked = "\u200b\u200c\u200d\ufeff\u200b"

func TestArticleMetadataIsFreeOfOverlay(t *testing.T) {
	c := models.CategoryWorldExclusive
	a := &models.Article{
		Title:    "Summit ends" + marked,
		Slug:     "summit-ends",
		Excerpt:  "Leaders agree" + marked,
		Category: &c,
		Author:   &models.Author{FirstName: "Asha" + marked, LastName: "Rao"},
		CoverImage: &models.Image{
			Asset: &models.Reference{Ref: "image-summit-1600x900-png"},
		},
	}

	m := ArticleMetadata(a, NewImageBuilder("abc123", "production"), "https://news.example/")
	assert.Equal(t, "Summit ends", m.Title)
	assert.Equal(t, "Leaders agree", m.Description)
	assert.Equal(t, []string{"Asha Rao"}, m.Authors)
	assert.Equal(t, "https://news.example/world-exclusive/summit-ends", m.URL)
	assert.Contains(t, m.Image, "w=1200")
	assert.Contains(t, m.Image, "h=627")

	for _, s := range []string{m.Title, m.Description, m.Authors[0], m.URL} {
		assert.False(t, strings.ContainsAny(s, marked), "overlay left in %q", s)
	}
}

func TestArticleMetadataAuthorNeedsFullName(t *testing.T) {
	tests := []struct {
		name   string
		author *models.Author
	}{
		{"no author", nil},
		{"first name only", &models.Author{FirstName: "Asha"}},
		{"last name only", &models.Author{LastName: "Rao"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ArticleMetadata(&models.Article{Title: "x", Slug: "x", Author: tt.author}, ImageBuilder{}, "")
			assert.Empty(t, m.Authors)
			assert.Empty(t, m.Image)
		})
	}
}

func TestSiteMetadata(t *testing.T) {
	m := SiteMetadata(nil, "https://news.example")
	assert.Equal(t, DefaultSiteTitle, m.Title)
	assert.Equal(t, "https://news.example/", m.URL)

	settings := &models.Settings{
		Title: "ISSOT News" + marked,
		Description: models.Body{&models.TextBlock{
			Key:      "d1",
			Children: []models.Span{{Key: "s", Text: "Independent reporting."}},
		}},
	}
	m = SiteMetadata(settings, "https://news.example")
	assert.Equal(t, "ISSOT News", m.Title)
	assert.Equal(t, "Independent reporting.", m.Description)
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Commentary | NWS", PageTitle("Commentary", "NWS"))
	assert.Equal(t, "NWS", PageTitle("", "NWS"))
	assert.Equal(t, "NWS", PageTitle(marked, "NWS"))
}
