package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsroom/web/internal/models"
)

func TestHumanizeSlug(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"india-general-election-2024", "India General Election 2024"},
		{"", "Article"},
		{"summit", "Summit"},
		{"g20-summit-ends", "G20 Summit Ends"},
		{"already Spaced", "Already Spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeSlug(tt.slug))
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "ISSOT Exclusive", CategoryLabel("issot-exclusive"))
	assert.Equal(t, "Commentary", CategoryLabel("commentary"))
	assert.Equal(t, "sports", CategoryLabel("sports"))
}

func TestBreadcrumbs(t *testing.T) {
	c := models.CategoryIndiaExclusive
	crumbs := Breadcrumbs(&c, HumanizeSlug("india-general-election-2024"))
	assert.Equal(t, []Crumb{
		{Label: "Home", Href: "/"},
		{Label: "India Exclusive", Href: "/category/india-exclusive"},
		{Label: "India General Election 2024"},
	}, crumbs)

	crumbs = Breadcrumbs(nil, "About")
	assert.Equal(t, []Crumb{{Label: "Home", Href: "/"}, {Label: "About"}}, crumbs)
	assert.Empty(t, crumbs[len(crumbs)-1].Href)
}

func TestArticlePath(t *testing.T) {
	c := models.CategoryWorldExclusive
	assert.Equal(t, "/world-exclusive/summit-ends", ArticlePath(&models.Article{Slug: "summit-ends", Category: &c}))
	assert.Equal(t, "/posts/untitled-piece", ArticlePath(&models.Article{Slug: "untitled-piece"}))
}
