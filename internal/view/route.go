package view

import (
	"errors"
	"fmt"

	"newsroom/web/internal/models"
)

// ErrNotFound is a terminal not-found outcome for a route.
var ErrNotFound = errors.New("not found")

// CategoryRoute validates a category path segment. It is called before any
// fetch so unknown sections never reach the content store.
func CategoryRoute(segment string) (models.Category, error) {
	c, ok := models.ParseCategory(segment)
	if !ok {
		return "", fmt.Errorf("category %q: %w", segment, ErrNotFound)
	}
	return c, nil
}

// ArticleRoute checks a fetched article against the category segment it was
// requested under. A mismatch is not found, never a redirect.
func ArticleRoute(c models.Category, a *models.Article) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("article: %w", ErrNotFound)
	}
	if !a.InCategory(c) {
		return fmt.Errorf("article %s is not filed under %s: %w", a.Slug, c, ErrNotFound)
	}
	return nil
}

// PostRoute checks an article fetched for the category-less /posts route.
func PostRoute(a *models.Article) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("article: %w", ErrNotFound)
	}
	return nil
}
