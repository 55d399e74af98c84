package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Status tells whether an article is a published document or a draft working copy.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// DraftPrefix marks the id of an unpublished working copy.
const DraftPrefix = "drafts."

// DefaultTitle is shown for articles saved without a title.
const DefaultTitle = "Untitled"

// Author is the dereferenced author of an article.
type Author struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Designation string `json:"designation,omitempty"`
	Picture     *Image `json:"picture,omitempty"`
}

// Name returns the author's full name.
func (a *Author) Name() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Article is a news story as returned by the content store. Fields that a
// given query does not project stay at their zero value.
type Article struct {
	ID             string    `json:"_id"`
	Type           string    `json:"_type,omitempty"`
	Status         Status    `json:"status,omitempty"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Excerpt        string    `json:"excerpt,omitempty"`
	ContentPreview string    `json:"contentPreview,omitempty"`
	Date           time.Time `json:"date"`
	UpdatedAt      time.Time `json:"_updatedAt,omitempty"`
	Category       *Category `json:"category,omitempty"`
	CoverImage     *Image    `json:"coverImage,omitempty"`
	Author         *Author   `json:"author,omitempty"`
	Content        Body      `json:"-"`
	Featured       bool      `json:"featured,omitempty"`
}

// Summary returns the excerpt, or the content preview when there is no excerpt.
func (a *Article) Summary() string {
	if a.Excerpt != "" {
		return a.Excerpt
	}
	return a.ContentPreview
}

// InCategory reports whether the article is filed under c.
func (a *Article) InCategory(c Category) bool {
	return a.Category != nil && *a.Category == c
}

// UnmarshalJSON decodes an article and applies the missing-field defaults:
// title falls back to "Untitled", date to the last-modified time and status
// is derived from the document id when the query did not project it.
func (a *Article) UnmarshalJSON(data []byte) error {
	var doc struct {
		ID             string          `json:"_id"`
		OriginalID     string          `json:"_originalId"`
		Type           string          `json:"_type"`
		Status         Status          `json:"status"`
		Title          *string         `json:"title"`
		Slug           json.RawMessage `json:"slug"`
		Excerpt        string          `json:"excerpt"`
		ContentPreview string          `json:"contentPreview"`
		Date           string          `json:"date"`
		UpdatedAt      string          `json:"_updatedAt"`
		Category       Category        `json:"category"`
		CoverImage     *Image          `json:"coverImage"`
		Author         *Author         `json:"author"`
		Content        Body            `json:"content"`
		Featured       bool            `json:"featured"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*a = Article{
		ID:             doc.ID,
		Type:           doc.Type,
		Status:         doc.Status,
		Title:          DefaultTitle,
		Slug:           rawSlug(doc.Slug),
		Excerpt:        doc.Excerpt,
		ContentPreview: doc.ContentPreview,
		CoverImage:     doc.CoverImage,
		Author:         doc.Author,
		Content:        doc.Content,
		Featured:       doc.Featured,
	}

	if doc.Title != nil && *doc.Title != "" {
		a.Title = *doc.Title
	}
	if doc.Category != "" {
		c := doc.Category
		a.Category = &c
	}
	if a.Status == "" {
		a.Status = StatusPublished
		if strings.HasPrefix(doc.OriginalID, DraftPrefix) || strings.HasPrefix(doc.ID, DraftPrefix) {
			a.Status = StatusDraft
		}
	}
	if a.CoverImage != nil && a.CoverImage.AssetRef() == "" {
		a.CoverImage = nil
	}

	a.UpdatedAt = parseDate(doc.UpdatedAt)
	a.Date = parseDate(doc.Date)
	if a.Date.IsZero() {
		a.Date = a.UpdatedAt
	}
	return nil
}

// parseDate accepts both full timestamps and the date-only values editors
// type into date fields. Unparseable values come back as the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
