package models

import (
	"database/sql"
	"time"
)

// Topic is the syndication bucket a news item was pulled from.
type Topic string

const (
	TopicNation Topic = "nation"
	TopicWorld  Topic = "world"
)

// RssArticle represents a row in the rss_articles table
type RssArticle struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Link        string         `db:"link"`
	Description sql.NullString `db:"description"`
	PubDate     time.Time      `db:"pub_date"`
	Source      sql.NullString `db:"source"`
	Topic       Topic          `db:"topic"`
	CreatedAt   time.Time      `db:"created_at"`
}

// SourceLabel returns the publisher name, or "" when the feed did not supply one.
func (a RssArticle) SourceLabel() string {
	if a.Source.Valid {
		return a.Source.String
	}
	return ""
}
