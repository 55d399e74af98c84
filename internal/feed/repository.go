package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlbuilder "github.com/huandu/go-sqlbuilder"

	"newsroom/web/internal/database"
	"newsroom/web/internal/models"
)

const articlesTable = "rss_articles"

var articleColumns = []string{"id", "title", "link", "description", "pub_date", "source", "topic", "created_at"}

// Repository defines read access to syndicated news rows.
type Repository interface {
	// Latest returns up to limit rows ordered by publication time, newest
	// first. A nil topic reads across every topic.
	Latest(ctx context.Context, limit int, topic *models.Topic) ([]models.RssArticle, error)
}

// sqlxRepository implements Repository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) Repository {
	return &sqlxRepository{db: db}
}

// Latest retrieves the newest rows, optionally restricted to one topic.
func (r *sqlxRepository) Latest(ctx context.Context, limit int, topic *models.Topic) ([]models.RssArticle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(articleColumns...).From(articlesTable)
	if topic != nil {
		sb.Where(sb.Equal("topic", string(*topic)))
	}
	// id breaks ties so equal timestamps come back in a stable order
	sb.OrderBy("pub_date DESC", "id ASC").Limit(limit)

	query, args := sb.BuildWithFlavor(r.db.Flavor())

	var items []models.RssArticle
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.RssArticle{}, nil // Return empty slice, not error
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	if items == nil {
		items = []models.RssArticle{}
	}

	return items, nil
}
