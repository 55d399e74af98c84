// Package importnews loads syndicated news rows from a CSV file into the
// feed table, for local development and demo datasets.
package importnews

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/rs/zerolog/log"

	"newsroom/web/internal/database"
	"newsroom/web/internal/models"
)

var requiredColumns = []string{"id", "title", "link", "pub_date", "topic"}

// Summary reports what an import did.
type Summary struct {
	Total    int
	Imported int
	Errors   []string
}

// Importer handles the news import process
type Importer struct {
	db *database.DB
}

// NewImporter creates a new news importer
func NewImporter(db *database.DB) *Importer {
	return &Importer{db: db}
}

// ImportFile imports rows from a CSV file
func (i *Importer) ImportFile(ctx context.Context, csvPath string) (Summary, error) {
	log.Info().Str("csv", csvPath).Msg("Starting news import")

	f, err := os.Open(csvPath)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	summary, err := i.Import(ctx, f)
	if err != nil {
		return summary, fmt.Errorf("failed to import news: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return summary, nil
}

// Import reads CSV rows with the header id,title,link,pub_date,topic and the
// optional columns description and source. Bad rows are skipped and
// reported; duplicate ids or links are skipped. All good rows are inserted
// in one transaction.
func (i *Importer) Import(ctx context.Context, csvData io.Reader) (Summary, error) {
	var summary Summary

	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return summary, fmt.Errorf("failed to read CSV header: %w", err)
	}
	log.Debug().Strs("header", header).Msg("CSV header read")

	for _, column := range requiredColumns {
		if findColumnIndex(header, column) < 0 {
			return summary, fmt.Errorf("required column '%s' not found in CSV header", column)
		}
	}

	idIdx := findColumnIndex(header, "id")
	titleIdx := findColumnIndex(header, "title")
	linkIdx := findColumnIndex(header, "link")
	descriptionIdx := findColumnIndex(header, "description")
	pubDateIdx := findColumnIndex(header, "pub_date")
	sourceIdx := findColumnIndex(header, "source")
	topicIdx := findColumnIndex(header, "topic")

	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, err
	}
	defer tx.Rollback()

	lineCount := 1 // Header was already read
	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}
		summary.Total++

		article, err := parseRecord(record, idIdx, titleIdx, linkIdx, descriptionIdx, pubDateIdx, sourceIdx, topicIdx)
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Skipping invalid row")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		logger := log.With().
			Int("line", lineCount).
			Str("id", article.ID).
			Str("topic", string(article.Topic)).
			Logger()

		inserted, err := i.insert(ctx, tx, article)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to insert article")
			return summary, fmt.Errorf("line %d: %w", lineCount, err)
		}
		if !inserted {
			logger.Warn().Msg("Duplicate id or link")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: duplicate article %s", lineCount, article.ID))
			continue
		}

		summary.Imported++
		logger.Debug().Msg("Article inserted successfully")
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("failed to commit import: %w", err)
	}

	log.Info().
		Int("total", summary.Total).
		Int("success", summary.Imported).
		Int("errors", len(summary.Errors)).
		Msg("Import summary")

	return summary, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insert adds one row, ignoring conflicts on id or link.
func (i *Importer) insert(ctx context.Context, tx execer, a models.RssArticle) (bool, error) {
	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("rss_articles").
		Cols("id", "title", "link", "description", "pub_date", "source", "topic").
		Values(a.ID, a.Title, a.Link, a.Description, a.PubDate, a.Source, string(a.Topic))

	query, args := ib.BuildWithFlavor(i.db.Flavor())
	query += " ON CONFLICT DO NOTHING"

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func parseRecord(record []string, idIdx, titleIdx, linkIdx, descriptionIdx, pubDateIdx, sourceIdx, topicIdx int) (models.RssArticle, error) {
	a := models.RssArticle{
		ID:          safeGetValue(record, idIdx).String,
		Title:       safeGetValue(record, titleIdx).String,
		Link:        safeGetValue(record, linkIdx).String,
		Description: safeGetValue(record, descriptionIdx),
		Source:      safeGetValue(record, sourceIdx),
		Topic:       models.Topic(strings.ToLower(safeGetValue(record, topicIdx).String)),
	}
	switch {
	case a.ID == "":
		return a, fmt.Errorf("empty id")
	case a.Title == "":
		return a, fmt.Errorf("empty title")
	case a.Link == "":
		return a, fmt.Errorf("empty link")
	case a.Topic != models.TopicNation && a.Topic != models.TopicWorld:
		return a, fmt.Errorf("unknown topic %q", a.Topic)
	}

	raw := safeGetValue(record, pubDateIdx)
	if !raw.Valid {
		return a, fmt.Errorf("empty pub_date")
	}
	pub, err := dateparse.ParseIn(raw.String, time.UTC)
	if err != nil {
		return a, fmt.Errorf("invalid pub_date %q: %w", raw.String, err)
	}
	a.PubDate = pub.UTC()
	return a, nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns a sql.NullString from a record at the specified index.
// If the index is out of bounds or the value is empty, it returns an invalid NullString.
func safeGetValue(record []string, index int) sql.NullString {
	if index >= 0 && index < len(record) && record[index] != "" {
		return sql.NullString{
			String: record[index],
			Valid:  true,
		}
	}
	return sql.NullString{Valid: false}
}
